package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
)

var (
	profileOutput        string
	profileName          string
	profileAge           int
	profileGender        string
	profileWeight        float64
	profileHeight        float64
	profileActivityLevel string
	profileDiet          []string
	profileGoals         []string
	profileAllergies     []string
	profileConditions    []string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, user *api.User) error {
			return printProfile(a, user, profileOutput)
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long: `Update profile fields. Only the flags you pass are sent; list flags
replace the stored list.

Example:
  dietchat profile update --weight 68.5 --activity-level moderate --goal "lose weight"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, user *api.User) error {
			upd := profileUpdateFromFlags(cmd, user)
			if upd.IsEmpty() {
				return errors.New("nothing to update (see 'dietchat profile update --help')")
			}
			updated, err := a.auth.UpdateProfile(cmd.Context(), upd)
			if err != nil {
				return err
			}
			internal.PrintSuccess(a.out, "Profile updated")
			return printProfile(a, updated, "text")
		})
	},
}

// profileUpdateFromFlags builds an update from the flags that were set. Body
// metrics start from the current profile so unset metrics are preserved.
func profileUpdateFromFlags(cmd *cobra.Command, user *api.User) api.ProfileUpdate {
	flags := cmd.Flags()
	upd := api.ProfileUpdate{}
	if flags.Changed("name") {
		upd.Name = profileName
	}
	if flags.Changed("diet") {
		upd.DietaryPreferences = profileDiet
	}
	if flags.Changed("goal") {
		upd.HealthGoals = profileGoals
	}

	metrics := []string{"age", "gender", "weight", "height", "activity-level", "allergy", "condition"}
	changed := false
	for _, name := range metrics {
		changed = changed || flags.Changed(name)
	}
	if !changed {
		return upd
	}

	p := api.Profile{}
	if user != nil && user.Profile != nil {
		p = *user.Profile
	}
	if flags.Changed("age") {
		p.Age = profileAge
	}
	if flags.Changed("gender") {
		p.Gender = profileGender
	}
	if flags.Changed("weight") {
		p.Weight = profileWeight
	}
	if flags.Changed("height") {
		p.Height = profileHeight
	}
	if flags.Changed("activity-level") {
		p.ActivityLevel = profileActivityLevel
	}
	if flags.Changed("allergy") {
		p.Allergies = profileAllergies
	}
	if flags.Changed("condition") {
		p.HealthConditions = profileConditions
	}
	upd.Profile = &p
	return upd
}

func printProfile(a *app, user *api.User, output string) error {
	if done, err := writeStructured(a.out, output, user); done {
		return err
	}

	p := newPrinter(a.out, false)
	p.Section("👤 " + user.Name)
	p.Line("Email:               %s", user.Email)
	p.Line("Dietary preferences: %s", joinOrDash(user.DietaryPreferences))
	p.Line("Health goals:        %s", joinOrDash(user.HealthGoals))
	if prof := user.Profile; prof != nil {
		if prof.Age > 0 {
			p.Line("Age:                 %d", prof.Age)
		}
		if prof.Gender != "" {
			p.Line("Gender:              %s", prof.Gender)
		}
		if prof.Weight > 0 {
			p.Line("Weight:              %.1f kg", prof.Weight)
		}
		if prof.Height > 0 {
			p.Line("Height:              %.1f cm", prof.Height)
		}
		if prof.ActivityLevel != "" {
			p.Line("Activity level:      %s", prof.ActivityLevel)
		}
		p.Line("Allergies:           %s", joinOrDash(prof.Allergies))
		p.Line("Health conditions:   %s", joinOrDash(prof.HealthConditions))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	profileShowCmd.Flags().StringVarP(&profileOutput, "output", "o", "text", "Output format (text, json, yaml)")

	f := profileUpdateCmd.Flags()
	f.StringVar(&profileName, "name", "", "Display name")
	f.IntVar(&profileAge, "age", 0, "Age in years")
	f.StringVar(&profileGender, "gender", "", "Gender")
	f.Float64Var(&profileWeight, "weight", 0, "Weight in kg")
	f.Float64Var(&profileHeight, "height", 0, "Height in cm")
	f.StringVar(&profileActivityLevel, "activity-level", "", "Activity level (sedentary, light, moderate, active, very_active)")
	f.StringSliceVar(&profileDiet, "diet", nil, "Dietary preference (repeatable)")
	f.StringSliceVar(&profileGoals, "goal", nil, "Health goal (repeatable)")
	f.StringSliceVar(&profileAllergies, "allergy", nil, "Allergy (repeatable)")
	f.StringSliceVar(&profileConditions, "condition", nil, "Health condition (repeatable)")
}
