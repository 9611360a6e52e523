package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
)

var (
	mealsDate   string
	mealsOutput string
	mealInput   api.Meal
)

var mealsCmd = &cobra.Command{
	Use:     "meals",
	Aliases: []string{"meal"},
	Short:   "Log meals and analyze daily intake",
}

var mealsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the meals logged on a day",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			date := mealsDateOrToday()
			meals, err := a.client.Meals(cmd.Context(), date)
			if err != nil {
				return err
			}
			if done, err := writeStructured(a.out, mealsOutput, meals); done {
				return err
			}

			p := newPrinter(a.out, false)
			p.Section("🍽  Meals on " + date)
			if len(meals) == 0 {
				p.Muted("No meals logged.")
				return nil
			}
			var total api.Meal
			for _, m := range meals {
				p.Line("%-10s %-10s %-28s %6.0f kcal  P %5.1fg  C %5.1fg  F %5.1fg", m.ID, m.MealType, truncate(m.MealName, 28), m.Calories, m.Protein, m.Carbs, m.Fats)
				total.Calories += m.Calories
				total.Protein += m.Protein
				total.Carbs += m.Carbs
				total.Fats += m.Fats
			}
			p.Line("%-10s %-10s %-28s %6.0f kcal  P %5.1fg  C %5.1fg  F %5.1fg", "", "", "Total", total.Calories, total.Protein, total.Carbs, total.Fats)
			return nil
		})
	},
}

var mealsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Log a meal",
	Long: `Log a meal for a day (today by default).

Example:
  dietchat meals add "Oatmeal with berries" --type breakfast --calories 350 --protein 12 --carbs 60 --fats 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meal := mealInput
		meal.MealName = strings.TrimSpace(strings.Join(args, " "))
		meal.MealType = strings.ToLower(meal.MealType)
		if !slices.Contains(api.MealTypes, meal.MealType) {
			return &internal.UserError{Message: fmt.Sprintf("invalid meal type %q (want one of %s)", meal.MealType, strings.Join(api.MealTypes, ", "))}
		}
		if meal.Calories < 0 || meal.Protein < 0 || meal.Carbs < 0 || meal.Fats < 0 || meal.Fiber < 0 {
			return &internal.UserError{Message: "nutrient values cannot be negative"}
		}
		meal.Date = mealsDateOrToday()
		if err := api.ValidateDate(meal.Date); err != nil {
			return err
		}

		return withLogin(cmd, func(a *app, _ *api.User) error {
			created, err := a.client.CreateMeal(cmd.Context(), meal)
			if err != nil {
				return err
			}
			internal.PrintSuccess(a.out, fmt.Sprintf("Logged %s (%s, %.0f kcal) as %s", created.MealName, created.MealType, created.Calories, created.ID))
			return nil
		})
	},
}

var mealsDeleteCmd = &cobra.Command{
	Use:     "delete <meal-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a logged meal",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			if err := a.client.DeleteMeal(cmd.Context(), args[0]); err != nil {
				return err
			}
			internal.PrintSuccess(a.out, "Deleted meal "+args[0])
			return nil
		})
	},
}

var mealsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a day's intake and get suggestions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			date := mealsDateOrToday()
			var analysis *api.Analysis
			err := internal.ShowProgress(cmd.Context(), a.errOut, "Analyzing "+date+"...", func() error {
				var err error
				analysis, err = a.client.AnalyzeAndSuggest(cmd.Context(), date)
				return err
			})
			if err != nil {
				return err
			}
			var raw any
			if err := json.Unmarshal(analysis.Raw, &raw); err != nil {
				raw = analysis
			}
			if done, err := writeStructured(a.out, mealsOutput, raw); done {
				return err
			}

			p := newPrinter(a.out, a.cfg.RenderMarkdown)
			p.Section("📊 Analysis for " + date)
			if analysis.Analysis != "" {
				p.Markdown(analysis.Analysis)
			}
			if len(analysis.Suggestions) > 0 {
				fmt.Fprintln(a.out)
				p.Section("Suggestions")
				for _, s := range analysis.Suggestions {
					p.Line("  • %s", s)
				}
			}
			if analysis.Analysis == "" && len(analysis.Suggestions) == 0 {
				p.Markdown("```json\n" + strings.TrimSpace(string(analysis.Raw)) + "\n```")
			}
			return nil
		})
	},
}

func mealsDateOrToday() string {
	if mealsDate == "" {
		return today()
	}
	return mealsDate
}

func init() {
	rootCmd.AddCommand(mealsCmd)
	mealsCmd.AddCommand(mealsListCmd)
	mealsCmd.AddCommand(mealsAddCmd)
	mealsCmd.AddCommand(mealsDeleteCmd)
	mealsCmd.AddCommand(mealsAnalyzeCmd)

	for _, c := range []*cobra.Command{mealsListCmd, mealsAddCmd, mealsAnalyzeCmd} {
		c.Flags().StringVarP(&mealsDate, "date", "d", "", "Day as YYYY-MM-DD (default today)")
	}
	mealsListCmd.Flags().StringVarP(&mealsOutput, "output", "o", "text", "Output format (text, json, yaml)")
	mealsAnalyzeCmd.Flags().StringVarP(&mealsOutput, "output", "o", "text", "Output format (text, json, yaml)")

	f := mealsAddCmd.Flags()
	f.StringVarP(&mealInput.MealType, "type", "t", "snack", "Meal type (breakfast, lunch, dinner, snack)")
	f.Float64Var(&mealInput.Calories, "calories", 0, "Calories (kcal)")
	f.Float64Var(&mealInput.Protein, "protein", 0, "Protein (g)")
	f.Float64Var(&mealInput.Carbs, "carbs", 0, "Carbohydrates (g)")
	f.Float64Var(&mealInput.Fats, "fats", 0, "Fat (g)")
	f.Float64Var(&mealInput.Fiber, "fiber", 0, "Fiber (g)")
	f.StringVar(&mealInput.ServingSize, "serving", "", "Serving size, e.g. \"1 bowl\"")
	f.StringVar(&mealInput.Notes, "notes", "", "Notes")
}
