package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/iksnae/dietchat/internal/api"
)

// FallbackReply is shown when nothing displayable could be extracted from a response.
const FallbackReply = "I received your message but couldn't generate a proper response. Please try rephrasing your question."

// DefaultAgentName labels responses from agents missing from the lookup table.
const DefaultAgentName = "AI Assistant"

var agentNames = map[string]string{
	"nutrition_calculator": "Nutrition Calculator",
	"recipe_finder":        "Recipe Finder",
	"diet_tracker":         "Diet Tracker",
	"coordinator":          "AI Coordinator",
}

// AgentName returns the display name of an agent id
func AgentName(id string) string {
	if name, ok := agentNames[id]; ok {
		return name
	}
	return DefaultAgentName
}

// PrimaryResponse is the sum type of recognized primary response shapes:
// TextResponse, FreeTextResponse, FoodAnalysisResponse, RecipesResponse,
// DailyAnalysisResponse and UnknownResponse.
type PrimaryResponse interface {
	primaryResponse()
}

// TextResponse is a primary response sent as a bare string
type TextResponse struct {
	Text string
}

// FreeTextResponse is an agent object carrying a free-text "response" field
type FreeTextResponse struct {
	Text string
}

// Nutrient is one labeled value of a nutrition breakdown
type Nutrient struct {
	Label string
	Value float64
	Unit  string
}

// FoodAnalysisResponse is the nutrition breakdown of a single food
type FoodAnalysisResponse struct {
	FoodName  string
	Quantity  string
	Nutrients []Nutrient
	Insights  string
}

// Recipe is one suggested recipe
type Recipe struct {
	Name     string
	Calories float64
	PrepTime string
}

// RecipesResponse is a list of recipe suggestions
type RecipesResponse struct {
	Recipes []Recipe
}

// DailyAnalysisResponse summarizes one day of intake
type DailyAnalysisResponse struct {
	Totals   []Nutrient
	Insights string
}

// UnknownResponse carries any other payload verbatim
type UnknownResponse struct {
	Raw json.RawMessage
}

func (TextResponse) primaryResponse()          {}
func (FreeTextResponse) primaryResponse()      {}
func (FoodAnalysisResponse) primaryResponse()  {}
func (RecipesResponse) primaryResponse()       {}
func (DailyAnalysisResponse) primaryResponse() {}
func (UnknownResponse) primaryResponse()       {}

// Reply is a parsed coordinator response
type Reply struct {
	PrimaryAgent   string
	Primary        PrimaryResponse // nil when the response carried none
	Synthesis      string
	Collaborations []string
}

var foodNutrients = []struct{ key, label, unit string }{
	{"calories", "Calories", " kcal"},
	{"protein", "Protein", "g"},
	{"carbs", "Carbs", "g"},
	{"fat", "Fat", "g"},
	{"fiber", "Fiber", "g"},
	{"sugar", "Sugar", "g"},
	{"sodium", "Sodium", "mg"},
}

var dailyNutrients = foodNutrients[:4]

// unknownTextFields are tried in order when an object matches no known shape.
var unknownTextFields = []string{"response", "message", "text", "content", "answer", "ai_insights", "insights", "summary", "error"}

// ParseChatResponse classifies a coordinator response
func ParseChatResponse(resp *api.ChatResponse) Reply {
	if resp == nil {
		return Reply{}
	}
	reply := Reply{
		PrimaryAgent: resp.PrimaryAgent,
		Primary:      ParsePrimaryResponse(resp.PrimaryResponse),
		Synthesis:    strings.TrimSpace(resp.Synthesis),
	}
	for agent := range resp.Collaborations {
		reply.Collaborations = append(reply.Collaborations, agent)
	}
	sort.Strings(reply.Collaborations)
	return reply
}

// ParsePrimaryResponse classifies a raw primary_response value
func ParsePrimaryResponse(raw json.RawMessage) PrimaryResponse {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return TextResponse{Text: text}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return UnknownResponse{Raw: raw}
	}

	if s, ok := obj["response"].(string); ok && strings.TrimSpace(s) != "" {
		return FreeTextResponse{Text: s}
	}
	if fa, ok := obj["food_analysis"].(map[string]any); ok {
		return parseFoodAnalysis(fa, obj)
	}
	if list, ok := obj["recipes"].([]any); ok && len(list) > 0 {
		return parseRecipes(list)
	}
	if da, ok := obj["daily_analysis"].(map[string]any); ok {
		return parseDailyAnalysis(da)
	}
	return UnknownResponse{Raw: raw}
}

func parseFoodAnalysis(fa, parent map[string]any) FoodAnalysisResponse {
	out := FoodAnalysisResponse{}
	out.FoodName, _ = fa["food_name"].(string)
	if q, ok := numberOf(fa["quantity"]); ok {
		out.Quantity = formatNumber(q)
		if unit, _ := fa["unit"].(string); unit != "" {
			out.Quantity += " " + unit
		}
	}
	out.Nutrients = nutrientsOf(fa, foodNutrients)
	out.Insights = textOf(parent["ai_insights"])
	return out
}

func parseRecipes(list []any) RecipesResponse {
	out := RecipesResponse{}
	for _, item := range list {
		switch r := item.(type) {
		case string:
			out.Recipes = append(out.Recipes, Recipe{Name: r})
		case map[string]any:
			recipe := Recipe{}
			recipe.Name, _ = r["name"].(string)
			if recipe.Name == "" {
				recipe.Name, _ = r["title"].(string)
			}
			if recipe.Name == "" {
				recipe.Name = "Untitled recipe"
			}
			recipe.Calories, _ = numberOf(r["calories"])
			recipe.PrepTime, _ = r["prep_time"].(string)
			out.Recipes = append(out.Recipes, recipe)
		}
	}
	return out
}

func parseDailyAnalysis(da map[string]any) DailyAnalysisResponse {
	out := DailyAnalysisResponse{}
	if totals, ok := da["totals"].(map[string]any); ok {
		out.Totals = nutrientsOf(totals, dailyNutrients)
	}
	out.Insights = textOf(da["insights"])
	return out
}

func nutrientsOf(m map[string]any, fields []struct{ key, label, unit string }) []Nutrient {
	var out []Nutrient
	for _, f := range fields {
		v, ok := numberOf(m[f.key])
		if !ok && f.key == "fat" {
			v, ok = numberOf(m["fats"])
		}
		if ok {
			out = append(out, Nutrient{Label: f.label, Value: v, Unit: f.unit})
		}
	}
	return out
}

// textOf flattens a string or a list of strings
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// formatNumber renders integers without decimals and everything else with one
func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatReply renders a reply as display text: an attribution line, the
// primary response, and the synthesis after a horizontal rule.
func FormatReply(r Reply) string {
	body := renderPrimary(r.Primary)
	if body == "" && r.Synthesis == "" {
		return FallbackReply
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🤖 **%s**\n\n", AgentName(r.PrimaryAgent))
	b.WriteString(body)
	if r.Synthesis != "" {
		if body != "" {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(r.Synthesis)
	}
	return b.String()
}

// FormatResponse parses and renders a coordinator response
func FormatResponse(resp *api.ChatResponse) string {
	return FormatReply(ParseChatResponse(resp))
}

func renderPrimary(p PrimaryResponse) string {
	switch r := p.(type) {
	case nil:
		return ""
	case TextResponse:
		return strings.TrimSpace(r.Text)
	case FreeTextResponse:
		return strings.TrimSpace(r.Text)
	case FoodAnalysisResponse:
		return renderFoodAnalysis(r)
	case RecipesResponse:
		return renderRecipes(r)
	case DailyAnalysisResponse:
		return renderDailyAnalysis(r)
	case UnknownResponse:
		return renderUnknown(r)
	}
	return ""
}

func renderNutrients(b *strings.Builder, nutrients []Nutrient) {
	for _, n := range nutrients {
		fmt.Fprintf(b, "\n• %s: %s%s", n.Label, formatNumber(n.Value), n.Unit)
	}
}

func renderFoodAnalysis(r FoodAnalysisResponse) string {
	var b strings.Builder
	b.WriteString("**Nutrition Analysis")
	if r.FoodName != "" {
		b.WriteString(": " + r.FoodName)
	}
	b.WriteString("**")
	if r.Quantity != "" {
		fmt.Fprintf(&b, " (%s)", r.Quantity)
	}
	b.WriteString("\n")
	renderNutrients(&b, r.Nutrients)
	if r.Insights != "" {
		b.WriteString("\n\n" + r.Insights)
	}
	return b.String()
}

func renderRecipes(r RecipesResponse) string {
	var b strings.Builder
	b.WriteString("**Recipe Suggestions:**\n")
	for i, recipe := range r.Recipes {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "\n%d. **%s**", i+1, recipe.Name)
		var details []string
		if recipe.Calories > 0 {
			details = append(details, formatNumber(recipe.Calories)+" kcal")
		}
		if recipe.PrepTime != "" {
			details = append(details, recipe.PrepTime)
		}
		if len(details) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
		}
	}
	return b.String()
}

func renderDailyAnalysis(r DailyAnalysisResponse) string {
	var b strings.Builder
	b.WriteString("**Daily Nutrition Summary:**\n")
	renderNutrients(&b, r.Totals)
	if r.Insights != "" {
		b.WriteString("\n\n**Insights:** " + r.Insights)
	}
	return b.String()
}

func renderUnknown(r UnknownResponse) string {
	var obj map[string]any
	if err := json.Unmarshal(r.Raw, &obj); err == nil {
		if len(obj) == 0 {
			return ""
		}
		for _, field := range unknownTextFields {
			if text := textOf(obj[field]); text != "" {
				return text
			}
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, r.Raw, "", "  "); err != nil {
		return ""
	}
	if s := pretty.String(); s == "[]" || s == `""` {
		return ""
	}
	return "```json\n" + pretty.String() + "\n```"
}
