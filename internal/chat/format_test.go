package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/testutil"
)

func chatResponse(t *testing.T, body map[string]any) *api.ChatResponse {
	t.Helper()
	var resp api.ChatResponse
	testutil.JSONUnmarshal(t, testutil.JSONMarshal(t, body), &resp)
	return &resp
}

func TestParsePrimaryResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null", `null`, "<nil>"},
		{"string", `"hello"`, "chat.TextResponse"},
		{"free text", `{"response":"hi there","food_analysis":{}}`, "chat.FreeTextResponse"},
		{"blank free text falls through", `{"response":"  ","food_analysis":{"food_name":"kiwi"}}`, "chat.FoodAnalysisResponse"},
		{"food analysis", `{"food_analysis":{"food_name":"kiwi","calories":42}}`, "chat.FoodAnalysisResponse"},
		{"recipes", `{"recipes":[{"name":"Soup"}]}`, "chat.RecipesResponse"},
		{"empty recipes", `{"recipes":[]}`, "chat.UnknownResponse"},
		{"daily analysis", `{"daily_analysis":{"totals":{"calories":1800}}}`, "chat.DailyAnalysisResponse"},
		{"other object", `{"status":"ok"}`, "chat.UnknownResponse"},
		{"array", `[1,2]`, "chat.UnknownResponse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrimaryResponse(json.RawMessage(tt.raw))
			if name := typeName(got); name != tt.want {
				t.Errorf("ParsePrimaryResponse(%s) = %s, want %s", tt.raw, name, tt.want)
			}
		})
	}
}

func typeName(p PrimaryResponse) string {
	switch p.(type) {
	case nil:
		return "<nil>"
	case TextResponse:
		return "chat.TextResponse"
	case FreeTextResponse:
		return "chat.FreeTextResponse"
	case FoodAnalysisResponse:
		return "chat.FoodAnalysisResponse"
	case RecipesResponse:
		return "chat.RecipesResponse"
	case DailyAnalysisResponse:
		return "chat.DailyAnalysisResponse"
	case UnknownResponse:
		return "chat.UnknownResponse"
	}
	return "?"
}

func TestFormatResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		contains   []string
		notContain []string
		exact      string
	}{
		{
			name:  "plain text",
			body:  testutil.TextReply("coordinator", "Drink more water."),
			exact: "🤖 **AI Coordinator**\n\nDrink more water.",
		},
		{
			name:  "unknown agent",
			body:  testutil.TextReply("sleep_coach", "Go to bed."),
			exact: "🤖 **AI Assistant**\n\nGo to bed.",
		},
		{
			name: "food analysis",
			body: testutil.FoodAnalysisReply(),
			contains: []string{
				"🤖 **Nutrition Calculator**",
				"**Nutrition Analysis: banana** (1 medium)",
				"• Calories: 105 kcal",
				"• Protein: 1.3g",
				"• Carbs: 27g",
				"• Fat: 0.4g",
				"• Fiber: 3.1g",
			},
			notContain: []string{"Sugar", "Sodium"},
		},
		{
			name: "recipes capped at three",
			body: testutil.RecipesReply(5),
			contains: []string{
				"**Recipe Suggestions:**",
				"1. **Lentil Soup** (300 kcal, 20 min)",
				"2. **Greek Salad** (350 kcal, 20 min)",
				"3. **Veggie Stir Fry** (400 kcal, 20 min)",
			},
			notContain: []string{"4.", "Oat Pancakes", "Tofu Curry"},
		},
		{
			name: "daily analysis with insights",
			body: testutil.DailyAnalysisReply("Protein intake is on target."),
			contains: []string{
				"🤖 **Diet Tracker**",
				"**Daily Nutrition Summary:**",
				"• Calories: 2000 kcal",
				"• Protein: 100g",
				"• Carbs: 250g",
				"• Fat: 70g",
				"**Insights:** Protein intake is on target.",
			},
		},
		{
			name: "daily analysis without insights",
			body: testutil.DailyAnalysisReply(""),
			contains: []string{
				"• Calories: 2000 kcal",
				"• Protein: 100g",
				"• Carbs: 250g",
				"• Fat: 70g",
			},
			notContain: []string{"Insights:"},
		},
		{
			name: "synthesis after rule",
			body: map[string]any{
				"primary_agent":    "nutrition_calculator",
				"primary_response": map[string]any{"response": "A banana has 105 kcal."},
				"synthesis":        "Pair it with yogurt for protein.",
			},
			exact: "🤖 **Nutrition Calculator**\n\nA banana has 105 kcal.\n\n---\n\nPair it with yogurt for protein.",
		},
		{
			name: "unknown object with text field",
			body: map[string]any{
				"primary_agent":    "diet_tracker",
				"primary_response": map[string]any{"message": "Meal logged."},
			},
			exact: "🤖 **Diet Tracker**\n\nMeal logged.",
		},
		{
			name: "unknown object dumped",
			body: map[string]any{
				"primary_agent":    "diet_tracker",
				"primary_response": map[string]any{"meal_id": "m1"},
			},
			contains: []string{"```json", `"meal_id": "m1"`},
		},
		{
			name:  "nothing extracted",
			body:  map[string]any{"primary_agent": "coordinator", "primary_response": map[string]any{}},
			exact: FallbackReply,
		},
		{
			name:  "empty body",
			body:  map[string]any{},
			exact: FallbackReply,
		},
		{
			name: "synthesis only",
			body: map[string]any{
				"primary_agent": "coordinator",
				"synthesis":     "Both agents agree.",
			},
			exact: "🤖 **AI Coordinator**\n\nBoth agents agree.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatResponse(chatResponse(t, tt.body))
			if tt.exact != "" && got != tt.exact {
				t.Errorf("FormatResponse() =\n%q\nwant\n%q", got, tt.exact)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("FormatResponse() missing %q in:\n%s", s, got)
				}
			}
			for _, s := range tt.notContain {
				if strings.Contains(got, s) {
					t.Errorf("FormatResponse() unexpectedly contains %q in:\n%s", s, got)
				}
			}
		})
	}
}

func TestFormatResponse_Nil(t *testing.T) {
	if got := FormatResponse(nil); got != FallbackReply {
		t.Errorf("FormatResponse(nil) = %q", got)
	}
}

func TestParseChatResponse_Collaborations(t *testing.T) {
	resp := chatResponse(t, map[string]any{
		"primary_agent":    "coordinator",
		"primary_response": "ok",
		"collaborations": map[string]any{
			"recipe_finder":        map[string]any{},
			"nutrition_calculator": map[string]any{},
		},
	})
	reply := ParseChatResponse(resp)
	want := []string{"nutrition_calculator", "recipe_finder"}
	if strings.Join(reply.Collaborations, ",") != strings.Join(want, ",") {
		t.Errorf("Collaborations = %v, want %v", reply.Collaborations, want)
	}
}

func TestAgentName(t *testing.T) {
	tests := map[string]string{
		"nutrition_calculator": "Nutrition Calculator",
		"recipe_finder":        "Recipe Finder",
		"diet_tracker":         "Diet Tracker",
		"coordinator":          "AI Coordinator",
		"":                     DefaultAgentName,
		"unknown":              DefaultAgentName,
	}
	for id, want := range tests {
		if got := AgentName(id); got != want {
			t.Errorf("AgentName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		105:    "105",
		1.3:    "1.3",
		0.4:    "0.4",
		2000.0: "2000",
		0:      "0",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
