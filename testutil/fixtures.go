package testutil

// Canned coordinator responses in the shapes the agents produce.

// TextReply is a coordinator response whose primary response is a plain string
func TextReply(agent, text string) map[string]any {
	return map[string]any{
		"coordinator":      "active",
		"primary_agent":    agent,
		"primary_response": text,
		"status":           "success",
	}
}

// FoodAnalysisReply is a nutrition_calculator response for one food
func FoodAnalysisReply() map[string]any {
	return map[string]any{
		"coordinator":   "active",
		"primary_agent": "nutrition_calculator",
		"primary_response": map[string]any{
			"agent": "nutrition_calculator",
			"food_analysis": map[string]any{
				"food_name": "banana",
				"quantity":  1,
				"unit":      "medium",
				"calories":  105,
				"protein":   1.3,
				"carbs":     27,
				"fat":       0.4,
				"fiber":     3.1,
			},
			"status": "success",
		},
		"status": "success",
	}
}

// RecipesReply is a recipe_finder response with n recipes
func RecipesReply(n int) map[string]any {
	names := []string{"Lentil Soup", "Greek Salad", "Veggie Stir Fry", "Oat Pancakes", "Tofu Curry"}
	recipes := make([]any, 0, n)
	for i := 0; i < n; i++ {
		recipes = append(recipes, map[string]any{
			"name":        names[i%len(names)],
			"calories":    300 + 50*i,
			"prep_time":   "20 min",
			"ingredients": []string{"ingredient a", "ingredient b"},
		})
	}
	return map[string]any{
		"coordinator":   "active",
		"primary_agent": "recipe_finder",
		"primary_response": map[string]any{
			"agent":   "recipe_finder",
			"recipes": recipes,
			"status":  "success",
		},
		"status": "success",
	}
}

// DailyAnalysisReply is a diet_tracker daily summary; insights is omitted when empty
func DailyAnalysisReply(insights string) map[string]any {
	analysis := map[string]any{
		"totals": map[string]any{
			"calories": 2000,
			"protein":  100,
			"carbs":    250,
			"fat":      70,
		},
		"meal_breakdown": map[string]any{"breakfast": 500, "lunch": 700, "dinner": 800},
	}
	if insights != "" {
		analysis["insights"] = insights
	}
	return map[string]any{
		"coordinator":   "active",
		"primary_agent": "diet_tracker",
		"primary_response": map[string]any{
			"agent":          "diet_tracker",
			"daily_analysis": analysis,
			"status":         "success",
		},
		"status": "success",
	}
}

// ErrorReply is a coordinator failure delivered with a success status code
func ErrorReply(message string) map[string]any {
	return map[string]any{
		"error":  message,
		"status": "error",
	}
}
