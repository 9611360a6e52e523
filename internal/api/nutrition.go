package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Meals lists the meals logged on date (YYYY-MM-DD)
func (c *Client) Meals(ctx context.Context, date string) ([]Meal, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/nutrition/meals", url.Values{"date": {date}}, nil)
	if err != nil {
		return nil, err
	}
	meals, err := decodeList[Meal](raw, "meals")
	if err != nil {
		return nil, fmt.Errorf("failed to decode meals: %w", err)
	}
	return meals, nil
}

// CreateMeal logs a meal and returns it with the server-assigned id
func (c *Client) CreateMeal(ctx context.Context, meal Meal) (*Meal, error) {
	if meal.MealName == "" {
		return nil, fmt.Errorf("meal name is required")
	}
	if meal.Date != "" {
		if err := ValidateDate(meal.Date); err != nil {
			return nil, err
		}
	}
	raw, err := c.doRaw(ctx, http.MethodPost, "/nutrition/meals", nil, meal)
	if err != nil {
		return nil, err
	}

	created, err := decodeObject[Meal](raw, "meal")
	if err != nil {
		return nil, fmt.Errorf("failed to decode meal: %w", err)
	}
	if created.ID == "" {
		var ack struct {
			MealID string `json:"meal_id"`
		}
		if json.Unmarshal(raw, &ack) == nil {
			created.ID = ack.MealID
		}
	}
	if created.MealName == "" {
		id := created.ID
		*created = meal
		created.ID = id
	}
	return created, nil
}

// DeleteMeal deletes a meal entry
func (c *Client) DeleteMeal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/nutrition/meals/"+url.PathEscape(id), nil, nil, nil)
}

// AnalyzeAndSuggest asks the agents to analyze the intake logged on date
func (c *Client) AnalyzeAndSuggest(ctx context.Context, date string) (*Analysis, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	raw, err := c.doRaw(ctx, http.MethodPost, "/nutrition/analyze-and-suggest", nil, map[string]string{"date": date})
	if err != nil {
		return nil, err
	}
	// Only string-valued fields are lifted; everything else stays in Raw.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	out := &Analysis{Date: date, Raw: json.RawMessage(raw)}
	for _, key := range []string{"analysis", "summary", "message"} {
		if json.Unmarshal(fields[key], &out.Analysis) == nil && out.Analysis != "" {
			break
		}
	}
	_ = json.Unmarshal(fields["suggestions"], &out.Suggestions)
	return out, nil
}
