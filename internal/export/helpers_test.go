package export

import (
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
)

func sampleTranscript() *chat.Transcript {
	return chat.NewTranscript(
		&api.Session{ID: "s1", Title: "Breakfast ideas", MessageCount: 2, CreatedAt: "2024-03-01T08:00:00Z"},
		[]api.Turn{
			{
				ID:        "t1",
				Message:   "What is a **good** breakfast?",
				Response:  "🤖 **Nutrition Calculator**\n\n• Oats\n• Eggs",
				AgentName: "nutrition_calculator",
				Timestamp: "2024-03-01T08:30:00",
			},
			{
				ID:        "t2",
				Message:   "And <b>lunch</b>?",
				Response:  "A lentil salad.",
				AgentName: "recipe_finder",
				Timestamp: "2024-03-01T12:00:00",
			},
		},
	)
}

func emptyTranscript() *chat.Transcript {
	return chat.NewTranscript(nil, nil)
}
