package chat

import (
	"strings"
	"testing"
)

func TestToMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"h1", "# Meal plan", "<h1>Meal plan</h1>"},
		{"h2", "## Breakfast", "<h2>Breakfast</h2>"},
		{"h3", "### Oats", "<h3>Oats</h3>"},
		{"bold", "**Protein** matters", "<p><strong>Protein</strong> matters</p>"},
		{"italic", "eat *slowly*", "<p>eat <em>slowly</em></p>"},
		{"bold before italic", "**a** and *b*", "<p><strong>a</strong> and <em>b</em></p>"},
		{"bullets wrapped once", "• apples\n• pears", "<ul><li>apples</li><li>pears</li></ul>"},
		{"rule", "above\n\n---\n\nbelow", "<p>above</p>\n<hr>\n<p>below</p>"},
		{"line breaks", "one\ntwo", "<p>one<br>two</p>"},
		{"paragraphs", "first\n\n\nsecond", "<p>first</p>\n<p>second</p>"},
		{"heading then list", "## Snacks\n\n• nuts\n• fruit", "<h2>Snacks</h2>\n<ul><li>nuts</li><li>fruit</li></ul>"},
		{"separate lists", "• a\n\n• b", "<ul><li>a</li></ul>\n<ul><li>b</li></ul>"},
		{"crlf", "one\r\ntwo", "<p>one<br>two</p>"},
		{"empty", "", ""},
		{"blank", "\n\n  \n", ""},
		{"hash without space", "#hashtag", "<p>#hashtag</p>"},
		{"heading then body", "### T\nbody1\nbody2", "<h3>T</h3>\n<p>body1<br>body2</p>"},
		{"list then trailing text", "• a\n• b\ntrailing", "<ul><li>a</li><li>b</li></ul>\n<p>trailing</p>"},
		{"text around rule", "above\n---\nbelow", "<p>above</p>\n<hr>\n<p>below</p>"},
		{"text before heading", "intro\n## Lunch\nsoup", "<p>intro</p>\n<h2>Lunch</h2>\n<p>soup</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToMarkup(tt.in); got != tt.want {
				t.Errorf("ToMarkup(%q) =\n%q\nwant\n%q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToMarkup_FormattedReply(t *testing.T) {
	src := "🤖 **Diet Tracker**\n\n**Daily Nutrition Summary:**\n\n• Calories: 2000 kcal\n• Protein: 100g\n\n---\n\nKeep it up."
	got := ToMarkup(src)

	for _, want := range []string{
		"<p>🤖 <strong>Diet Tracker</strong></p>",
		"<p><strong>Daily Nutrition Summary:</strong></p>",
		"<ul><li>Calories: 2000 kcal</li><li>Protein: 100g</li></ul>",
		"<hr>",
		"<p>Keep it up.</p>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToMarkup() missing %q in:\n%s", want, got)
		}
	}
}

func TestToMarkup_NotIdempotent(t *testing.T) {
	once := ToMarkup("one\ntwo")
	if twice := ToMarkup(once); twice == once {
		t.Errorf("expected a second pass to change the output, got %q", twice)
	}
}
