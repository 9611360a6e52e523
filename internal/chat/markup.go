package chat

import (
	"regexp"
	"strings"
)

var (
	h3Pattern       = regexp.MustCompile(`(?m)^### (.+)$`)
	h2Pattern       = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Pattern       = regexp.MustCompile(`(?m)^# (.+)$`)
	boldPattern     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.+?)\*`)
	bulletPattern   = regexp.MustCompile(`(?m)^• (.+)$`)
	listRunPattern  = regexp.MustCompile(`(?:<li>.*</li>\n?)+`)
	rulePattern     = regexp.MustCompile(`(?m)^---$`)
	paragraphBreaks = regexp.MustCompile(`\n{2,}`)
)

// blockPrefixes mark lines that are already block-level markup
var blockPrefixes = []string{"<h1>", "<h2>", "<h3>", "<ul>", "<hr>"}

// ToMarkup converts the lightweight text markup used in replies into HTML.
// Passes run in a fixed order: headings, bold, italic, bullets, list
// wrapping, rules, then paragraphs and line breaks. Apply it once to source
// text only; running it on its own output is not supported.
func ToMarkup(src string) string {
	out := strings.ReplaceAll(src, "\r\n", "\n")

	out = h3Pattern.ReplaceAllString(out, "<h3>$1</h3>")
	out = h2Pattern.ReplaceAllString(out, "<h2>$1</h2>")
	out = h1Pattern.ReplaceAllString(out, "<h1>$1</h1>")

	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicPattern.ReplaceAllString(out, "<em>$1</em>")

	out = bulletPattern.ReplaceAllString(out, "<li>$1</li>")
	out = listRunPattern.ReplaceAllStringFunc(out, func(run string) string {
		trailing := ""
		if strings.HasSuffix(run, "\n") {
			trailing = "\n"
		}
		items := strings.Split(strings.TrimSuffix(run, "\n"), "\n")
		return "<ul>" + strings.Join(items, "") + "</ul>" + trailing
	})

	out = rulePattern.ReplaceAllString(out, "<hr>")

	chunks := paragraphBreaks.Split(strings.TrimSpace(out), -1)
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, paragraphs(chunk)...)
	}
	return strings.Join(blocks, "\n")
}

// paragraphs splits a chunk into its block elements and the text runs
// between them. Only the text runs become <p> with <br> line breaks.
func paragraphs(chunk string) []string {
	var (
		blocks []string
		run    []string
	)
	flush := func() {
		if len(run) > 0 {
			blocks = append(blocks, "<p>"+strings.Join(run, "<br>")+"</p>")
			run = nil
		}
	}
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case isBlock(line):
			flush()
			blocks = append(blocks, line)
		default:
			run = append(run, line)
		}
	}
	flush()
	return blocks
}

func isBlock(line string) bool {
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
