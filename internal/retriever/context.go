package retriever

import "strings"

// BuildContext concatenates match texts into the single grounding blob
// passed to the language model. URL lists from match metadata are
// appended so the model can surface them as media links when relevant.
func BuildContext(matches []Match) string {
	var b strings.Builder
	for _, m := range matches {
		if m.Text != "" {
			b.WriteString(m.Text)
			b.WriteString("\n\n")
		}
		if len(m.URLs) > 0 {
			b.WriteString("Possible relevant URLs:\n")
			b.WriteString(strings.Join(m.URLs, "\n"))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
