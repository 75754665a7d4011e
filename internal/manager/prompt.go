package manager

import (
	"strings"

	"modelgate/pkg/types"
)

// renderPrompt flattens chat messages into a single prompt for engines that
// take raw text. The trailing assistant header cues the model to answer.
func renderPrompt(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" {
			role = "user"
		}
		b.WriteString("### ")
		b.WriteString(strings.ToUpper(role[:1]) + role[1:])
		b.WriteString(":\n")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("### Assistant:\n")
	return b.String()
}
