// Package markup escapes dynamic text for chat markdown surfaces.
package markup

import "strings"

var escaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// Escape neutralizes the markdown control characters that corrupt
// formatting when user or remote text is embedded into a message.
func Escape(s string) string {
	return escaper.Replace(s)
}
