package command

import "strings"

const (
	fenceOpen  = "```bash\n"
	fenceClose = "\n```"
)

// Extract returns the body of the first ```bash fenced block in raw, or ""
// when there is none. The body ends at the first closing fence after the
// opening one and is returned verbatim, newlines included.
func Extract(raw string) string {
	start := strings.Index(raw, fenceOpen)
	if start < 0 {
		return ""
	}
	rest := raw[start+len(fenceOpen):]

	end := strings.Index(rest, fenceClose)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
