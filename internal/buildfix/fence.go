package buildfix

import (
	"strings"
)

// CodeBlock is one fenced block from a fixer response.
type CodeBlock struct {
	Lang    string `json:"lang,omitempty"`
	Content string `json:"content"`
}

// ExtractCodeBlocks returns the fenced (``` or ~~~) blocks of text in
// order. An unterminated trailing fence is ignored.
func ExtractCodeBlocks(text string) []CodeBlock {
	var blocks []CodeBlock
	var (
		open  bool
		fence string
		lang  string
		body  []string
	)
	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if !open {
			for _, f := range []string{"```", "~~~"} {
				if strings.HasPrefix(trimmed, f) {
					open, fence = true, f
					lang = strings.TrimSpace(strings.TrimLeft(trimmed, f[:1]))
					body = body[:0]
					break
				}
			}
			continue
		}
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
			content := strings.Join(body, "\n")
			if content != "" {
				content += "\n"
			}
			blocks = append(blocks, CodeBlock{Lang: lang, Content: content})
			open = false
			continue
		}
		body = append(body, line)
	}
	return blocks
}
