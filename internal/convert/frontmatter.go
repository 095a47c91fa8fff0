package convert

import (
	"bytes"
	"strings"

	"github.com/nao1215/markdown"
)

// InjectFrontMatter prepends a YAML front matter block with the title and
// source URL, a level-1 heading repeating the title and a "Source" link back
// to the original page.
func InjectFrontMatter(body, title, sourceURL string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("title: \"" + yamlEscape(title) + "\"\n")
	sb.WriteString("source_url: \"" + yamlEscape(sourceURL) + "\"\n")
	sb.WriteString("---\n\n")

	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1(singleLine(title))
	md.PlainText("")
	md.PlainText(markdown.Link("Source", sourceURL))
	md.PlainText("")
	sb.WriteString(md.String())
	sb.WriteString("\n")

	sb.WriteString(body)
	return sb.String()
}

// yamlEscape makes s safe inside a double-quoted YAML scalar on one line.
func yamlEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(singleLine(s))
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
