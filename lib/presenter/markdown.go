// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParserInstance
}

// RenderHTML converts agent markdown into the HTML subset Telegram
// accepts: b, i, s, code, pre, a and blockquote. Headings become bold
// lines, list items become bullet or numbered lines, tables become
// preformatted rows. Line breaks are literal newlines. All text is
// escaped, including raw HTML in the source.
func RenderHTML(markdown string) string {
	if markdown == "" {
		return ""
	}
	source := []byte(markdown)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	renderer := &htmlRenderer{source: source}
	_ = ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// htmlRenderer walks a goldmark AST writing Telegram HTML. Blocks are
// separated by blank lines; the first block inside a container (list
// item, blockquote) is not.
type htmlRenderer struct {
	source []byte
	output strings.Builder

	trailingNewlines int
	atBlockStart     bool

	listStack []listState
}

type listState struct {
	ordered bool
	counter int
}

func (renderer *htmlRenderer) write(s string) {
	if s == "" {
		return
	}
	renderer.output.WriteString(s)
	renderer.atBlockStart = false
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		renderer.trailingNewlines += len(s)
	} else {
		renderer.trailingNewlines = len(s) - len(trimmed)
	}
}

func (renderer *htmlRenderer) writeEscaped(content []byte) {
	renderer.write(html.EscapeString(string(content)))
}

// open writes a container's opening markup; the container's first block
// follows it without separation.
func (renderer *htmlRenderer) open(markup string) {
	renderer.write(markup)
	renderer.atBlockStart = true
}

func (renderer *htmlRenderer) ensureNewline() {
	if renderer.output.Len() > 0 && renderer.trailingNewlines < 1 {
		renderer.write("\n")
	}
}

// separate starts a new block.
func (renderer *htmlRenderer) separate() {
	if renderer.atBlockStart {
		renderer.atBlockStart = false
		return
	}
	if renderer.output.Len() == 0 {
		return
	}
	for renderer.trailingNewlines < 2 {
		renderer.write("\n")
	}
}

func (renderer *htmlRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			renderer.separate()
		}

	case ast.KindHeading:
		if entering {
			renderer.separate()
			renderer.write("<b>")
		} else {
			renderer.write("</b>")
		}

	case ast.KindFencedCodeBlock:
		if entering {
			block := node.(*ast.FencedCodeBlock)
			renderer.renderCode(block.Lines(), string(block.Language(renderer.source)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock, ast.KindHTMLBlock:
		if entering {
			renderer.renderCode(node.Lines(), "")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			renderer.separate()
			renderer.open("<blockquote>")
		} else {
			renderer.write("</blockquote>")
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			if node.Parent() != nil && node.Parent().Kind() == ast.KindListItem {
				renderer.ensureNewline()
			} else {
				renderer.separate()
			}
			renderer.listStack = append(renderer.listStack, listState{
				ordered: list.IsOrdered(),
				counter: list.Start,
			})
		} else if len(renderer.listStack) > 0 {
			renderer.listStack = renderer.listStack[:len(renderer.listStack)-1]
		}

	case ast.KindListItem:
		if entering {
			renderer.enterListItem(node)
		}

	case ast.KindThematicBreak:
		if entering {
			renderer.separate()
			renderer.write("──────")
		}

	case ast.KindText:
		if entering {
			segment := node.(*ast.Text)
			renderer.writeEscaped(segment.Segment.Value(renderer.source))
			if segment.SoftLineBreak() || segment.HardLineBreak() {
				renderer.write("\n")
			}
		}

	case ast.KindString:
		if entering {
			renderer.writeEscaped(node.(*ast.String).Value)
		}

	case ast.KindEmphasis:
		tag := "i"
		if node.(*ast.Emphasis).Level >= 2 {
			tag = "b"
		}
		if entering {
			renderer.write("<" + tag + ">")
		} else {
			renderer.write("</" + tag + ">")
		}

	case ast.KindCodeSpan:
		if entering {
			renderer.write("<code>" + html.EscapeString(renderer.plainText(node)) + "</code>")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		destination := string(node.(*ast.Link).Destination)
		if destination == "" {
			break
		}
		if entering {
			renderer.write(`<a href="` + html.EscapeString(destination) + `">`)
		} else {
			renderer.write("</a>")
		}

	case ast.KindAutoLink:
		if entering {
			link := node.(*ast.AutoLink)
			renderer.write(`<a href="` + html.EscapeString(string(link.URL(renderer.source))) + `">` +
				html.EscapeString(string(link.Label(renderer.source))) + "</a>")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			label := renderer.plainText(node)
			if label == "" {
				label = "image"
			}
			renderer.write(`<a href="` + html.EscapeString(string(image.Destination)) + `">` + html.EscapeString(label) + "</a>")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			segments := node.(*ast.RawHTML).Segments
			for index := 0; index < segments.Len(); index++ {
				segment := segments.At(index)
				renderer.writeEscaped(segment.Value(renderer.source))
			}
		}

	case extast.KindStrikethrough:
		if entering {
			renderer.write("<s>")
		} else {
			renderer.write("</s>")
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				renderer.write("[x] ")
			} else {
				renderer.write("[ ] ")
			}
		}

	case extast.KindTable:
		if entering {
			renderer.renderTable(node)
			return ast.WalkSkipChildren, nil
		}
	}

	return ast.WalkContinue, nil
}

func (renderer *htmlRenderer) enterListItem(node ast.Node) {
	if len(renderer.listStack) == 0 {
		return
	}
	if node.PreviousSibling() != nil {
		renderer.ensureNewline()
	}
	top := &renderer.listStack[len(renderer.listStack)-1]
	bullet := "• "
	if top.ordered {
		bullet = strconv.Itoa(top.counter) + ". "
		top.counter++
	}
	indent := strings.Repeat("  ", len(renderer.listStack)-1)
	renderer.open(indent + bullet)
}

func (renderer *htmlRenderer) renderCode(lines *text.Segments, language string) {
	var code strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		code.Write(segment.Value(renderer.source))
	}
	escaped := html.EscapeString(strings.TrimRight(code.String(), "\n"))

	renderer.separate()
	if language != "" {
		renderer.write(`<pre><code class="language-` + html.EscapeString(language) + `">` + escaped + "</code></pre>")
		return
	}
	renderer.write("<pre>" + escaped + "</pre>")
}

// renderTable writes rows as "cell | cell" lines in a pre block.
func (renderer *htmlRenderer) renderTable(table ast.Node) {
	var rows []string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(renderer.plainText(cell)))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	renderer.separate()
	renderer.write("<pre>" + html.EscapeString(strings.Join(rows, "\n")) + "</pre>")
}

// plainText concatenates the literal text beneath node.
func (renderer *htmlRenderer) plainText(node ast.Node) string {
	var builder strings.Builder
	_ = ast.Walk(node, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch child := child.(type) {
		case *ast.Text:
			builder.Write(child.Segment.Value(renderer.source))
			if child.SoftLineBreak() {
				builder.WriteByte(' ')
			}
		case *ast.String:
			builder.Write(child.Value)
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}
