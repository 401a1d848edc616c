// Package frontmatter splits markdown content files into their YAML
// frontmatter block and body, decodes the frontmatter, and scans the body
// for the headings and fenced code blocks that content rules look at.
package frontmatter

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a frontmatter block.
const Delimiter = "---"

var (
	// ErrNotMapping is returned when the frontmatter is valid YAML but not a mapping.
	ErrNotMapping = errors.New("frontmatter is not a YAML mapping")

	blockPattern = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n`)
	bodyPattern  = regexp.MustCompile(`(?s)\A---\s*\n.*?\n---\s*\n(.*)\z`)
)

// Document is a parsed markdown content file.
type Document struct {
	// Raw is the frontmatter text between the delimiters. Empty when
	// HasFrontmatter is false.
	Raw            string
	HasFrontmatter bool
	Meta           map[string]interface{}
	Body           string

	source []byte
}

// Split returns the frontmatter text and the body. When content has no
// well-formed frontmatter block, ok is false and body is the whole content.
func Split(content string) (fm, body string, ok bool) {
	m := blockPattern.FindStringSubmatch(content)
	if m == nil {
		return "", content, false
	}
	b := bodyPattern.FindStringSubmatch(content)
	if b == nil {
		return m[1], content, true
	}
	return m[1], b[1], true
}

// Parse splits content and decodes its frontmatter. A document without
// frontmatter is not an error; malformed or non-mapping YAML is.
func Parse(content []byte) (*Document, error) {
	fm, body, ok := Split(string(content))
	doc := &Document{
		Raw:            fm,
		HasFrontmatter: ok,
		Body:           body,
		source:         content,
	}
	if !ok {
		return doc, nil
	}

	m, err := decodeMapping(fm)
	if err != nil {
		return doc, err
	}
	doc.Meta = m
	return doc, nil
}

func decodeMapping(raw string) (map[string]interface{}, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return nil, errors.Wrap(err, "invalid YAML frontmatter")
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	m := make(map[string]interface{})
	if err := node.Content[0].Decode(&m); err != nil {
		return nil, errors.Wrap(err, "failed to decode frontmatter")
	}
	return m, nil
}

// Decode unmarshals the frontmatter into v.
func (d *Document) Decode(v interface{}) error {
	if !d.HasFrontmatter {
		return errors.New("missing frontmatter")
	}
	return errors.Wrap(yaml.Unmarshal([]byte(d.Raw), v), "failed to decode frontmatter")
}

// Has reports whether key is present in the frontmatter.
func (d *Document) Has(key string) bool {
	_, ok := d.Meta[key]
	return ok
}

// String returns the frontmatter value for key when it is a string.
func (d *Document) String(key string) (string, bool) {
	s, ok := d.Meta[key].(string)
	return s, ok
}

// Title is the first line of the trimmed body.
func (d *Document) Title() string {
	trimmed := strings.TrimSpace(d.Body)
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimRight(trimmed[:i], "\r")
	}
	return trimmed
}

// BodyLength is the rune count of the trimmed body.
func (d *Document) BodyLength() int {
	return utf8.RuneCountInString(strings.TrimSpace(d.Body))
}

// Length is the rune count of the whole file.
func (d *Document) Length() int {
	return utf8.RuneCount(d.source)
}

// Heading is a markdown ATX or setext heading.
type Heading struct {
	Level int
	Text  string
}

// Outline is the structural summary of a document body.
type Outline struct {
	Headings   []Heading
	CodeBlocks int
}

// HasHeading reports whether a heading with the given level and text exists.
// A level of 0 matches any level.
func (o Outline) HasHeading(level int, title string) bool {
	for _, h := range o.Headings {
		if (level == 0 || h.Level == level) && strings.EqualFold(h.Text, title) {
			return true
		}
	}
	return false
}

// HasHeadingPrefix reports whether a heading with the given level starts
// with prefix, ignoring case. A level of 0 matches any level.
func (o Outline) HasHeadingPrefix(level int, prefix string) bool {
	prefix = strings.ToLower(prefix)
	for _, h := range o.Headings {
		if (level == 0 || h.Level == level) && strings.HasPrefix(strings.ToLower(h.Text), prefix) {
			return true
		}
	}
	return false
}

// Outline parses the markdown and collects headings and fenced code blocks.
// The frontmatter block is consumed by goldmark-meta so it never shows up as
// a thematic break or setext heading.
func (d *Document) Outline() Outline {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	pctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(d.source), parser.WithContext(pctx))

	var out Outline
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			out.Headings = append(out.Headings, Heading{
				Level: node.Level,
				Text:  strings.TrimSpace(inlineText(node, d.source)),
			})
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			out.CodeBlocks++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(inlineText(c, source))
		}
	}
	return buf.String()
}
