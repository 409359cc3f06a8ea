// Package pathtmpl parses library path templates and resolves them against an
// author, series, and book. A template is a sequence of literals and groups;
// a group renders only when every field it references has a value, so parts
// like the series segment disappear for standalone books.
//
// Syntax: `{` opens a group, `}` closes the innermost open construct, and a
// `{` directly followed by a dotted field path is a field reference. The
// default template
//
//	{{author.name}}/{{series.name}}/{{book.position} - }{{book.name}}
//
// is four groups: one holding the author name, one the series name, one the
// position with a literal suffix, and one the book name.
package pathtmpl

import (
	"math"
	"strconv"
	"strings"

	"github.com/foliarr/foliarr/pkg/models"
	"github.com/pkg/errors"
)

// maxFieldDepth bounds dotted field paths; anything deeper is a config error.
const maxFieldDepth = 3

type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodeField
	nodeGroup
)

type node struct {
	kind     nodeKind
	text     string   // literal text
	path     []string // field path segments
	children []*node
}

// Template is a parsed path template ready for resolution.
type Template struct {
	root *node
	raw  string
}

// Parse compiles a template string. It returns an error for unbalanced
// braces and for field paths nested deeper than three levels.
func Parse(raw string) (*Template, error) {
	root := &node{kind: nodeGroup}
	stack := []*node{root}
	var literal strings.Builder

	flush := func() {
		if literal.Len() == 0 {
			return
		}
		top := stack[len(stack)-1]
		top.children = append(top.children, &node{kind: nodeLiteral, text: literal.String()})
		literal.Reset()
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			flush()
			if path, consumed, ok := scanFieldRef(runes[i:]); ok {
				if len(path) > maxFieldDepth {
					return nil, errors.Errorf("field path %q in template %q nests deeper than %d levels", strings.Join(path, "."), raw, maxFieldDepth)
				}
				top := stack[len(stack)-1]
				top.children = append(top.children, &node{kind: nodeField, path: path})
				i += consumed - 1
				continue
			}
			group := &node{kind: nodeGroup}
			top := stack[len(stack)-1]
			top.children = append(top.children, group)
			stack = append(stack, group)
		case '}':
			flush()
			if len(stack) == 1 {
				return nil, errors.Errorf("unbalanced closing brace in template %q", raw)
			}
			stack = stack[:len(stack)-1]
		default:
			literal.WriteRune(runes[i])
		}
	}
	flush()
	if len(stack) != 1 {
		return nil, errors.Errorf("unclosed group in template %q", raw)
	}

	return &Template{root: root, raw: raw}, nil
}

// scanFieldRef tries to read `{ident.ident...}` starting at a `{`. It only
// succeeds when the body is a plain dotted identifier, which is what keeps
// `{` usable as a group opener everywhere else.
func scanFieldRef(runes []rune) ([]string, int, bool) {
	var body strings.Builder
	for i := 1; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '}':
			if body.Len() == 0 {
				return nil, 0, false
			}
			return strings.Split(body.String(), "."), i + 1, true
		case r == '.' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			body.WriteRune(r)
		default:
			return nil, 0, false
		}
	}
	return nil, 0, false
}

// Input carries the entities a template resolves against. Series may be nil.
type Input struct {
	Author *models.Author
	Series *models.Series
	Book   *models.Book
}

// Resolved is the outcome of applying a template: the relative path for the
// book plus the author and series directory prefixes that lead up to it. The
// prefixes are what gets recorded as audio_loc/book_loc on author and series.
type Resolved struct {
	Path         string
	AuthorPrefix string
	SeriesPrefix string
}

// Resolve renders the template for the given entities. Groups whose fields
// all resolve to empty are dropped wholesale, including their literals.
func (t *Template) Resolve(in Input) (*Resolved, error) {
	if in.Author == nil || in.Book == nil {
		return nil, errors.New("template resolution requires an author and a book")
	}

	var (
		segments     []string
		authorPrefix string
		seriesPrefix string
	)
	for _, seg := range splitSegments(t.root) {
		rendered, used, err := renderGroup(seg, in)
		if err != nil {
			return nil, err
		}
		if rendered == "" {
			continue
		}
		rendered = sanitizeSegment(rendered)
		if rendered == "" {
			continue
		}
		segments = append(segments, rendered)
		if used.author && !used.series && !used.book && authorPrefix == "" {
			authorPrefix = strings.Join(segments, "/")
		}
		if used.series && !used.book {
			seriesPrefix = strings.Join(segments, "/")
		}
	}
	if len(segments) == 0 {
		return nil, errors.Errorf("template %q resolved to an empty path", t.raw)
	}

	return &Resolved{
		Path:         strings.Join(segments, "/"),
		AuthorPrefix: authorPrefix,
		SeriesPrefix: seriesPrefix,
	}, nil
}

// splitSegments slices the top-level children on `/` literals so each path
// segment renders and sanitizes independently.
func splitSegments(root *node) [][]*node {
	var segs [][]*node
	var cur []*node
	for _, child := range root.children {
		if child.kind != nodeLiteral || !strings.Contains(child.text, "/") {
			cur = append(cur, child)
			continue
		}
		parts := strings.Split(child.text, "/")
		for i, part := range parts {
			if i > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			if part != "" {
				cur = append(cur, &node{kind: nodeLiteral, text: part})
			}
		}
	}
	segs = append(segs, cur)
	return segs
}

type usedFields struct {
	author bool
	series bool
	book   bool
}

func renderGroup(nodes []*node, in Input) (string, usedFields, error) {
	var out strings.Builder
	var used usedFields
	for _, n := range nodes {
		switch n.kind {
		case nodeLiteral:
			out.WriteString(n.text)
		case nodeField:
			val, err := resolveField(n.path, in)
			if err != nil {
				return "", used, err
			}
			markUsed(&used, n.path[0])
			out.WriteString(val)
		case nodeGroup:
			rendered, groupUsed, err := renderOptional(n, in)
			if err != nil {
				return "", used, err
			}
			used.author = used.author || groupUsed.author
			used.series = used.series || groupUsed.series
			used.book = used.book || groupUsed.book
			out.WriteString(rendered)
		}
	}
	return out.String(), used, nil
}

// renderOptional renders a group, returning "" when any field inside it is
// empty. A group with no fields at all renders its literals unconditionally.
func renderOptional(group *node, in Input) (string, usedFields, error) {
	var out strings.Builder
	var used usedFields
	hasField := false
	allPresent := true
	for _, n := range group.children {
		switch n.kind {
		case nodeLiteral:
			out.WriteString(n.text)
		case nodeField:
			hasField = true
			val, err := resolveField(n.path, in)
			if err != nil {
				return "", used, err
			}
			if val == "" {
				allPresent = false
				continue
			}
			markUsed(&used, n.path[0])
			out.WriteString(val)
		case nodeGroup:
			rendered, groupUsed, err := renderOptional(n, in)
			if err != nil {
				return "", used, err
			}
			if groupUsed.author || groupUsed.series || groupUsed.book {
				hasField = true
			}
			used.author = used.author || groupUsed.author
			used.series = used.series || groupUsed.series
			used.book = used.book || groupUsed.book
			out.WriteString(rendered)
		}
	}
	if hasField && !allPresent {
		return "", usedFields{}, nil
	}
	return out.String(), used, nil
}

func markUsed(used *usedFields, entity string) {
	switch entity {
	case "author":
		used.author = true
	case "series":
		used.series = true
	case "book":
		used.book = true
	}
}

func resolveField(path []string, in Input) (string, error) {
	if len(path) < 2 {
		return "", errors.Errorf("field path %q needs an entity and a field", strings.Join(path, "."))
	}
	entity, field := path[0], path[1]
	switch entity {
	case "author":
		return authorField(in.Author, field, path)
	case "series":
		return seriesField(in, field, path)
	case "book":
		return bookField(in, field, path)
	default:
		return "", errors.Errorf("unknown entity %q in field path %q", entity, strings.Join(path, "."))
	}
}

func authorField(author *models.Author, field string, path []string) (string, error) {
	switch field {
	case "name":
		return author.Name, nil
	case "key":
		return author.Key, nil
	default:
		return "", errors.Errorf("unknown field path %q", strings.Join(path, "."))
	}
}

// seriesField suppresses series values for series-as-author entries so their
// books do not nest inside a redundant series directory.
func seriesField(in Input, field string, path []string) (string, error) {
	if in.Series == nil || in.Author.IsSeries {
		return "", nil
	}
	switch field {
	case "name":
		return in.Series.Name, nil
	case "key":
		return in.Series.Key, nil
	default:
		return "", errors.Errorf("unknown field path %q", strings.Join(path, "."))
	}
}

func bookField(in Input, field string, path []string) (string, error) {
	book := in.Book
	switch field {
	case "name":
		return book.Name, nil
	case "key":
		return book.Key, nil
	case "position":
		if book.Position == nil || in.Series == nil {
			return "", nil
		}
		width := 1
		if in.Series != nil {
			width = positionWidth(in.Series.MaxPosition())
		}
		return FormatPosition(*book.Position, width), nil
	default:
		return "", errors.Errorf("unknown field path %q", strings.Join(path, "."))
	}
}

// FormatPosition renders a series position zero padded to width integer
// digits. Fractional positions keep their fraction: 1.5 at width 2 is "01.5".
func FormatPosition(pos float64, width int) string {
	intPart, frac, _ := strings.Cut(strconv.FormatFloat(pos, 'f', -1, 64), ".")
	if pad := width - len(intPart); pad > 0 {
		intPart = strings.Repeat("0", pad) + intPart
	}
	if frac != "" {
		return intPart + "." + frac
	}
	return intPart
}

// positionWidth is the digit count of the largest whole position in a series.
func positionWidth(maxPos float64) int {
	width := 1
	for p := math.Floor(maxPos); p >= 10; p /= 10 {
		width++
	}
	return width
}

// sanitizeSegment strips characters that are unsafe in a directory or file
// name and collapses the whitespace left behind.
func sanitizeSegment(seg string) string {
	seg = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return -1
		}
		return r
	}, seg)
	seg = strings.Join(strings.Fields(seg), " ")
	return strings.Trim(seg, ". ")
}
