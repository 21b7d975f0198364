package docs

import (
	"fmt"
	"regexp"
	"strings"
)

// Block directives recognised in page sources:
//
//	{% cut "Title" id=basic-cut %} ... {% endcut %}
//	- {% cut "Title" %} ... {% endcut %}        (cut as a list item)
//	{% tabs group=platforms variant=radio %}
//	{% tab "Linux" slug=linux %} ... {% endtab %}
//	{% endtabs %}
//	```mermaid ... ```
//	[*key]: definition
var (
	reCut      = regexp.MustCompile(`^\s*(- )?\{%\s*cut\s+"((?:[^"\\]|\\.)*)"\s*(.*?)\s*%\}\s*$`)
	reTabs     = regexp.MustCompile(`^\s*\{%\s*tabs\s*(.*?)\s*%\}\s*$`)
	reTab      = regexp.MustCompile(`^\s*\{%\s*tab\s+"((?:[^"\\]|\\.)*)"\s*(.*?)\s*%\}\s*$`)
	reEnd      = regexp.MustCompile(`^\s*\{%\s*(endcut|endtabs|endtab)\s*%\}\s*$`)
	reTermDef  = regexp.MustCompile(`^\[\*([A-Za-z0-9_\-]+)\]:\s*(.+)$`)
	reAttr     = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_\-]*)=("(?:[^"\\]|\\.)*"|\S+)`)
	reFence    = regexp.MustCompile("^\\s*(```+|~~~+)\\s*([A-Za-z0-9_\\-]*)")
	reTermLink = regexp.MustCompile(`\[([^\]]+)\]\(\*([A-Za-z0-9_\-]+)\)`)
)

type node interface{ isNode() }

type textNode struct{ src string }

type cutNode struct {
	title    string
	id       string
	inList   bool
	children []node
}

type tabsNode struct {
	group   string
	variant string
	tabs    []*tabNode
}

type tabNode struct {
	label    string
	slug     string
	children []node
}

type mermaidNode struct{ src string }

func (textNode) isNode()    {}
func (*cutNode) isNode()    {}
func (*tabsNode) isNode()   {}
func (*tabNode) isNode()    {}
func (mermaidNode) isNode() {}

// document is a parsed page source.
type document struct {
	nodes []node
	terms map[string]string
	order []string
}

type frame struct {
	kind     string
	line     int
	children *[]node
	tabs     *tabsNode
}

func parseAttrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range reAttr.FindAllStringSubmatch(s, -1) {
		v := m[2]
		if strings.HasPrefix(v, `"`) {
			v = unquote(v[1 : len(v)-1])
		}
		out[m[1]] = v
	}
	return out
}

func unquote(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

// parseDocument splits a source into markdown runs and directive blocks.
func parseDocument(name, src string) (*document, error) {
	doc := &document{terms: make(map[string]string)}
	stack := []*frame{{kind: "root", children: &doc.nodes}}
	var text strings.Builder

	flush := func() {
		if strings.TrimSpace(text.String()) == "" {
			text.Reset()
			return
		}
		top := stack[len(stack)-1]
		*top.children = append(*top.children, textNode{src: text.String()})
		text.Reset()
	}
	errorf := func(line int, format string, args ...any) error {
		return fmt.Errorf("%s:%d: %s", name, line, fmt.Sprintf(format, args...))
	}

	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	fence := ""
	var diagram *strings.Builder

	for i, line := range lines {
		lineNo := i + 1

		if diagram != nil {
			if strings.TrimSpace(line) == fence {
				top := stack[len(stack)-1]
				*top.children = append(*top.children, mermaidNode{src: diagram.String()})
				diagram, fence = nil, ""
				continue
			}
			diagram.WriteString(line)
			diagram.WriteByte('\n')
			continue
		}
		if fence != "" {
			if strings.TrimSpace(line) == fence {
				fence = ""
			}
			text.WriteString(line)
			text.WriteByte('\n')
			continue
		}
		if m := reFence.FindStringSubmatch(line); m != nil {
			fence = m[1]
			if m[2] == "mermaid" {
				flush()
				diagram = &strings.Builder{}
				continue
			}
			text.WriteString(line)
			text.WriteByte('\n')
			continue
		}

		top := stack[len(stack)-1]
		switch {
		case reCut.MatchString(line):
			m := reCut.FindStringSubmatch(line)
			flush()
			attrs := parseAttrs(m[3])
			c := &cutNode{title: unquote(m[2]), id: attrs["id"], inList: m[1] != ""}
			*top.children = append(*top.children, c)
			stack = append(stack, &frame{kind: "cut", line: lineNo, children: &c.children})

		case reTabs.MatchString(line):
			m := reTabs.FindStringSubmatch(line)
			flush()
			attrs := parseAttrs(m[1])
			t := &tabsNode{group: attrs["group"], variant: attrs["variant"]}
			*top.children = append(*top.children, t)
			stack = append(stack, &frame{kind: "tabs", line: lineNo, tabs: t})

		case reTab.MatchString(line):
			if top.kind != "tabs" {
				return nil, errorf(lineNo, "tab outside of tabs")
			}
			m := reTab.FindStringSubmatch(line)
			attrs := parseAttrs(m[2])
			t := &tabNode{label: unquote(m[1]), slug: attrs["slug"]}
			if t.slug == "" {
				t.slug = slugify(t.label)
			}
			top.tabs.tabs = append(top.tabs.tabs, t)
			stack = append(stack, &frame{kind: "tab", line: lineNo, children: &t.children})

		case reEnd.MatchString(line):
			want := strings.TrimPrefix(reEnd.FindStringSubmatch(line)[1], "end")
			if top.kind != want {
				return nil, errorf(lineNo, "end%s without matching %s", want, want)
			}
			flush()
			if want == "tabs" && len(top.tabs.tabs) == 0 {
				return nil, errorf(top.line, "tabs without tab")
			}
			stack = stack[:len(stack)-1]

		case reTermDef.MatchString(line):
			m := reTermDef.FindStringSubmatch(line)
			if _, dup := doc.terms[m[1]]; !dup {
				doc.order = append(doc.order, m[1])
			}
			doc.terms[m[1]] = strings.TrimSpace(m[2])

		default:
			if top.kind == "tabs" {
				if strings.TrimSpace(line) != "" {
					return nil, errorf(lineNo, "content between tabs must be inside a tab")
				}
				continue
			}
			text.WriteString(line)
			text.WriteByte('\n')
		}
	}

	if diagram != nil {
		return nil, errorf(len(lines), "unclosed mermaid block")
	}
	if len(stack) > 1 {
		top := stack[len(stack)-1]
		return nil, errorf(top.line, "unclosed %s", top.kind)
	}
	flush()
	return doc, nil
}

var reNonSlug = regexp.MustCompile(`[^a-z0-9а-яё]+`)

func slugify(s string) string {
	return strings.Trim(reNonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
