package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_NestedCuts(t *testing.T) {
	doc, err := parseDocument("p.md", `# Title

{% cut "Outer" id=outer %}
outer text
{% cut "Inner \"quoted\"" %}
inner text
{% endcut %}
{% endcut %}
tail
`)
	require.NoError(t, err)
	require.Len(t, doc.nodes, 3)

	outer, ok := doc.nodes[1].(*cutNode)
	require.True(t, ok)
	assert.Equal(t, "Outer", outer.title)
	assert.Equal(t, "outer", outer.id)
	assert.False(t, outer.inList)
	require.Len(t, outer.children, 2)
	inner, ok := outer.children[1].(*cutNode)
	require.True(t, ok)
	assert.Equal(t, `Inner "quoted"`, inner.title)
	assert.Empty(t, inner.id)
	assert.Equal(t, textNode{src: "inner text\n"}, inner.children[0])

	assert.Equal(t, textNode{src: "tail\n\n"}, doc.nodes[2])
}

func TestParseDocument_ListCuts(t *testing.T) {
	doc, err := parseDocument("p.md", "- {% cut \"A\" %}\na\n{% endcut %}\n- {% cut \"B\" %}\nb\n{% endcut %}\n")
	require.NoError(t, err)
	require.Len(t, doc.nodes, 2)
	for _, n := range doc.nodes {
		c, ok := n.(*cutNode)
		require.True(t, ok)
		assert.True(t, c.inList)
	}
}

func TestParseDocument_Tabs(t *testing.T) {
	doc, err := parseDocument("p.md", `{% tabs group=platforms variant=regular %}

{% tab "Linux" slug=linux %}
one
{% tabs %}
{% tab "Inner A" %}
a
{% endtab %}
{% endtabs %}
{% endtab %}

{% tab "Mac OS" %}
two
{% endtab %}

{% endtabs %}
`)
	require.NoError(t, err)
	require.Len(t, doc.nodes, 1)
	group, ok := doc.nodes[0].(*tabsNode)
	require.True(t, ok)
	assert.Equal(t, "platforms", group.group)
	assert.Equal(t, "regular", group.variant)
	require.Len(t, group.tabs, 2)
	assert.Equal(t, "linux", group.tabs[0].slug)
	assert.Equal(t, "mac-os", group.tabs[1].slug, "slug derived from the label")

	nested, ok := group.tabs[0].children[1].(*tabsNode)
	require.True(t, ok)
	assert.Equal(t, "inner-a", nested.tabs[0].slug)
}

func TestParseDocument_FencesAreNotParsed(t *testing.T) {
	doc, err := parseDocument("p.md", "```text\n{% cut \"x\" %}\n```\n\n```mermaid\ngraph TD\n  A --> B\n```\n")
	require.NoError(t, err)
	require.Len(t, doc.nodes, 2)
	assert.Equal(t, textNode{src: "```text\n{% cut \"x\" %}\n```\n\n"}, doc.nodes[0])
	assert.Equal(t, mermaidNode{src: "graph TD\n  A --> B\n"}, doc.nodes[1])
}

func TestParseDocument_TermDefinitions(t *testing.T) {
	doc, err := parseDocument("p.md", "Use [API](*api).\n\n[*api]: Interface\n[*sdk]: Kit\n[*api]: Application interface\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "sdk"}, doc.order)
	assert.Equal(t, "Application interface", doc.terms["api"])
	assert.Equal(t, "Kit", doc.terms["sdk"])
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unclosed cut", "{% cut \"A\" %}\ntext\n", "p.md:1: unclosed cut"},
		{"stray end", "{% endcut %}\n", "p.md:1: endcut without matching cut"},
		{"mismatched end", "{% tabs %}\n{% tab \"A\" %}\n{% endtabs %}\n", "p.md:3: endtabs without matching tabs"},
		{"tab outside tabs", "{% tab \"A\" %}\n", "p.md:1: tab outside of tabs"},
		{"text between tabs", "{% tabs %}\nloose\n", "p.md:2: content between tabs"},
		{"empty tabs", "{% tabs %}\n{% endtabs %}\n", "p.md:1: tabs without tab"},
		{"unclosed mermaid", "```mermaid\ngraph TD\n", "unclosed mermaid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDocument("p.md", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseGraph(t *testing.T) {
	g := parseGraph("graph LR\n  A[Start] -->|go| B{Check}\n  B --> C[Done]; \n  A --> C\n")
	require.NotNil(t, g)
	assert.True(t, g.horizontal)
	require.Len(t, g.nodes, 3)
	assert.Equal(t, "Start", g.byID["A"].label)
	assert.Equal(t, "Check", g.byID["B"].label)
	assert.Equal(t, []graphEdge{{"A", "B", "go"}, {"B", "C", ""}, {"A", "C", ""}}, g.edges)
	assert.Equal(t, 0, g.byID["A"].layer)
	assert.Equal(t, 1, g.byID["B"].layer)
	assert.Equal(t, 2, g.byID["C"].layer, "placed after its deepest predecessor")

	assert.Nil(t, parseGraph("sequenceDiagram\n  A->>B: hi\n"))
}

func TestParseGraph_CycleTerminates(t *testing.T) {
	g := parseGraph("graph TD\n  A --> B\n  B --> A\n")
	require.NotNil(t, g)
	assert.Less(t, g.byID["A"].layer, 2)
	assert.Less(t, g.byID["B"].layer, 2)
}
