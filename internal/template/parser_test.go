package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ValidInput(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		checkFunc func(t *testing.T, tmpl *Template)
	}{
		{
			name:      "plain text",
			input:     "title: CPU",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				text, ok := tmpl.Nodes[0].(*TextNode)
				require.True(t, ok, "expected TextNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "title: CPU", text.Text)
			},
		},
		{
			name:      "simple expression",
			input:     "title: @{ datasource }@ usage",
			wantNodes: 3,
			checkFunc: func(t *testing.T, tmpl *Template) {
				text1, ok := tmpl.Nodes[0].(*TextNode)
				require.True(t, ok, "node[0]: expected TextNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "title: ", text1.Text)

				expr, ok := tmpl.Nodes[1].(*ExprNode)
				require.True(t, ok, "node[1]: expected ExprNode, got %T", tmpl.Nodes[1])
				assert.Equal(t, "datasource", expr.Expr)

				text2, ok := tmpl.Nodes[2].(*TextNode)
				require.True(t, ok, "node[2]: expected TextNode, got %T", tmpl.Nodes[2])
				assert.Equal(t, " usage", text2.Text)
			},
		},
		{
			name: "for loop",
			input: `{% for label in labels %}
- @{ label }@
{% endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, []string{"label"}, forBlock.VarNames)
				assert.Equal(t, "labels", forBlock.IterExpr)
				require.Len(t, forBlock.Body, 3)
				expr, ok := forBlock.Body[1].(*ExprNode)
				require.True(t, ok, "body[1]: expected ExprNode, got %T", forBlock.Body[1])
				assert.Equal(t, "label", expr.Expr)
			},
		},
		{
			name:      "for loop with list",
			input:     `{% for x in ["a", "b", "c"]: %}@{ x }@{% endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, []string{"x"}, forBlock.VarNames)
				assert.Equal(t, `["a", "b", "c"]`, forBlock.IterExpr)
			},
		},
		{
			name:      "for loop unpacking",
			input:     `{% for name, panel in panels.items() %}@{ name }@{% endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, []string{"name", "panel"}, forBlock.VarNames)
				assert.Equal(t, "panels.items()", forBlock.IterExpr)
			},
		},
		{
			name: "if-else",
			input: `{% if condition %}
yes
{% else %}
no
{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "condition", ifBlock.Condition)
				assert.Len(t, ifBlock.Body, 1)
				require.NotNil(t, ifBlock.Else)
				assert.Len(t, ifBlock.Else, 1)
			},
		},
		{
			name: "if-elif",
			input: `{% if a: %}
A
{% elif b: %}
B
{% elif c: %}
C
{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "a", ifBlock.Condition)
				require.Len(t, ifBlock.ElseIfs, 2)
				assert.Equal(t, "b", ifBlock.ElseIfs[0].Condition)
				assert.Equal(t, "c", ifBlock.ElseIfs[1].Condition)
				assert.Nil(t, ifBlock.Else)
			},
		},
		{
			name:      "empty else",
			input:     `{% if a %}A{% else %}{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.NotNil(t, ifBlock.Else)
				assert.Empty(t, ifBlock.Else)
			},
		},
		{
			name: "nested blocks",
			input: `{% for x in items %}
{% if x > 0 %}
@{ x }@
{% endif %}
{% endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])

				var foundIf bool
				for _, node := range forBlock.Body {
					if _, ok := node.(*IfBlock); ok {
						foundIf = true
						break
					}
				}
				assert.True(t, foundIf, "expected nested IfBlock in ForBlock body")
			},
		},
		{
			name:      "comments are dropped",
			input:     "{# Panel template: 5 #}\ntitle: x",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				text, ok := tmpl.Nodes[0].(*TextNode)
				require.True(t, ok, "expected TextNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "title: x", text.Text)
			},
		},
		{
			name:      "reference expression",
			input:     `@{ targets["5_t0"] | to_nice_yaml | indent(2, false) }@`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				expr, ok := tmpl.Nodes[0].(*ExprNode)
				require.True(t, ok, "expected ExprNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, `targets["5_t0"] | to_nice_yaml | indent(2, false)`, expr.Expr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseString(tt.input, "test.yml.j2")
			require.NoError(t, err)
			require.Len(t, tmpl.Nodes, tt.wantNodes)
			if tt.checkFunc != nil {
				tt.checkFunc(t, tmpl)
			}
		})
	}
}

func TestParser_ForWithoutColon(t *testing.T) {
	// Both with and without colon should work
	inputs := []string{
		`{% for x in items: %}@{ x }@{% endfor %}`,
		`{% for x in items %}@{ x }@{% endfor %}`,
	}

	for _, input := range inputs {
		t.Run(input[:20]+"...", func(t *testing.T) {
			tmpl, err := ParseString(input, "test.yml.j2")
			require.NoError(t, err, "input %q", input)

			forBlock, ok := tmpl.Nodes[0].(*ForBlock)
			require.True(t, ok, "input %q: expected ForBlock, got %T", input, tmpl.Nodes[0])
			assert.Equal(t, []string{"x"}, forBlock.VarNames)
			assert.Equal(t, "items", forBlock.IterExpr)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		unmatched bool
	}{
		{
			name: "unmatched for",
			input: `{% for x in items %}
@{ x }@`,
			unmatched: true,
		},
		{
			name: "unmatched endfor",
			input: `@{ x }@
{% endfor %}`,
			unmatched: true,
		},
		{
			name: "unmatched if",
			input: `{% if condition %}
yes`,
			unmatched: true,
		},
		{
			name: "unmatched else",
			input: `yes
{% else %}
no`,
			unmatched: true,
		},
		{
			name:      "endif closing for",
			input:     `{% for x in items %}{% endif %}`,
			unmatched: true,
		},
		{name: "invalid statement", input: `{% while true %}`},
		{name: "malformed for", input: `{% for in items %}{% endfor %}`},
		{name: "if without condition", input: `{% if %}x{% endif %}`},
		{name: "elif after else", input: `{% if a %}{% else %}{% elif b %}{% endif %}`},
		{name: "duplicate else", input: `{% if a %}{% else %}{% else %}{% endif %}`},
		{name: "trailing content on endfor", input: `{% for x in y %}{% endfor x %}`},
		{name: "empty expression", input: `@{ }@`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input, "test.yml.j2")
			require.Error(t, err)

			if tt.unmatched {
				_, ok := err.(*UnmatchedBlockError)
				assert.True(t, ok, "expected UnmatchedBlockError, got %T: %v", err, err)
			}
		})
	}
}

func TestParser_ErrorPosition(t *testing.T) {
	_, err := ParseString("a\nb\n{% bogus %}", "panels/cpu.yml.j2")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, Position{File: "panels/cpu.yml.j2", Line: 3, Column: 1}, perr.Position())
	assert.Equal(t, `panels/cpu.yml.j2:3:1: unknown statement "bogus"`, err.Error())
}
