package template

import (
	"fmt"
	"strings"

	starctx "github.com/leapstack-labs/dashgen/internal/starlark"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Renderer walks a parsed Template and writes its output.
type Renderer struct {
	ctx  *starctx.ExecutionContext
	file string
	out  strings.Builder
}

// NewRenderer creates a renderer evaluating expressions against ctx.
func NewRenderer(ctx *starctx.ExecutionContext, file string) *Renderer {
	return &Renderer{ctx: ctx, file: file}
}

// RenderString parses input with DefaultSyntax and renders it against ctx.
func RenderString(input, file string, ctx *starctx.ExecutionContext) (string, error) {
	tmpl, err := ParseString(input, file)
	if err != nil {
		return "", err
	}
	return Render(tmpl, ctx)
}

// Render renders a parsed template against ctx.
func Render(tmpl *Template, ctx *starctx.ExecutionContext) (string, error) {
	r := NewRenderer(ctx, tmpl.File)
	if err := r.renderNodes(tmpl.Nodes, nil); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

func (r *Renderer) renderNodes(nodes []Node, locals starlark.StringDict) error {
	for _, node := range nodes {
		if err := r.renderNode(node, locals); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(node Node, locals starlark.StringDict) error {
	switch n := node.(type) {
	case *TextNode:
		r.out.WriteString(n.Text)
		return nil

	case *ExprNode:
		s, err := r.ctx.EvalPipelineString(n.Expr, r.file, n.Pos().Line, locals)
		if err != nil {
			return WrapRenderError(n.Pos(), "expression failed", err)
		}
		r.out.WriteString(s)
		return nil

	case *ForBlock:
		return r.renderFor(n, locals)

	case *IfBlock:
		return r.renderIf(n, locals)

	default:
		return NewRenderErrorf(node.Pos(), "unexpected node type %T", node)
	}
}

func (r *Renderer) renderFor(block *ForBlock, locals starlark.StringDict) error {
	iterVal, err := r.ctx.EvalPipeline(block.IterExpr, r.file, block.Pos().Line, locals)
	if err != nil {
		return WrapRenderError(block.Pos(), "for loop iterator failed", err)
	}

	iterable, ok := iterVal.(starlark.Iterable)
	if !ok {
		return NewRenderErrorf(block.Pos(), "cannot iterate over %s", iterVal.Type())
	}

	// Items are collected first so that loop.last and loop.length are known.
	var items []starlark.Value
	iter := iterable.Iterate()
	var x starlark.Value
	for iter.Next(&x) {
		items = append(items, x)
	}
	iter.Done()

	for i, item := range items {
		scope := make(starlark.StringDict, len(locals)+len(block.VarNames)+1)
		for k, v := range locals {
			scope[k] = v
		}
		if err := bindLoopVars(scope, block.VarNames, item); err != nil {
			return WrapRenderError(block.Pos(), "for loop unpacking failed", err)
		}
		scope["loop"] = loopInfo(i, len(items))

		if err := r.renderNodes(block.Body, scope); err != nil {
			return err
		}
	}
	return nil
}

// bindLoopVars assigns item to a single loop variable, or unpacks it across several.
func bindLoopVars(scope starlark.StringDict, names []string, item starlark.Value) error {
	if len(names) == 1 {
		scope[names[0]] = item
		return nil
	}

	seq, ok := item.(starlark.Indexable)
	if !ok {
		return fmt.Errorf("cannot unpack %s into %d variables", item.Type(), len(names))
	}
	if seq.Len() != len(names) {
		return fmt.Errorf("cannot unpack %d values into %d variables", seq.Len(), len(names))
	}
	for i, name := range names {
		scope[name] = seq.Index(i)
	}
	return nil
}

// loopInfo builds the `loop` struct exposed inside for bodies.
func loopInfo(index, length int) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"index":     starlark.MakeInt(index + 1),
		"index0":    starlark.MakeInt(index),
		"revindex":  starlark.MakeInt(length - index),
		"revindex0": starlark.MakeInt(length - index - 1),
		"first":     starlark.Bool(index == 0),
		"last":      starlark.Bool(index == length-1),
		"length":    starlark.MakeInt(length),
	})
}

func (r *Renderer) renderIf(block *IfBlock, locals starlark.StringDict) error {
	ok, err := r.truth(block.Condition, block.Pos(), locals)
	if err != nil {
		return err
	}
	if ok {
		return r.renderNodes(block.Body, locals)
	}

	for _, branch := range block.ElseIfs {
		ok, err := r.truth(branch.Condition, branch.pos, locals)
		if err != nil {
			return err
		}
		if ok {
			return r.renderNodes(branch.Body, locals)
		}
	}

	return r.renderNodes(block.Else, locals)
}

func (r *Renderer) truth(cond string, pos Position, locals starlark.StringDict) (bool, error) {
	v, err := r.ctx.EvalPipeline(cond, r.file, pos.Line, locals)
	if err != nil {
		return false, WrapRenderError(pos, "condition failed", err)
	}
	return bool(v.Truth()), nil
}
