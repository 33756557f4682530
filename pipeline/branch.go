package pipeline

import (
	"context"

	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// BranchPipeline evaluates a predicate on the input and routes to
// exactly one of two branches.
type BranchPipeline[In, Out any] struct {
	pred        func(In) bool
	trueBranch  Pipeline[In, Out]
	falseBranch Pipeline[In, Out]
	name        string
}

// BranchOf routes to trueBranch when pred(input) holds, else
// falseBranch.
func BranchOf[In, Out any](pred func(In) bool, trueBranch, falseBranch Pipeline[In, Out]) *BranchPipeline[In, Out] {
	return &BranchPipeline[In, Out]{
		pred:        pred,
		trueBranch:  trueBranch,
		falseBranch: falseBranch,
		name:        "Branch(" + trueBranch.Name() + " | " + falseBranch.Name() + ")",
	}
}

func (b *BranchPipeline[In, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	if b.pred(input) {
		return b.trueBranch.Execute(ctx, input, parent)
	}
	return b.falseBranch.Execute(ctx, input, parent)
}

func (b *BranchPipeline[In, Out]) Name() string { return b.name }

// BranchCase is one ordered (predicate, pipeline, name) entry in a
// MultiBranchPipeline.
type BranchCase[In, Out any] struct {
	Name      string
	Predicate func(In) bool
	Pipeline  Pipeline[In, Out]
}

// MultiBranchPipeline evaluates an ordered list of predicates, routing
// to the first match; an optional Default runs when none match.
type MultiBranchPipeline[In, Out any] struct {
	cases   []BranchCase[In, Out]
	def     Pipeline[In, Out]
	hasDef  bool
	name    string
}

// MultiBranchOf builds a MultiBranchPipeline from ordered cases. Use
// WithDefault to set a fallback.
func MultiBranchOf[In, Out any](cases ...BranchCase[In, Out]) *MultiBranchPipeline[In, Out] {
	return &MultiBranchPipeline[In, Out]{cases: cases, name: "MultiBranch"}
}

// WithDefault sets the fallback pipeline run when no case matches.
func (m *MultiBranchPipeline[In, Out]) WithDefault(def Pipeline[In, Out]) *MultiBranchPipeline[In, Out] {
	m.def = def
	m.hasDef = true
	return m
}

func (m *MultiBranchPipeline[In, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out
	for _, c := range m.cases {
		if c.Predicate(input) {
			return c.Pipeline.Execute(ctx, input, parent)
		}
	}
	if m.hasDef {
		return m.def.Execute(ctx, input, parent)
	}
	return zero, perr.NoMatchingBranch()
}

func (m *MultiBranchPipeline[In, Out]) Name() string { return m.name }

// TypeSwitchCase pairs a runtime type test with the pipeline to run when
// it matches.
type TypeSwitchCase[In, Out any] struct {
	Name    string
	Matches func(In) bool
	Pipeline Pipeline[In, Out]
}

// TypeSwitchOf is a MultiBranchPipeline whose predicates are runtime
// type tests; Matches typically closes over a type assertion so
// subtypes are accepted wherever the assertion itself would accept
// them.
func TypeSwitchOf[In, Out any](cases ...TypeSwitchCase[In, Out]) *MultiBranchPipeline[In, Out] {
	converted := make([]BranchCase[In, Out], len(cases))
	for i, c := range cases {
		converted[i] = BranchCase[In, Out]{Name: c.Name, Predicate: c.Matches, Pipeline: c.Pipeline}
	}
	mb := MultiBranchOf(converted...)
	mb.name = "TypeSwitch"
	return mb
}
