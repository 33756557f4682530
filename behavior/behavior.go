// Package behavior provides Behavior and BehaviorChain: a linked list of
// cross-cutting concerns wrapped around a pipeline's terminal stage
// iterator, ordered by phase/placement/priority.
package behavior

import (
	"sort"
	"time"

	"github.com/flowforge/pipeline/pipectx"
)

// Phase groups behaviors into the stage of the pipeline they apply to.
// Ordered PreProcessing < Processing < PostProcessing.
type Phase int

const (
	PreProcessing Phase = iota
	Processing
	PostProcessing
)

// Next is the continuation a Behavior invokes to run the rest of the
// chain. The terminal Next runs the pipeline's stages.
type Next interface {
	Proceed(ctx *pipectx.Context) (any, error)
}

// NextFunc adapts a plain function into a Next.
type NextFunc func(ctx *pipectx.Context) (any, error)

func (f NextFunc) Proceed(ctx *pipectx.Context) (any, error) { return f(ctx) }

// Behavior wraps a Next with custom logic. It may call next.Proceed any
// number of times - zero to short-circuit, multiple for retry - and may
// return a value other than next's. A Behavior must not mutate the
// chain it participates in.
type Behavior func(ctx *pipectx.Context, next Next) (any, error)

// PlacementKind identifies how a BehaviorContribution is positioned
// relative to its phase's other contributions.
type PlacementKind int

const (
	PlacementDefault PlacementKind = iota
	PlacementFirst
	PlacementLast
	PlacementBefore
	PlacementAfter
	PlacementReplace
)

// Placement positions a contribution. RefID is used by Before, After,
// and Replace; it is ignored otherwise.
type Placement struct {
	Kind  PlacementKind
	RefID string
}

// First places a contribution at the front of its phase, in ascending
// priority order among other First contributions.
func First() Placement { return Placement{Kind: PlacementFirst} }

// Last places a contribution at the end of its phase.
func Last() Placement { return Placement{Kind: PlacementLast} }

// Before inserts a contribution immediately before the one named id.
func Before(id string) Placement { return Placement{Kind: PlacementBefore, RefID: id} }

// After inserts a contribution immediately after the one named id.
func After(id string) Placement { return Placement{Kind: PlacementAfter, RefID: id} }

// Replace drops the contribution named id and substitutes this one in
// its place.
func Replace(id string) Placement { return Placement{Kind: PlacementReplace, RefID: id} }

// Contribution registers a Behavior into a BehaviorChain.
type Contribution struct {
	ID        string
	Name      string
	Behavior  Behavior
	Phase     Phase
	Placement Placement
	Priority  int
	IsEnabled bool
	// Constraint, if set, is evaluated per-execution; when it returns
	// false the contribution is skipped for that run.
	Constraint func(ctx *pipectx.Context) bool
}

func (c Contribution) enabled(ctx *pipectx.Context) bool {
	if !c.IsEnabled {
		return false
	}
	if c.Constraint != nil && !c.Constraint(ctx) {
		return false
	}
	return true
}

// Resolve orders contributions per phase/placement/priority, as
// described in the package doc.
func Resolve(contributions []Contribution) []Contribution {
	byPhase := map[Phase][]Contribution{}
	var phases []Phase
	seen := map[Phase]bool{}
	for _, c := range contributions {
		if !seen[c.Phase] {
			seen[c.Phase] = true
			phases = append(phases, c.Phase)
		}
		byPhase[c.Phase] = append(byPhase[c.Phase], c)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })

	var result []Contribution
	for _, p := range phases {
		result = append(result, resolvePhase(byPhase[p])...)
	}
	return result
}

func resolvePhase(contribs []Contribution) []Contribution {
	replacements := map[string]Contribution{}
	for _, c := range contribs {
		if c.Placement.Kind == PlacementReplace {
			replacements[c.Placement.RefID] = c
		}
	}

	base := make([]Contribution, 0, len(contribs))
	for _, c := range contribs {
		if c.Placement.Kind == PlacementReplace {
			continue
		}
		if r, ok := replacements[c.ID]; ok {
			base = append(base, r)
			continue
		}
		base = append(base, c)
	}

	var firsts, lasts, rest []Contribution
	var beforeAfter []Contribution
	for _, c := range base {
		switch c.Placement.Kind {
		case PlacementFirst:
			firsts = append(firsts, c)
		case PlacementLast:
			lasts = append(lasts, c)
		case PlacementBefore, PlacementAfter:
			beforeAfter = append(beforeAfter, c)
		default:
			rest = append(rest, c)
		}
	}

	sort.SliceStable(firsts, func(i, j int) bool { return firsts[i].Priority < firsts[j].Priority })
	sort.SliceStable(lasts, func(i, j int) bool { return lasts[i].Priority < lasts[j].Priority })
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Priority < rest[j].Priority })

	result := make([]Contribution, 0, len(base))
	result = append(result, firsts...)
	result = append(result, rest...)
	result = append(result, lasts...)

	for _, c := range beforeAfter {
		idx := indexOfID(result, c.Placement.RefID)
		if idx < 0 {
			result = append(result, c)
			continue
		}
		if c.Placement.Kind == PlacementAfter {
			idx++
		}
		result = append(result[:idx], append([]Contribution{c}, result[idx:]...)...)
	}

	return result
}

func indexOfID(contribs []Contribution, id string) int {
	for i, c := range contribs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Build constructs the final Next by wrapping terminal with each
// resolved contribution, from last to first, so the first contribution
// in the resolved order runs outermost.
func Build(terminal Next, contributions []Contribution) Next {
	chain := terminal
	for i := len(contributions) - 1; i >= 0; i-- {
		c := contributions[i]
		inner := chain
		contribution := c
		chain = NextFunc(func(ctx *pipectx.Context) (any, error) {
			if !contribution.enabled(ctx) {
				return inner.Proceed(ctx)
			}
			return contribution.Behavior(ctx, inner)
		})
	}
	return chain
}

// Decorators holds the configuration-derived wrappers BuildWithDecorators
// applies on top of the resolved contribution chain.
type Decorators struct {
	// RetryPolicy, if non-nil, wraps the chain with WithRetry.
	RetryPolicy RetryPolicy
	// Timeout, if > 0, wraps the chain with WithTimeout.
	Timeout time.Duration
}

// BuildWithDecorators builds the contribution chain via Build, then
// applies configuration-derived decorators outermost: retry first
// (innermost of the two), then timeout (outermost), matching the
// pipeline executor's construction order.
func BuildWithDecorators(terminal Next, contributions []Contribution, d Decorators) Next {
	chain := Build(terminal, contributions)

	if d.RetryPolicy != nil {
		inner := chain
		retryBehavior := WithRetry(d.RetryPolicy)
		chain = NextFunc(func(ctx *pipectx.Context) (any, error) {
			return retryBehavior(ctx, inner)
		})
	}

	if d.Timeout > 0 {
		inner := chain
		timeoutBehavior := WithTimeout(d.Timeout)
		chain = NextFunc(func(ctx *pipectx.Context) (any, error) {
			return timeoutBehavior(ctx, inner)
		})
	}

	return chain
}
