// Package behavior's BehaviorChain is a linked list of Behaviors
// wrapping a terminal Next that runs a pipeline's stages. Resolve orders
// registered Contributions by phase (PreProcessing, Processing,
// PostProcessing), then placement (Replace, First, Last, Before/After,
// default ascending priority) within each phase. Build wraps the
// terminal from last to first so the first contribution in resolved
// order runs outermost; BuildWithDecorators additionally layers
// configuration-derived retry and timeout wrappers on top.
package behavior
