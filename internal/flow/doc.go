// Package flow drives an object through repeated RG steps.
//
// A [Driver] owns one trajectory: [Driver.Advance] takes a single step,
// [Driver.Run] loops to a terminal [State], checking context cancellation
// between steps. Convergence means the per-step field movement stayed
// inside the tolerance for a full window of consecutive steps; exceeding
// the step cap without settling is [ErrConvergenceFailure].
package flow
