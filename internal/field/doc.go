// Package field holds Q-tensor order parameter fields over a geometry.
//
// A [Field] stores one symmetric traceless tensor per sample point.
// [Project] is the only constructor that accepts raw tensors; it
// symmetrizes, removes the trace, and rejects anything non-finite with
// [ErrInvalidField]. Coarse observation goes through [GridRegions] and
// [Field.Aggregate], which is safe to run concurrently and returns
// region statistics in input order.
package field
