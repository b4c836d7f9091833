// Package rg implements the renormalization-group coarse-graining step.
//
// One step at increment t smooths the Q-tensor field with the metric's
// heat kernel, advances the metric by one Ricci-flow step, and re-projects
// the field onto the symmetric traceless cone. Steps form a semigroup:
// stepping by t1 then t2 agrees with one step of t1+t2 up to
// discretization error, and the zero step is the exact identity.
package rg
