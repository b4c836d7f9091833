// Package geometry provides lattice-discretized Riemannian manifolds for
// the RG engine.
//
// A [Geometry] is an order-stable arena of sample points with a symmetric
// positive-definite metric tensor per point. Charts are regular Nu x Nv(x Nw)
// lattices so spatial derivatives reduce to finite differences; periodic
// axes wrap, open axes fall back to one-sided stencils.
//
//   - [NewDisk], [NewTorus], [NewSphere], [NewBox]: standard charts
//   - [Geometry.ChristoffelAt], [Geometry.RicciField]: curvature from
//     metric differences
//   - [Geometry.StepRicciFlow]: one explicit step of dg/dt = -2 Ric(g)
//   - [Geometry.LaplaceBeltrami]: scalar diffusion operator
//
// Geometries are immutable once built; StepRicciFlow returns a new value.
package geometry
