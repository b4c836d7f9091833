// Package category gives the RG flow its compositional skeleton.
//
// States are [Object] values (geometry + field + scale), transformations
// are [Morphism] values with provenance tags, and structure-preserving
// views are [Functor] values. Law checks ([CheckIdentity],
// [CheckAssociativity], the Functor law methods) are extensional: two
// sides of a law are equal when their outputs agree within a numerical
// tolerance, not when their closures are identical.
package category
