package ot

import "github.com/shiv248/coedit/pkg/document"

// TransformOps lifts Transform from a single pair of operations to a pair
// of operation batches, the nested-loop construction every pairwise OT
// engine in the examined corpus uses to go from "transform one op against
// one op" to "transform one client's pending batch against another's":
// every element of a is transformed against every element of b, each
// transformed in place as the loop advances so later pairs see the
// running, not the original, values.
func TransformOps(a, b []document.Operation) ([]document.Operation, []document.Operation) {
	aPrime := append([]document.Operation(nil), a...)
	bPrime := append([]document.Operation(nil), b...)

	for i := range aPrime {
		for j := range bPrime {
			aPrime[i], bPrime[j] = Transform(aPrime[i], bPrime[j])
		}
	}
	return aPrime, bPrime
}
