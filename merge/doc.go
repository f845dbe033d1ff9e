// Package merge combines independently trained vector spaces.
//
// Interpolate blends two spaces over a target label set. An input whose
// overlap with the target is below the vocabulary threshold contributes
// nothing and is reported as a CoverageDiagnostic. When the qualifying
// inputs differ in width, the second is mapped into the first's width by a
// ridge least-squares Projector fitted on their shared labels.
//
// Intersect restricts N spaces to the labels present in all of them,
// concatenates their (optionally L2-normalized) rows and projects the joint
// rows onto the top-k eigenvectors of their covariance. It also fits one
// Projector per input so future vectors from any input space can be mapped
// into the common space:
//
//	res, err := merge.Intersect(ctx, []*space.Matrix{a, b}, 300)
//	v, err := res.Projectors[0].Apply(vecFromA)
package merge
