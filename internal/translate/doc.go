// Package translate turns transcript segments into translated subtitle lines
// and runs an optional stylistic review pass over the result.
//
// Translation is strictly line-preserving: a batch of N segments always comes
// back as N segments in the same order. Transient provider failures are
// retried with exponential backoff and then degrade to identity translation,
// so the pipeline never stalls on a flaky provider. The review pass works on
// sliding windows with surrounding context and discards any window whose
// response fails the line-alignment quality gate.
package translate
