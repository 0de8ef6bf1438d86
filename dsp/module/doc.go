// Package module implements the engine's signal processors: oscillator,
// biquad filter, feedback delay, comb/all-pass reverb and VCA.
//
// Every processor satisfies [Module]. Process transforms exactly one block,
// runs in time linear in the block length and never allocates or blocks, so
// it can run on the audio goroutine. Parameters are addressed by name.
// Instances are not safe for concurrent use; the goroutine that runs the
// graph owns them.
package module
