// Package biquad provides second-order IIR filter sections and the RBJ
// ("Audio EQ Cookbook") coefficient designs used by the engine's filter
// module.
//
// Coefficients are always normalised so that a0 == 1. A [Section] runs
// Direct Form I and keeps two samples of input and output history.
package biquad
