// Package spectrum provides the analysis used for engine feedback: a
// windowed FFT magnitude analyzer for snapshot spectra and a single-bin
// Goertzel tone detector.
package spectrum
