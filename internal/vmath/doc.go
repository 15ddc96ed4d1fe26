// Package vmath provides the small fixed-size linear algebra used by the
// material point solver: 2D vectors, 2x2 matrices and their polar and
// singular value decompositions.
//
// All types are plain values. Methods never mutate the receiver.
package vmath
