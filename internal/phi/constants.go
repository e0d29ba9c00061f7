// Package phi provides the golden-ratio constants used by zone tessellation.
// The vertical axis of the boundary metric is weighted by Φ so zone borders
// run slightly wider than tall and never settle into perfect circles.
package phi

// Phi is the golden ratio.
const Phi = 1.6180339887498948

// Coefficients of the anisotropic tessellation metric
//
//	f(dx, dy) = dx·(1 + dx·(HorizontalQuad + dx·HorizontalCubic))
//	          + dy·(VerticalLinear + dy·(VerticalQuad + dy·VerticalCubic))
//
// The horizontal axis uses decimal fractions, the vertical axis the same
// shape scaled by Φ.
const (
	HorizontalQuad  = 0.1
	HorizontalCubic = 0.01

	VerticalLinear = Phi
	VerticalQuad   = -Phi / 10
	VerticalCubic  = Phi / 100
)

// ReferenceMapSize is the map edge length on which the metric coefficients
// apply unscaled. Other sizes scale dx and dy by ReferenceMapSize/size.
const ReferenceMapSize = 96.0
