package wishart

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// regularizationNoise is the first diagonal perturbation tried on a
	// singular matrix
	regularizationNoise = 1e-8

	// regularizationAttempts bounds the perturbation retries; the noise
	// grows tenfold on each one
	regularizationAttempts = 16
)

// logAbsDet returns ln|det c| for a square complex matrix. Singular matrices
// are regularized in place by adding a growing perturbation to the diagonal.
// embed is scratch space of twice the order of c.
func logAbsDet(c *mat.CDense, embed *mat.Dense) float64 {
	n, _ := c.Dims()
	noise := regularizationNoise

	ld := embeddedLogDet(c, embed, n)
	for attempt := 0; attempt < regularizationAttempts && math.IsInf(ld, -1); attempt++ {
		for i := 0; i < n; i++ {
			c.Set(i, i, c.At(i, i)+complex(noise, 0))
		}
		noise *= 10
		ld = embeddedLogDet(c, embed, n)
	}
	return ld
}

// embeddedLogDet computes ln|det c| through the real matrix
// [[Re c, -Im c], [Im c, Re c]], whose determinant is |det c|^2.
func embeddedLogDet(c *mat.CDense, embed *mat.Dense, n int) float64 {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := c.At(i, j)
			re, im := real(v), imag(v)
			embed.Set(i, j, re)
			embed.Set(i+n, j+n, re)
			embed.Set(i, j+n, -im)
			embed.Set(i+n, j, im)
		}
	}
	ld, sign := mat.LogDet(embed)
	if sign == 0 || math.IsNaN(ld) {
		return math.Inf(-1)
	}
	return ld / 2
}
