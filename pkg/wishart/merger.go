package wishart

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"polsarseg/pkg/segment"
)

// Merger scores the merge of two segments with the Wishart test for the
// equality of two complex covariance matrices. Feature vectors hold the
// row-major N x N matrix of each segment.
//
// A Merger keeps scratch matrices and must not be shared between goroutines.
type Merger struct {
	featuresSize int
	order        int
	looks        float64

	c1, c2, union *mat.CDense
	embed         *mat.Dense

	chiF, chiF4 distuv.ChiSquared
}

// NewMerger returns a merger for featuresSize = N*N features and the given
// equivalent number of looks.
func NewMerger(featuresSize int, looks float64) (*Merger, error) {
	order := int(math.Round(math.Sqrt(float64(featuresSize))))
	if featuresSize <= 0 || order*order != featuresSize {
		return nil, fmt.Errorf("%w: %d features do not form a square matrix", ErrInvalidParameter, featuresSize)
	}
	if !(looks > 0) {
		return nil, fmt.Errorf("%w: number of looks %v", ErrInvalidParameter, looks)
	}

	f := float64(order * order)
	return &Merger{
		featuresSize: featuresSize,
		order:        order,
		looks:        looks,
		c1:           mat.NewCDense(order, order, nil),
		c2:           mat.NewCDense(order, order, nil),
		union:        mat.NewCDense(order, order, nil),
		embed:        mat.NewDense(2*order, 2*order, nil),
		chiF:         distuv.ChiSquared{K: f},
		chiF4:        distuv.ChiSquared{K: f + 4},
	}, nil
}

// FeaturesSize returns N*N.
func (m *Merger) FeaturesSize() int {
	return m.featuresSize
}

// Dissimilarity returns the probability that the two segments come from
// different Wishart distributions, and writes the size weighted mean
// matrix of their union into preview.
func (m *Merger) Dissimilarity(s1, s2, preview *segment.Segment) float64 {
	size1, size2 := float64(s1.Size), float64(s2.Size)
	sizeUnion := size1 + size2

	cmplxs.ScaleTo(preview.Features, complex(size1/sizeUnion, 0), s1.Features)
	cmplxs.AddScaled(preview.Features, complex(size2/sizeUnion, 0), s2.Features)

	load(m.c1, s1.Features, m.order)
	load(m.c2, s2.Features, m.order)
	load(m.union, preview.Features, m.order)

	ld1 := logAbsDet(m.c1, m.embed)
	ld2 := logAbsDet(m.c2, m.embed)
	ldUnion := logAbsDet(m.union, m.embed)

	n1 := size1 * m.looks
	n2 := size2 * m.looks
	nu := n1 + n2

	// ln Q for sample sums Z_i = n_i C_i reduces to the matrices themselves
	// since Z_1 + Z_2 = nu * union. The union is the size weighted mean, not
	// the unweighted sum C1 + C2; both agree only for equal sizes.
	lnQ := (n1*ld1 + n2*ld2) - nu*ldUnion

	p := float64(m.order)
	f := p * p
	rho := 1 - ((2*f-1)/(6*p))*(1/n1+1/n2-1/nu)
	w2 := -(f/4)*math.Pow(1-1/rho, 2) +
		(f*(f-1)/24)*(1/(n1*n1)+1/(n2*n2)-1/(nu*nu))/(rho*rho)

	// Small samples can make rho negative; such merges score 0
	stat := -2 * rho * lnQ
	if stat < 0 || math.IsNaN(stat) {
		return 0
	}

	p1 := m.chiF.CDF(stat)
	p2 := m.chiF4.CDF(stat)
	return p1 + w2*(p2-p1)
}

// MergeFeatures copies the previewed union matrix into s1.
func (m *Merger) MergeFeatures(s1, s2, preview *segment.Segment) {
	copy(s1.Features, preview.Features)
}

func load(dst *mat.CDense, features []complex128, order int) {
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			dst.Set(i, j, features[i*order+j])
		}
	}
}
