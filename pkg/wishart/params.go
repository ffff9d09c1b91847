// Package wishart implements the region growing merge strategy for
// polarimetric covariance and coherence matrices, scoring merges with the
// Wishart equality test of two complex covariance matrices.
package wishart

import (
	"errors"
	"fmt"

	"polsarseg/internal/models"
)

// ErrInvalidParameter is returned for out-of-range strategy parameters.
var ErrInvalidParameter = errors.New("invalid wishart parameter")

// Params holds the Wishart strategy configuration.
type Params struct {
	MinSegmentSize         int                 `yaml:"minSegmentSize"`
	DataType               models.DataType     `yaml:"dataType"`
	ENLLZero               float64             `yaml:"enlLZero"`
	CompressionLevel       int                 `yaml:"compressionLevel"`
	Connectivity           models.Connectivity `yaml:"connectivity"`
	RegionGrowingLimit     int                 `yaml:"regionGrowingLimit"`
	RegionGrowingConfLevel float64             `yaml:"regionGrowingConfLevel"`
	RegionMergingLimit     int                 `yaml:"regionMergingLimit"`
	RegionMergingConfLevel float64             `yaml:"regionMergingConfLevel"`
}

// DefaultParams returns the default strategy parameters.
func DefaultParams() Params {
	return Params{
		MinSegmentSize:         100,
		DataType:               models.CovarianceMatrix,
		ENLLZero:               1.583,
		CompressionLevel:       1,
		Connectivity:           models.VonNeumann,
		RegionGrowingLimit:     15,
		RegionGrowingConfLevel: 99.9,
		RegionMergingLimit:     1,
		RegionMergingConfLevel: 99.9,
	}
}

// Validate checks every parameter range.
func (p Params) Validate() error {
	switch {
	case p.MinSegmentSize <= 0:
		return fmt.Errorf("%w: min segment size %d", ErrInvalidParameter, p.MinSegmentSize)
	case p.DataType != models.CovarianceMatrix && p.DataType != models.CoherenceMatrix:
		return fmt.Errorf("%w: data type %s is not a matrix type", ErrInvalidParameter, p.DataType)
	case !(p.ENLLZero > 1):
		return fmt.Errorf("%w: ENL L0 %v must be greater than 1", ErrInvalidParameter, p.ENLLZero)
	case p.CompressionLevel <= 0:
		return fmt.Errorf("%w: compression level %d", ErrInvalidParameter, p.CompressionLevel)
	case p.Connectivity != models.VonNeumann && p.Connectivity != models.Moore:
		return fmt.Errorf("%w: connectivity %d", ErrInvalidParameter, int(p.Connectivity))
	case p.RegionGrowingLimit <= 0:
		return fmt.Errorf("%w: region growing limit %d", ErrInvalidParameter, p.RegionGrowingLimit)
	case !(p.RegionGrowingConfLevel > 0 && p.RegionGrowingConfLevel <= 100):
		return fmt.Errorf("%w: region growing confidence %v outside (0,100]", ErrInvalidParameter, p.RegionGrowingConfLevel)
	case p.RegionMergingLimit <= 0:
		return fmt.Errorf("%w: region merging limit %d", ErrInvalidParameter, p.RegionMergingLimit)
	case !(p.RegionMergingConfLevel > 0 && p.RegionMergingConfLevel <= 100):
		return fmt.Errorf("%w: region merging confidence %v outside (0,100]", ErrInvalidParameter, p.RegionMergingConfLevel)
	}
	return nil
}

// maxCompressionLevel bounds the automatic compression level search.
const maxCompressionLevel = 8

// Looks returns the configured equivalent number of looks.
func (p Params) Looks() float64 {
	return p.ENLLZero * float64(p.CompressionLevel)
}

// EffectiveLooks returns the number of looks the test runs with for the
// given band count. The compression level is raised when the configured one
// stays below the level the data type and band count require.
func (p Params) EffectiveLooks(bands int) (float64, error) {
	level, _, err := MinCompLevelENL(p.DataType, bands, maxCompressionLevel, p.ENLLZero)
	if err != nil {
		return 0, err
	}
	return p.ENLLZero * float64(max(p.CompressionLevel, level)), nil
}
