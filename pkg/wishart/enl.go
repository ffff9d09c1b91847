package wishart

import (
	"fmt"
	"math"

	"polsarseg/internal/models"
)

// MinCompressionLevel returns the smallest compression level, up to
// maxLevel, whose equivalent number of looks reaches minENL for an image
// of imageENL looks and the given spatial autocorrelation terms.
func MinCompressionLevel(maxLevel int, imageENL, minENL, ac1, ac2, ac3 float64) int {
	level := 0
	levelENL := 0.0
	for levelENL < minENL && level != maxLevel {
		level++
		p1 := math.Pow(imageENL*2, float64(2*level))
		p2 := 1 - 1/math.Pow(2, float64(level))
		levelENL = p1 / (1 + 2*p2*(ac1+ac2+ac3*p2))
	}
	return level
}

// MinCompLevelENL returns the minimum ENL required by the hypothesis test
// for the data type and band count, and the compression level needed to
// reach it when the image ENL is too low.
func MinCompLevelENL(dataType models.DataType, bands, maxLevel int, imageENL float64) (int, float64, error) {
	var minENL float64

	switch dataType {
	case models.ScatteringVector:
		switch bands {
		case 1:
			minENL = 1.1
		case 2:
			minENL = 2.2
		case 3:
			minENL = 4.55
		case 4:
			minENL = 7.65
		default:
			return 0, 0, fmt.Errorf("%w: %d scattering vector bands", ErrInvalidParameter, bands)
		}
	case models.CovarianceMatrix, models.CoherenceMatrix:
		switch bands {
		case 1:
			return 0, 1.0, nil
		case 4:
			minENL = 2.2
		case 9:
			minENL = 4.55
		case 16:
			minENL = 7.65
		default:
			return 0, 0, fmt.Errorf("%w: %d matrix bands", ErrInvalidParameter, bands)
		}
	default:
		return 0, 0, fmt.Errorf("%w: data type %s", ErrInvalidParameter, dataType)
	}

	level := 0
	if imageENL <= minENL {
		level = MinCompressionLevel(maxLevel, imageENL, minENL, 0, 0, 0)
	}
	return level, minENL, nil
}
