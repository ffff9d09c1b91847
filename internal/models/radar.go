package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataType tells how the per-pixel feature bands should be interpreted.
type DataType int

const (
	// CovarianceMatrix bands hold a row-major N x N covariance matrix
	CovarianceMatrix DataType = iota
	// CoherenceMatrix bands hold a row-major N x N coherence matrix
	CoherenceMatrix
	// ScatteringVector bands hold the raw scattering vector
	ScatteringVector
)

var dataTypeNames = map[DataType]string{
	CovarianceMatrix: "covariance",
	CoherenceMatrix:  "coherence",
	ScatteringVector: "scattering",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ParseDataType converts a configuration name to a DataType.
func ParseDataType(s string) (DataType, error) {
	for d, name := range dataTypeNames {
		if strings.EqualFold(s, name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// MarshalYAML implements yaml.Marshaler
func (d DataType) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *DataType) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDataType(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Connectivity selects which pixels count as neighbors.
type Connectivity int

const (
	// VonNeumann is 4-neighbor connectivity
	VonNeumann Connectivity = iota
	// Moore is 8-neighbor connectivity
	Moore
)

func (c Connectivity) String() string {
	switch c {
	case VonNeumann:
		return "vonneumann"
	case Moore:
		return "moore"
	default:
		return fmt.Sprintf("Connectivity(%d)", int(c))
	}
}

// ParseConnectivity accepts "vonneumann"/"4" and "moore"/"8".
func ParseConnectivity(s string) (Connectivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vonneumann", "von-neumann", "4":
		return VonNeumann, nil
	case "moore", "8":
		return Moore, nil
	}
	return 0, fmt.Errorf("unknown connectivity %q", s)
}

// MarshalYAML implements yaml.Marshaler
func (c Connectivity) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (c *Connectivity) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseConnectivity(node.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
