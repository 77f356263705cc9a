// Package charts holds NTC thermistor resistance/temperature tables and
// the interpolation used to convert sensed resistance to celsius.
package charts

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed ntcle100e3103jb0.yaml
var ntcle100e3103jb0 []byte

// Point is one chart anchor: resistance at a given temperature.
type Point struct {
	Celsius float64 `yaml:"celsius"`
	Ohms    float64 `yaml:"ohms"`
}

// Chart maps resistance to temperature for one thermistor model.
type Chart struct {
	Name   string  `yaml:"name"`
	Points []Point `yaml:"points"`
}

// Default returns the chart for the thermistor fitted on the cape
// (NTCLE100E3103JB0). The embedded table is validated at startup.
func Default() (*Chart, error) {
	return Parse(ntcle100e3103jb0)
}

// Parse loads a chart from YAML and sorts it by descending resistance,
// the natural ordering of an NTC.
func Parse(raw []byte) (*Chart, error) {
	var c Chart
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse thermistor chart: %w", err)
	}
	if len(c.Points) < 2 {
		return nil, fmt.Errorf("thermistor chart %q: need at least 2 points, got %d", c.Name, len(c.Points))
	}
	sort.Slice(c.Points, func(i, j int) bool {
		return c.Points[i].Ohms > c.Points[j].Ohms
	})
	return &c, nil
}

// Celsius converts a sensed resistance to a temperature, linearly
// interpolating between anchor points and clamping outside the table.
func (c *Chart) Celsius(ohms float64) float64 {
	pts := c.Points
	if ohms >= pts[0].Ohms {
		return pts[0].Celsius
	}
	last := pts[len(pts)-1]
	if ohms <= last.Ohms {
		return last.Celsius
	}
	for i := 1; i < len(pts); i++ {
		if ohms >= pts[i].Ohms {
			hi, lo := pts[i-1], pts[i]
			frac := (hi.Ohms - ohms) / (hi.Ohms - lo.Ohms)
			return hi.Celsius + frac*(lo.Celsius-hi.Celsius)
		}
	}
	return last.Celsius
}
