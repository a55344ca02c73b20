// Package trend turns numeric history series into plot-ready geometry and
// heat-strip colours.
package trend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultWindow is the number of trailing samples plotted
const DefaultWindow = 48

// Default fill used when a style leaves it empty
const (
	DefaultStroke = "rgba(122,162,255,.95)"
	DefaultFill   = "rgba(122,162,255,.16)"
)

// Geometry is the canvas a sparkline is drawn on
type Geometry struct {
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Padding float64 `json:"padding" yaml:"padding"`
}

// DefaultGeometry returns the 560x64 canvas with 6px padding
func DefaultGeometry() Geometry {
	return Geometry{Width: 560, Height: 64, Padding: 6}
}

// Style holds the colours of one series
type Style struct {
	Stroke string `json:"stroke" yaml:"stroke"`
	Fill   string `json:"fill" yaml:"fill"`
}

// Point is one plotted sample
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Spark is a rendered sparkline. An empty input yields the zero Spark with no
// points and empty paths.
type Spark struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Points   []Point `json:"points"`
	Line     string  `json:"line"`
	Area     string  `json:"area"`
	Stroke   string  `json:"stroke"`
	Fill     string  `json:"fill"`
	Baseline float64 `json:"baseline"`
}

// Empty reports whether there is nothing to draw
func (s Spark) Empty() bool {
	return len(s.Points) == 0
}

// finite reads NaN and Inf samples as 0
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Range returns min, max and the normalisation denominator of values.
// The denominator is 1 for empty or flat input. Non-finite samples count as 0.
func Range(values []float64) (min, max, rng float64) {
	if len(values) == 0 {
		return 0, 0, 1
	}
	min, max = finite(values[0]), finite(values[0])
	for _, v := range values[1:] {
		v = finite(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	rng = max - min
	if rng == 0 || math.IsNaN(rng) || math.IsInf(rng, 0) {
		rng = 1
	}
	return min, max, rng
}

// NewSpark computes the sparkline of values on the given canvas
func NewSpark(values []float64, g Geometry, st Style) Spark {
	if st.Stroke == "" {
		st.Stroke = DefaultStroke
	}
	if st.Fill == "" {
		st.Fill = DefaultFill
	}
	s := Spark{
		Width:    g.Width,
		Height:   g.Height,
		Points:   []Point{},
		Stroke:   st.Stroke,
		Fill:     st.Fill,
		Baseline: g.Height - g.Padding,
	}
	if len(values) == 0 {
		return s
	}

	mn, _, rng := Range(values)
	steps := float64(len(values) - 1)
	if steps < 1 {
		steps = 1
	}
	inner := g.Width - 2*g.Padding
	span := g.Height - 2*g.Padding

	coords := make([]string, len(values))
	for i, v := range values {
		v = finite(v)
		p := Point{
			X: g.Padding + (float64(i)/steps)*inner,
			Y: g.Padding + (1-(v-mn)/rng)*span,
		}
		s.Points = append(s.Points, p)
		coords[i] = coord(p.X) + " " + coord(p.Y)
	}

	joined := strings.Join(coords, " L ")
	base := coord(s.Baseline)
	first, last := s.Points[0], s.Points[len(s.Points)-1]

	s.Line = "M " + joined
	s.Area = fmt.Sprintf("M %s %s L %s L %s %s Z", coord(first.X), base, joined, coord(last.X), base)
	return s
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// RGB is an 8-bit colour
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String formats the colour as a CSS rgb() value
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// HeatColor maps a in [0,1] from the dark end of the strip to the bright end.
// Values outside the range are clamped.
func HeatColor(a float64) RGB {
	if math.IsNaN(a) || a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return RGB{
		R: uint8(math.Round(18 + a*90)),
		G: uint8(math.Round(28 + a*120)),
		B: uint8(math.Round(55 + a*200)),
	}
}

// HeatCell is one cell of a heat strip
type HeatCell struct {
	Value float64 `json:"value"`
	A     float64 `json:"a"`
	Color string  `json:"color"`
}

// HeatStrip is a row of heat cells with the range they were scaled to
type HeatStrip struct {
	Min   float64    `json:"min"`
	Max   float64    `json:"max"`
	Cells []HeatCell `json:"cells"`
}

// NewHeatStrip normalises values against their own range
func NewHeatStrip(values []float64) HeatStrip {
	mn, mx, rng := Range(values)
	strip := HeatStrip{Min: mn, Max: mx, Cells: make([]HeatCell, 0, len(values))}
	for _, v := range values {
		v = finite(v)
		a := (v - mn) / rng
		strip.Cells = append(strip.Cells, HeatCell{Value: v, A: a, Color: HeatColor(a).String()})
	}
	return strip
}

// Window returns a copy of the last n values. n <= 0 means all of them.
func Window(values []float64, n int) []float64 {
	if n > 0 && len(values) > n {
		values = values[len(values)-n:]
	}
	return append([]float64{}, values...)
}

// Summary describes a windowed series
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Last  float64 `json:"last"`
}

// Summarize returns count, min, max and the latest value
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mn, mx, _ := Range(values)
	return Summary{Count: len(values), Min: mn, Max: mx, Last: finite(values[len(values)-1])}
}
