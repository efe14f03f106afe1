package chart

import (
	"math"
	"strconv"
	"strings"
)

type Bar struct {
	Label string
	Score float64
	X, Y  float64
	W, H  float64
}

type BarChart struct {
	Width, Height float64
	LabelWidth    float64
	Bars          []Bar
}

const (
	barRow    = 28.0
	barHeight = 18.0
	barLabel  = 170.0
)

// Bars lays out one horizontal bar per entry, scaled to width.
func Bars(entries []Entry, width float64) BarChart {
	if width <= barLabel {
		width = barLabel + 200
	}
	track := width - barLabel - 40
	c := BarChart{
		Width:      width,
		Height:     barRow*float64(len(entries)) + 8,
		LabelWidth: barLabel,
	}
	for i, e := range entries {
		c.Bars = append(c.Bars, Bar{
			Label: e.Label,
			Score: e.Score,
			X:     barLabel,
			Y:     4 + barRow*float64(i) + (barRow-barHeight)/2,
			W:     round(track * e.Score / MaxScore),
			H:     barHeight,
		})
	}
	return c
}

type Axis struct {
	Label  string
	X, Y   float64 // outer end of the spoke
	LX, LY float64 // label anchor
	Anchor string  // SVG text-anchor
}

type RadarChart struct {
	Size    float64
	Center  float64
	Radius  float64
	Axes    []Axis
	Rings   []string // polygon points at 25, 50, 75 and 100
	Polygon string   // polygon points of the scores
}

// Radar places entries on evenly spaced spokes starting at 12 o'clock. With
// fewer than three entries the polygon degenerates to a line or a point.
func Radar(entries []Entry, size float64) RadarChart {
	if size < 200 {
		size = 200
	}
	c := RadarChart{Size: size, Center: size / 2, Radius: size/2 - 60}
	n := len(entries)
	if n == 0 {
		return c
	}

	at := func(i int, r float64) (float64, float64) {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		return round(c.Center + r*math.Cos(a)), round(c.Center + r*math.Sin(a))
	}

	for _, frac := range []float64{0.25, 0.5, 0.75, 1} {
		pts := make([]string, n)
		for i := range entries {
			x, y := at(i, c.Radius*frac)
			pts[i] = point(x, y)
		}
		c.Rings = append(c.Rings, strings.Join(pts, " "))
	}

	pts := make([]string, n)
	for i, e := range entries {
		x, y := at(i, c.Radius)
		lx, ly := at(i, c.Radius+18)
		anchor := "middle"
		switch {
		case lx > c.Center+1:
			anchor = "start"
		case lx < c.Center-1:
			anchor = "end"
		}
		c.Axes = append(c.Axes, Axis{Label: e.Label, X: x, Y: y, LX: lx, LY: ly, Anchor: anchor})

		px, py := at(i, c.Radius*e.Score/MaxScore)
		pts[i] = point(px, py)
	}
	c.Polygon = strings.Join(pts, " ")
	return c
}

func point(x, y float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64) + "," + strconv.FormatFloat(y, 'f', -1, 64)
}

func round(f float64) float64 { return math.Round(f*100) / 100 }
