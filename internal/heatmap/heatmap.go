// Package heatmap rasterizes point clouds into RGBA heat images. It is pure:
// no upstream calls, no storage.
package heatmap

import "math"

// Point is one heat source in image space. Value scales intensity and
// defaults to 1 when zero.
type Point struct {
	X     float64
	Y     float64
	Value float64
}

type gradientStop struct {
	stop  float64
	color [4]float64
}

// Cold-to-hot gradient: transparent blue through cyan and lime to red.
var gradient = []gradientStop{
	{0, [4]float64{0, 0, 255, 0}},
	{0.3, [4]float64{0, 0, 255, 255}},
	{0.5, [4]float64{0, 255, 255, 255}},
	{0.7, [4]float64{0, 255, 0, 255}},
	{1, [4]float64{255, 0, 0, 255}},
}

// Render accumulates radial-falloff heat for every point and maps the result
// through the gradient. The returned buffer is width*height*4 RGBA bytes.
func Render(width, height int, points []Point, radius float64) []byte {
	if radius <= 0 {
		radius = 20
	}
	radiusSq := radius * radius

	heat := make([]float64, width*height)
	for _, p := range points {
		value := p.Value
		if value == 0 {
			value = 1
		}
		xStart := clampInt(int(math.Floor(p.X-radius)), 0, width-1)
		xEnd := clampInt(int(math.Ceil(p.X+radius)), 0, width-1)
		yStart := clampInt(int(math.Floor(p.Y-radius)), 0, height-1)
		yEnd := clampInt(int(math.Ceil(p.Y+radius)), 0, height-1)

		for py := yStart; py <= yEnd; py++ {
			for px := xStart; px <= xEnd; px++ {
				dx := float64(px) - p.X
				dy := float64(py) - p.Y
				distSq := dx*dx + dy*dy
				if distSq > radiusSq {
					continue
				}
				idx := py*width + px
				// Linear falloff, saturating at full heat.
				heat[idx] = math.Min(1, heat[idx]+value*(1-distSq/radiusSq))
			}
		}
	}

	buf := make([]byte, width*height*4)
	for i, alpha := range heat {
		r, g, b, a := interpolate(alpha)
		buf[i*4] = r
		buf[i*4+1] = g
		buf[i*4+2] = b
		buf[i*4+3] = a
	}
	return buf
}

func interpolate(t float64) (byte, byte, byte, byte) {
	t = math.Max(0, math.Min(1, t))
	start := gradient[0]
	end := gradient[len(gradient)-1]
	for i := 0; i < len(gradient)-1; i++ {
		if t >= gradient[i].stop && t <= gradient[i+1].stop {
			start = gradient[i]
			end = gradient[i+1]
			break
		}
	}
	span := end.stop - start.stop
	localT := 0.0
	if span > 0 {
		localT = (t - start.stop) / span
	}
	lerp := func(a, b float64) byte {
		return byte(math.Round(a + (b-a)*localT))
	}
	return lerp(start.color[0], end.color[0]),
		lerp(start.color[1], end.color[1]),
		lerp(start.color[2], end.color[2]),
		lerp(start.color[3], end.color[3])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CoordsFromTile converts a flat tile index into image coordinates given the
// map's raster width.
func CoordsFromTile(tile, width int) (x, y int) {
	return tile % width, tile / width
}
