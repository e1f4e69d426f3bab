package geo

import "strings"

// quadTreeDepth is the number of digits in an interchange quad-tree key.
// The interchange broker filters subscriptions on 18-level keys.
const quadTreeDepth = 18

// QuadTree maps a WGS-84 position (degrees) to an 18-digit base-4 quad-tree
// key. Each level halves the cell: bit 0 carries the longitude half, bit 1
// the latitude half. Out-of-range inputs are clamped, never rejected.
func QuadTree(lat, lon float64) string {
	lat = clamp(lat, -90.0, 90.0)
	lon = clamp(lon, -180.0, 180.0)

	// normalize to [0,1)
	x := (lon + 180.0) / 360.0
	y := (lat + 90.0) / 180.0

	var b strings.Builder
	b.Grow(quadTreeDepth)

	for i := 0; i < quadTreeDepth; i++ {
		x *= 2
		y *= 2

		digit := byte('0')
		if x >= 1.0 {
			digit |= 1
			x -= 1.0
		}
		if y >= 1.0 {
			digit |= 2
			y -= 1.0
		}
		b.WriteByte(digit)
	}

	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
