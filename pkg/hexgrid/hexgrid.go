// Package hexgrid provides hex-grid math on offset coordinates (col, row)
// with an odd-q layout (odd columns shift down). Cube coordinates are used
// internally for distance and line tracing.
package hexgrid

import "math"

// Coord is a board position in offset coordinates, 0-indexed.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Cube is a position in cube coordinates (Q + R + S == 0).
type Cube struct {
	Q, R, S int
}

// ToCube converts offset coords (odd-q layout) to cube coords.
func ToCube(c Coord) Cube {
	x := c.Col
	z := c.Row - (c.Col-(c.Col&1))/2
	y := -x - z
	return Cube{Q: x, R: y, S: z}
}

// ToOffset converts cube coords back to offset coords (odd-q layout).
func ToOffset(c Cube) Coord {
	col := c.Q
	row := c.S + (c.Q-(c.Q&1))/2
	return Coord{Col: col, Row: row}
}

// Distance returns the hex distance between two offset coordinates.
func Distance(a, b Coord) int {
	ac := ToCube(a)
	bc := ToCube(b)
	return (abs(ac.Q-bc.Q) + abs(ac.R-bc.R) + abs(ac.S-bc.S)) / 2
}

// Neighbors returns the 6 adjacent coordinates of h. Callers must bounds-check.
func Neighbors(h Coord) [6]Coord {
	col, row := h.Col, h.Row
	if col%2 == 1 {
		// odd column: diagonal neighbors shift down
		return [6]Coord{
			{col, row - 1},
			{col + 1, row},
			{col + 1, row + 1},
			{col, row + 1},
			{col - 1, row + 1},
			{col - 1, row},
		}
	}
	return [6]Coord{
		{col, row - 1},
		{col + 1, row - 1},
		{col + 1, row},
		{col, row + 1},
		{col - 1, row},
		{col - 1, row - 1},
	}
}

// Adjacent reports whether a and b are distinct hexes at distance 1.
func Adjacent(a, b Coord) bool {
	return Distance(a, b) == 1
}

// Line returns the hexes along the straight line from a to b, exclusive of
// both endpoints. Interpolates in cube space and rounds to the nearest hex.
func Line(a, b Coord) []Coord {
	dist := Distance(a, b)
	if dist <= 1 {
		return nil
	}

	ac := ToCube(a)
	bc := ToCube(b)

	result := make([]Coord, 0, dist-1)
	for i := 1; i < dist; i++ {
		t := float64(i) / float64(dist)
		q := lerp(float64(ac.Q), float64(bc.Q), t)
		r := lerp(float64(ac.R), float64(bc.R), t)
		s := lerp(float64(ac.S), float64(bc.S), t)
		result = append(result, ToOffset(cubeRound(q, r, s)))
	}
	return result
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// cubeRound rounds fractional cube coords to the nearest valid hex,
// fixing up the component with the largest rounding error so Q+R+S stays 0.
func cubeRound(q, r, s float64) Cube {
	rq := math.Round(q)
	rr := math.Round(r)
	rs := math.Round(s)

	dq := math.Abs(rq - q)
	dr := math.Abs(rr - r)
	ds := math.Abs(rs - s)

	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	} else {
		rs = -rq - rr
	}

	return Cube{Q: int(rq), R: int(rr), S: int(rs)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
