package engine

import (
	"fmt"
	"sort"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// BoardConfig describes the terrain supplied at match start. The engine
// treats the board as read-only input; it never mutates terrain.
type BoardConfig struct {
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Walls      []hexgrid.Coord `json:"walls,omitempty"`
	Cover      []hexgrid.Coord `json:"cover,omitempty"`
	Objectives []hexgrid.Coord `json:"objectives,omitempty"`
}

// Board is the immutable terrain layout. Walls block movement and sight;
// cover hexes grant a save bonus without blocking sight; objective hexes
// feed command-phase scoring.
type Board struct {
	Width  int
	Height int

	walls      map[hexgrid.Coord]bool
	cover      map[hexgrid.Coord]bool
	objectives []hexgrid.Coord
}

// NewBoard validates a config and builds the board.
func NewBoard(cfg BoardConfig) (*Board, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("board dimensions must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	b := &Board{
		Width:  cfg.Width,
		Height: cfg.Height,
		walls:  make(map[hexgrid.Coord]bool, len(cfg.Walls)),
		cover:  make(map[hexgrid.Coord]bool, len(cfg.Cover)),
	}
	for _, w := range cfg.Walls {
		if !b.InBounds(w) {
			return nil, fmt.Errorf("wall %v out of bounds", w)
		}
		b.walls[w] = true
	}
	for _, c := range cfg.Cover {
		if !b.InBounds(c) {
			return nil, fmt.Errorf("cover %v out of bounds", c)
		}
		if b.walls[c] {
			return nil, fmt.Errorf("hex %v cannot be both wall and cover", c)
		}
		b.cover[c] = true
	}
	for _, o := range cfg.Objectives {
		if !b.InBounds(o) {
			return nil, fmt.Errorf("objective %v out of bounds", o)
		}
		if b.walls[o] {
			return nil, fmt.Errorf("objective %v placed on a wall", o)
		}
		b.objectives = append(b.objectives, o)
	}
	return b, nil
}

// InBounds reports whether the coordinate lies on the board.
func (b *Board) InBounds(c hexgrid.Coord) bool {
	return c.Col >= 0 && c.Col < b.Width && c.Row >= 0 && c.Row < b.Height
}

// IsWall reports whether the hex is impassable terrain.
func (b *Board) IsWall(c hexgrid.Coord) bool { return b.walls[c] }

// IsCover reports whether the hex is cover terrain.
func (b *Board) IsCover(c hexgrid.Coord) bool { return b.cover[c] }

// Objectives returns the objective hexes. The caller must not mutate the slice.
func (b *Board) Objectives() []hexgrid.Coord { return b.objectives }

// Config reconstructs the BoardConfig, for snapshots.
func (b *Board) Config() BoardConfig {
	cfg := BoardConfig{Width: b.Width, Height: b.Height}
	for w := range b.walls {
		cfg.Walls = append(cfg.Walls, w)
	}
	for c := range b.cover {
		cfg.Cover = append(cfg.Cover, c)
	}
	cfg.Objectives = append(cfg.Objectives, b.objectives...)
	sortCoords(cfg.Walls)
	sortCoords(cfg.Cover)
	return cfg
}

func sortCoords(cs []hexgrid.Coord) {
	sort.Slice(cs, func(i, j int) bool { return coordLess(cs[i], cs[j]) })
}

func coordLess(a, b hexgrid.Coord) bool {
	if a.Col != b.Col {
		return a.Col < b.Col
	}
	return a.Row < b.Row
}
