package bot

import (
	"github.com/pellston/hexhammer/pkg/engine"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Fixed input geometry for the neural policy. Boards smaller than MaxHexes
// are zero-padded; the encoder rejects anything larger.
const (
	MaxHexes    = 256
	NumFeatures = 10
)

// Feature channels per hex, from the acting side's point of view.
const (
	featWall = iota
	featCover
	featObjective
	featFriendly
	featEnemy
	featHPFrac
	featToughness
	featRangedReach
	featMeleeThreat
	featActed
)

// HexIndex maps a coordinate to its flat row-major position in the encoded
// tensor. Returns -1 for out-of-board coordinates.
func HexIndex(cfg engine.BoardConfig, c hexgrid.Coord) int {
	if c.Col < 0 || c.Col >= cfg.Width || c.Row < 0 || c.Row >= cfg.Height {
		return -1
	}
	return c.Row*cfg.Width + c.Col
}

// EncodeBoard flattens the state into a (MaxHexes, NumFeatures) float32
// buffer from the side's point of view. Returns false when the board does
// not fit the fixed geometry.
func EncodeBoard(gs *engine.GameState, side engine.Player) ([]float32, bool) {
	cfg := gs.Board.Config()
	if cfg.Width*cfg.Height > MaxHexes {
		return nil, false
	}
	buf := make([]float32, MaxHexes*NumFeatures)
	set := func(idx, feat int, v float32) {
		buf[idx*NumFeatures+feat] = v
	}

	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			c := hexgrid.Coord{Col: col, Row: row}
			idx := HexIndex(cfg, c)
			if gs.Board.IsWall(c) {
				set(idx, featWall, 1)
			}
			if gs.Board.IsCover(c) {
				set(idx, featCover, 1)
			}
		}
	}
	for _, obj := range gs.Board.Objectives() {
		set(HexIndex(cfg, obj), featObjective, 1)
	}

	for _, u := range gs.Units {
		idx := HexIndex(cfg, u.Pos)
		if idx < 0 {
			continue
		}
		if u.Player == side {
			set(idx, featFriendly, 1)
		} else {
			set(idx, featEnemy, 1)
		}
		set(idx, featHPFrac, float32(u.HP)/float32(u.Profile.MaxHP))
		set(idx, featToughness, float32(u.Profile.Toughness)/10)
		set(idx, featRangedReach, float32(u.MaxRangedRange())/12)
		set(idx, featMeleeThreat, float32(len(u.Profile.Melee)))
		if gs.Moved[u.ID] || gs.Shot[u.ID] || gs.Attacked[u.ID] {
			set(idx, featActed, 1)
		}
	}
	return buf, true
}
