package engine

import (
	"testing"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

func TestLOS_WallBlocks(t *testing.T) {
	board := mustBoard(t, BoardConfig{
		Width: 10, Height: 10,
		Walls: []hexgrid.Coord{at(2, 5), at(3, 5)},
	})
	los := NewLOS(board)

	if los.CanSee(at(0, 5), at(5, 5)) {
		t.Error("wall on the line should block sight")
	}
	if los.InCover(at(0, 5), at(5, 5)) {
		t.Error("a blocked target is hidden, not in cover")
	}
	if !los.CanSee(at(0, 0), at(5, 0)) {
		t.Error("open row should be visible")
	}
}

func TestLOS_CoverClassification(t *testing.T) {
	board := mustBoard(t, BoardConfig{
		Width: 10, Height: 10,
		Cover: []hexgrid.Coord{at(2, 5), at(7, 7)},
	})
	los := NewLOS(board)

	// Cover hex on the line: visible and in cover.
	if !los.CanSee(at(0, 5), at(5, 5)) {
		t.Error("cover must not block sight")
	}
	if !los.InCover(at(0, 5), at(5, 5)) {
		t.Error("line through cover should classify target as in cover")
	}

	// Target standing in a cover hex benefits even with a clear line.
	if !los.InCover(at(7, 4), at(7, 7)) {
		t.Error("target on a cover hex should be in cover")
	}

	// Clear line, open target.
	if los.InCover(at(0, 0), at(5, 0)) {
		t.Error("open target should not be in cover")
	}
}

func TestLOS_CacheSurvivesAndResets(t *testing.T) {
	board := mustBoard(t, BoardConfig{
		Width: 10, Height: 10,
		Walls: []hexgrid.Coord{at(2, 5)},
	})
	los := NewLOS(board)

	for i := 0; i < 3; i++ {
		if los.CanSee(at(0, 5), at(5, 5)) {
			t.Fatal("blocked pair should stay blocked on every query")
		}
	}
	los.Reset()
	if los.CanSee(at(0, 5), at(5, 5)) {
		t.Error("result must be identical after a cache reset")
	}
}
