package engine

import "github.com/pellston/hexhammer/pkg/hexgrid"

// sightResult is the cached visibility classification for one hex pair.
type sightResult struct {
	canSee  bool
	inCover bool
}

// LOS answers wall-aware visibility and cover questions between hexes.
// Results are cached per source hex for the duration of one activation;
// unit positions cannot change mid-activation, so the cache never goes
// stale before Reset.
type LOS struct {
	board *Board
	cache map[hexgrid.Coord]map[hexgrid.Coord]sightResult
}

// NewLOS creates a line-of-sight service over the board.
func NewLOS(board *Board) *LOS {
	return &LOS{
		board: board,
		cache: make(map[hexgrid.Coord]map[hexgrid.Coord]sightResult),
	}
}

// Reset drops the cache. The controller calls it whenever a unit moves or
// dies.
func (l *LOS) Reset() {
	l.cache = make(map[hexgrid.Coord]map[hexgrid.Coord]sightResult)
}

// CanSee reports whether a wall-free line exists from a to b.
func (l *LOS) CanSee(a, b hexgrid.Coord) bool {
	return l.trace(a, b).canSee
}

// InCover reports whether a target at b benefits from cover against fire
// from a: either b itself is a cover hex, or the line from a to b passes
// through one. An unseeable target is never in cover, it is simply hidden.
func (l *LOS) InCover(a, b hexgrid.Coord) bool {
	return l.trace(a, b).inCover
}

func (l *LOS) trace(a, b hexgrid.Coord) sightResult {
	if byTarget, ok := l.cache[a]; ok {
		if res, ok := byTarget[b]; ok {
			return res
		}
	}

	res := sightResult{canSee: true, inCover: l.board.IsCover(b)}
	for _, c := range hexgrid.Line(a, b) {
		if l.board.IsWall(c) {
			res = sightResult{}
			break
		}
		if l.board.IsCover(c) {
			res.inCover = true
		}
	}

	byTarget, ok := l.cache[a]
	if !ok {
		byTarget = make(map[hexgrid.Coord]sightResult)
		l.cache[a] = byTarget
	}
	byTarget[b] = res
	return res
}
