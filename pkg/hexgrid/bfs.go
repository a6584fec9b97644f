package hexgrid

// Reachable performs a breadth-first expansion from start, visiting hexes for
// which passable returns true, out to at most maxDist steps. The start hex is
// not included in the result and is never passed to passable. Distances in the
// returned map are step counts along the shortest passable path.
func Reachable(start Coord, maxDist int, passable func(Coord) bool) map[Coord]int {
	dist := map[Coord]int{start: 0}
	frontier := []Coord{start}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		d := dist[cur]
		if d >= maxDist {
			continue
		}
		for _, n := range Neighbors(cur) {
			if _, seen := dist[n]; seen {
				continue
			}
			if !passable(n) {
				continue
			}
			dist[n] = d + 1
			frontier = append(frontier, n)
		}
	}

	delete(dist, start)
	return dist
}
