package dungeon

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

// maxNearestLinks caps the links a room holds under the nearest-neighbour
// policy. Repair links respect it whenever some candidate is under the cap.
const maxNearestLinks = 4

// Connect applies kind's connection policy over the full room set and then
// repairs connectivity.
//
// Precondition: g must already hold the entrance at index 0.
// Postcondition: every room is reachable from index 0.
func Connect(g *Graph, kind LayoutKind, src dice.Source) error {
	l, err := LayoutFor(kind)
	if err != nil {
		return err
	}
	l.Connect(g, src)
	EnsureConnected(g)
	return nil
}

// connectSequential links rooms in arena order, closing the loop when wrap.
func connectSequential(g *Graph, wrap bool) {
	for i := 1; i < g.Len(); i++ {
		g.Connect(i-1, i)
	}
	if wrap && g.Len() > 2 {
		g.Connect(g.Len()-1, 0)
	}
}

// connectStar links the entrance to the first 1–3 non-entrance rooms.
func connectStar(g *Graph, src dice.Source) {
	spokes := dice.Between(src, 1, 3)
	for i := 1; i <= spokes && i < g.Len(); i++ {
		g.Connect(0, i)
	}
}

// connectNearest links each room to its 2–3 nearest rooms by Manhattan
// distance, skipping rooms that already hold maxNearestLinks links. A room
// still isolated afterwards is linked to its nearest room under the cap, or
// to its nearest room outright when every other room is saturated.
func connectNearest(g *Graph, src dice.Source) {
	n := g.Len()
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		order := nearestOrder(g, i)
		want := dice.Between(src, 2, 3)
		added := 0
		for _, c := range order {
			if added >= want || g.Degree(i) >= maxNearestLinks {
				break
			}
			if g.Degree(c) >= maxNearestLinks {
				continue
			}
			if g.Connect(i, c) {
				added++
			}
		}
		if g.Degree(i) == 0 {
			g.Connect(i, nearestUnderCap(g, order))
		}
	}
}

// nearestUnderCap returns the first index in order with spare capacity,
// falling back to order[0].
func nearestUnderCap(g *Graph, order []int) int {
	for _, c := range order {
		if g.Degree(c) < maxNearestLinks {
			return c
		}
	}
	return order[0]
}

// nearestOrder returns every other index sorted by distance from i, ties
// broken by index.
func nearestOrder(g *Graph, i int) []int {
	order := make([]int, 0, g.Len()-1)
	for j := 0; j < g.Len(); j++ {
		if j != i {
			order = append(order, j)
		}
	}
	origin := g.Room(i)
	sort.SliceStable(order, func(a, b int) bool {
		da, db := manhattan(origin, g.Room(order[a])), manhattan(origin, g.Room(order[b]))
		if da != db {
			return da < db
		}
		return order[a] < order[b]
	})
	return order
}

// EnsureConnected joins every component unreachable from index 0 to the
// reachable set through its closest pair of rooms. Pairs where both rooms
// are under maxNearestLinks win over closer saturated pairs.
//
// Postcondition: Reachable(0) is true for every room.
func EnsureConnected(g *Graph) {
	if g.Len() < 2 {
		return
	}
	for {
		seen := g.Reachable(0)
		open, closest := bridge{from: -1}, bridge{from: -1}
		for a := range seen {
			if !seen[a] {
				continue
			}
			for b := range seen {
				if seen[b] {
					continue
				}
				d := manhattan(g.Room(a), g.Room(b))
				closest.offer(a, b, d)
				if g.Degree(a) < maxNearestLinks && g.Degree(b) < maxNearestLinks {
					open.offer(a, b, d)
				}
			}
		}
		switch {
		case open.from >= 0:
			g.Connect(open.from, open.to)
		case closest.from >= 0:
			g.Connect(closest.from, closest.to)
		default:
			return
		}
	}
}

// bridge tracks the closest candidate link seen so far.
type bridge struct {
	from, to, dist int
}

func (b *bridge) offer(from, to, dist int) {
	if b.from < 0 || dist < b.dist {
		b.from, b.to, b.dist = from, to, dist
	}
}

// CheckConnected returns an error naming the first room unreachable from
// the entrance.
func CheckConnected(g *Graph) error {
	for i, ok := range g.Reachable(0) {
		if !ok {
			return fmt.Errorf("dungeon: room %q unreachable from entrance", g.Room(i).ID)
		}
	}
	return nil
}
