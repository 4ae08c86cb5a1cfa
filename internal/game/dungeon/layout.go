package dungeon

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

// Layout is one graph-shape strategy. Place positions the base rooms (the
// entrance and specials are injected afterwards); Connect finalizes links
// over the full room set once specials are present.
type Layout interface {
	Kind() LayoutKind
	// Place returns exactly count rooms with deterministic ids.
	//
	// Precondition: count >= 1.
	Place(dungeonID string, count int, src dice.Source) *Graph
	// Connect adds the layout's connection policy to g.
	Connect(g *Graph, src dice.Source)
}

// LayoutFor returns the strategy for kind.
//
// Postcondition: Returns a ValidationError for an unknown kind.
func LayoutFor(kind LayoutKind) (Layout, error) {
	switch kind {
	case LayoutLinear:
		return linearLayout{}, nil
	case LayoutBranching:
		return branchingLayout{}, nil
	case LayoutCircular:
		return circularLayout{}, nil
	case LayoutMaze:
		return mazeLayout{}, nil
	case LayoutSpiral:
		return spiralLayout{}, nil
	case LayoutMultilevel:
		return multilevelLayout{}, nil
	default:
		return nil, &ValidationError{Field: "layout", Reason: fmt.Sprintf("unknown layout kind %q", kind)}
	}
}

// GenerateLayout places count base rooms using the strategy for kind.
//
// Precondition: count >= 1; kind must be one of AllLayouts.
// Postcondition: Returns a graph of exactly count rooms or a ValidationError.
func GenerateLayout(dungeonID string, count int, kind LayoutKind, src dice.Source) (*Graph, error) {
	if count < 1 {
		return nil, &ValidationError{Field: "room_count", Reason: fmt.Sprintf("must be >= 1, got %d", count)}
	}
	l, err := LayoutFor(kind)
	if err != nil {
		return nil, err
	}
	return l.Place(dungeonID, count, src), nil
}

func baseRoom(id string, x, y int) *Room {
	return &Room{ID: id, Kind: KindChamber, X: x, Y: y}
}

func roomID(dungeonID string, i int) string {
	return fmt.Sprintf("%s_room_%d", dungeonID, i)
}

// linearLayout is a chain along the x axis.
type linearLayout struct{}

func (linearLayout) Kind() LayoutKind { return LayoutLinear }

func (linearLayout) Place(dungeonID string, count int, _ dice.Source) *Graph {
	g := NewGraph(count)
	for i := 0; i < count; i++ {
		idx := g.Add(baseRoom(roomID(dungeonID, i), i+1, 0))
		if i > 0 {
			g.Connect(idx-1, idx)
		}
	}
	return g
}

func (linearLayout) Connect(g *Graph, _ dice.Source) { connectSequential(g, false) }

// branchingLayout grows a trunk along x with a branch room above and below
// every trunk room.
type branchingLayout struct{}

func (branchingLayout) Kind() LayoutKind { return LayoutBranching }

func (branchingLayout) Place(dungeonID string, count int, _ dice.Source) *Graph {
	g := NewGraph(count)
	occupied := make(map[[2]int]bool, count)
	offsets := [3]int{0, 2, -2}
	x := 1
	trunk, prevTrunk := -1, -1
	for i := 0; i < count; i++ {
		if i > 0 && i%3 == 0 {
			x++
		}
		px, py := x, offsets[i%3]
		for occupied[[2]int{px, py}] {
			px++
		}
		occupied[[2]int{px, py}] = true
		idx := g.Add(baseRoom(roomID(dungeonID, i), px, py))
		if i%3 == 0 {
			prevTrunk, trunk = trunk, idx
			if prevTrunk >= 0 {
				g.Connect(prevTrunk, trunk)
			}
			continue
		}
		g.Connect(trunk, idx)
	}
	return g
}

func (branchingLayout) Connect(g *Graph, src dice.Source) { connectStar(g, src) }

// circularLayout places rooms on a discretized circle forming one cycle.
type circularLayout struct{}

func (circularLayout) Kind() LayoutKind { return LayoutCircular }

func (circularLayout) Place(dungeonID string, count int, _ dice.Source) *Graph {
	g := NewGraph(count)
	radius := float64(max(2, count/6))
	for i := 0; i < count; i++ {
		theta := 2 * math.Pi * float64(i) / float64(count)
		x := int(math.Round(radius * math.Cos(theta)))
		y := int(math.Round(radius * math.Sin(theta)))
		idx := g.Add(baseRoom(roomID(dungeonID, i), x, y))
		if i > 0 {
			g.Connect(idx-1, idx)
		}
	}
	if count > 2 {
		g.Connect(count-1, 0)
	}
	return g
}

func (circularLayout) Connect(g *Graph, _ dice.Source) { connectSequential(g, true) }

var compass = [4][2]int{{0, -1}, {0, 1}, {1, 0}, {-1, 0}}

// mazeLayout places rooms along a random walk. Cells may repeat; links are
// left entirely to Connect.
type mazeLayout struct{}

func (mazeLayout) Kind() LayoutKind { return LayoutMaze }

func (mazeLayout) Place(dungeonID string, count int, src dice.Source) *Graph {
	g := NewGraph(count)
	x, y := 1, 0
	for i := 0; i < count; i++ {
		if i > 0 {
			step := compass[src.Intn(len(compass))]
			x, y = x+step[0], y+step[1]
		}
		g.Add(baseRoom(roomID(dungeonID, i), x, y))
	}
	return g
}

func (mazeLayout) Connect(g *Graph, src dice.Source) { connectNearest(g, src) }

// spiralLayout is a turtle walk that turns left with 20% probability.
type spiralLayout struct{}

func (spiralLayout) Kind() LayoutKind { return LayoutSpiral }

func (spiralLayout) Place(dungeonID string, count int, src dice.Source) *Graph {
	g := NewGraph(count)
	x, y := 1, 0
	dx, dy := 1, 0
	for i := 0; i < count; i++ {
		if i > 0 {
			if dice.Percent(src, 20) {
				dx, dy = -dy, dx
			}
			x, y = x+dx, y+dy
		}
		g.Add(baseRoom(roomID(dungeonID, i), x, y))
	}
	return g
}

func (spiralLayout) Connect(g *Graph, src dice.Source) { connectNearest(g, src) }

const (
	multilevelLevels = 3
	multilevelWidth  = 5
)

// multilevelLayout stacks three 5-wide grids along y.
type multilevelLayout struct{}

func (multilevelLayout) Kind() LayoutKind { return LayoutMultilevel }

func (multilevelLayout) Place(dungeonID string, count int, _ dice.Source) *Graph {
	g := NewGraph(count)
	perLevel := (count + multilevelLevels - 1) / multilevelLevels
	rows := (perLevel + multilevelWidth - 1) / multilevelWidth
	remaining := count
	for level := 0; level < multilevelLevels && remaining > 0; level++ {
		size := min(perLevel, remaining)
		for j := 0; j < size; j++ {
			id := fmt.Sprintf("%s_l%d_room_%d", dungeonID, level, j)
			x := j%multilevelWidth + 1
			y := level*(rows+1) + j/multilevelWidth
			g.Add(baseRoom(id, x, y))
		}
		remaining -= size
	}
	return g
}

func (multilevelLayout) Connect(g *Graph, src dice.Source) { connectNearest(g, src) }
