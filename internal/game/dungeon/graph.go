package dungeon

import "sort"

// Graph is the room arena: rooms stored contiguously, adjacency keyed by
// integer index, and an id→index lookup used only at the boundary.
//
// Invariant: adjacency is symmetric and never contains self-loops.
type Graph struct {
	rooms []*Room
	index map[string]int
	adj   [][]int
}

// NewGraph returns an empty graph with capacity for n rooms.
func NewGraph(n int) *Graph {
	return &Graph{
		rooms: make([]*Room, 0, n),
		index: make(map[string]int, n),
		adj:   make([][]int, 0, n),
	}
}

// Add appends r and returns its index.
//
// Precondition: r.ID must not already be present.
func (g *Graph) Add(r *Room) int {
	if _, dup := g.index[r.ID]; dup {
		panic("dungeon: duplicate room id " + r.ID)
	}
	i := len(g.rooms)
	g.rooms = append(g.rooms, r)
	g.adj = append(g.adj, nil)
	g.index[r.ID] = i
	return i
}

// Prepend inserts r at index 0, shifting every other room up by one.
// Adjacency is rewritten to the new indices.
func (g *Graph) Prepend(r *Room) {
	if _, dup := g.index[r.ID]; dup {
		panic("dungeon: duplicate room id " + r.ID)
	}
	rooms := make([]*Room, 0, len(g.rooms)+1)
	rooms = append(rooms, r)
	rooms = append(rooms, g.rooms...)

	adj := make([][]int, len(rooms))
	for i, nbrs := range g.adj {
		shifted := make([]int, len(nbrs))
		for j, n := range nbrs {
			shifted[j] = n + 1
		}
		adj[i+1] = shifted
	}

	g.rooms = rooms
	g.adj = adj
	for i, room := range g.rooms {
		g.index[room.ID] = i
	}
}

// Len returns the number of rooms.
func (g *Graph) Len() int { return len(g.rooms) }

// Room returns the room at index i.
func (g *Graph) Room(i int) *Room { return g.rooms[i] }

// Rooms returns the arena slice. Callers must not append to it.
func (g *Graph) Rooms() []*Room { return g.rooms }

// Index resolves a room id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Connect links a and b in both directions.
//
// Postcondition: Returns false for self-links and already-linked pairs.
func (g *Graph) Connect(a, b int) bool {
	if a == b || g.Linked(a, b) {
		return false
	}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return true
}

// Linked reports whether a and b are adjacent.
func (g *Graph) Linked(a, b int) bool {
	for _, n := range g.adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Degree returns the number of links at i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// Neighbors returns a sorted copy of the indices adjacent to i.
func (g *Graph) Neighbors(i int) []int {
	out := append([]int(nil), g.adj[i]...)
	sort.Ints(out)
	return out
}

// NeighborIDs returns the ids adjacent to i, sorted by index.
func (g *Graph) NeighborIDs(i int) []string {
	nbrs := g.Neighbors(i)
	ids := make([]string, len(nbrs))
	for j, n := range nbrs {
		ids[j] = g.rooms[n].ID
	}
	return ids
}

// Reachable runs a breadth-first traversal from start.
//
// Postcondition: result[i] is true iff room i is reachable from start.
func (g *Graph) Reachable(start int) []bool {
	seen := make([]bool, len(g.rooms))
	if len(g.rooms) == 0 {
		return seen
	}
	seen[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adj[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}

// PathTo returns the shortest path from start to the first index accepted
// by goal, excluding start itself. Returns nil when no such room is reachable.
func (g *Graph) PathTo(start int, goal func(i int) bool) []int {
	prev := make([]int, len(g.rooms))
	for i := range prev {
		prev[i] = -1
	}
	prev[start] = start
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur != start && goal(cur) {
			var path []int
			for n := cur; n != start; n = prev[n] {
				path = append(path, n)
			}
			for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
				path[l], path[r] = path[r], path[l]
			}
			return path
		}
		for _, n := range g.Neighbors(cur) {
			if prev[n] == -1 {
				prev[n] = cur
				queue = append(queue, n)
			}
		}
	}
	return nil
}

// Extent returns the bounding box of every room position.
func (g *Graph) Extent() (minX, minY, maxX, maxY int) {
	for i, r := range g.rooms {
		if i == 0 || r.X < minX {
			minX = r.X
		}
		if i == 0 || r.Y < minY {
			minY = r.Y
		}
		if i == 0 || r.X > maxX {
			maxX = r.X
		}
		if i == 0 || r.Y > maxY {
			maxY = r.Y
		}
	}
	return minX, minY, maxX, maxY
}

func manhattan(a, b *Room) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}
