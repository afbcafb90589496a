package algo

import "github.com/elektrokombinacija/mapf-pibt/internal/core"

// DistanceOracle answers shortest walkable distances to one goal cell.
//
// Distances are computed lazily: a query resumes a breadth-first search
// rooted at the goal only until the requested cell has been reached (or the
// goal's component is exhausted), and every distance assigned along the way
// is cached for later queries. The search state is never exposed.
//
// Cells outside the goal's connected component, obstacles and out-of-bounds
// coordinates report Unreachable(), which equals the grid's cell count.
//
// A DistanceOracle is not safe for concurrent use.
type DistanceOracle struct {
	grid        *core.Grid
	goal        core.Coord
	unreachable int

	dist     []int  // per cell; unreachable until enqueued
	enqueued []bool // per cell
	queue    []int  // BFS frontier (cell indices), consumed from head
	head     int
	expanded int // frontier pops, for observing laziness
	scratch  []core.Coord
}

// NewDistanceOracle creates an oracle for goal on grid. No search work is
// done until the first query.
func NewDistanceOracle(grid *core.Grid, goal core.Coord) *DistanceOracle {
	return &DistanceOracle{
		grid:        grid,
		goal:        goal,
		unreachable: grid.Size(),
	}
}

// Goal returns the cell all distances are measured to.
func (o *DistanceOracle) Goal() core.Coord {
	return o.goal
}

// Unreachable returns the sentinel distance used for cells that cannot
// reach the goal.
func (o *DistanceOracle) Unreachable() int {
	return o.unreachable
}

// Distance returns the length of a shortest 4-connected walkable path from
// c to the goal, or Unreachable().
func (o *DistanceOracle) Distance(c core.Coord) int {
	if !o.grid.Walkable(c) {
		return o.unreachable
	}
	o.init()

	idx := o.grid.Index(c)
	for !o.enqueued[idx] && o.head < len(o.queue) {
		o.expand()
	}
	return o.dist[idx]
}

func (o *DistanceOracle) init() {
	if o.dist != nil {
		return
	}
	n := o.grid.Size()
	o.dist = make([]int, n)
	o.enqueued = make([]bool, n)
	for i := range o.dist {
		o.dist[i] = o.unreachable
	}
	if o.grid.Walkable(o.goal) {
		g := o.grid.Index(o.goal)
		o.dist[g] = 0
		o.enqueued[g] = true
		o.queue = append(o.queue, g)
	}
}

// expand pops one frontier cell and enqueues its undiscovered neighbours.
func (o *DistanceOracle) expand() {
	u := o.queue[o.head]
	o.head++
	o.expanded++

	d := o.dist[u] + 1
	o.scratch = o.grid.AppendNeighbors(o.scratch[:0], o.grid.Coord(u))
	for _, nb := range o.scratch {
		v := o.grid.Index(nb)
		if o.enqueued[v] {
			continue
		}
		o.enqueued[v] = true
		o.dist[v] = d
		o.queue = append(o.queue, v)
	}

	if o.head == len(o.queue) {
		// Component exhausted; every unresolved cell is now final.
		o.queue, o.head = nil, 0
	}
}
