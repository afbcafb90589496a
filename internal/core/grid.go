package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGrid indicates a grid with no rows or no columns.
	ErrEmptyGrid = errors.New("core: grid must have at least one row and one column")
	// ErrNonRectangular indicates map rows of differing lengths.
	ErrNonRectangular = errors.New("core: all map rows must have the same length")
	// ErrOutOfBounds indicates a coordinate outside the grid.
	ErrOutOfBounds = errors.New("core: coordinate out of bounds")
	// ErrUnknownTile indicates an unrecognised character in a map row.
	ErrUnknownTile = errors.New("core: unknown map tile")
)

// Grid is an immutable 4-connected walkability matrix.
// Cells are stored row-major: index = row*Width + col.
type Grid struct {
	height, width int
	free          []bool
}

// NewGrid builds a height×width grid where every cell except the listed
// obstacles is walkable. Duplicate obstacles are allowed.
func NewGrid(height, width int, obstacles []Coord) (*Grid, error) {
	if height <= 0 || width <= 0 {
		return nil, ErrEmptyGrid
	}
	g := &Grid{
		height: height,
		width:  width,
		free:   make([]bool, height*width),
	}
	for i := range g.free {
		g.free[i] = true
	}
	for _, c := range obstacles {
		if !g.InBounds(c) {
			return nil, fmt.Errorf("%w: obstacle %v in %dx%d grid", ErrOutOfBounds, c, height, width)
		}
		g.free[g.Index(c)] = false
	}
	return g, nil
}

// ParseGrid builds a grid from ASCII rows. '.', 'G' and 'S' are walkable;
// '@', 'O', 'T', 'W' and '#' are obstacles.
func ParseGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	width := len(rows[0])
	var obstacles []Coord
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrNonRectangular, r, len(row), width)
		}
		for col, ch := range []byte(row) {
			switch ch {
			case '.', 'G', 'S':
			case '@', 'O', 'T', 'W', '#':
				obstacles = append(obstacles, Coord{Row: r, Col: col})
			default:
				return nil, fmt.Errorf("%w: %q at %v", ErrUnknownTile, ch, Coord{Row: r, Col: col})
			}
		}
	}
	return NewGrid(len(rows), width, obstacles)
}

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Size returns the total number of cells, walkable or not.
func (g *Grid) Size() int { return g.height * g.width }

// InBounds reports whether c lies within the grid boundaries.
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.height && c.Col >= 0 && c.Col < g.width
}

// Walkable reports whether c is in bounds and not an obstacle.
func (g *Grid) Walkable(c Coord) bool {
	return g.InBounds(c) && g.free[g.Index(c)]
}

// Index maps an in-bounds coordinate to its row-major index.
func (g *Grid) Index(c Coord) int {
	return c.Row*g.width + c.Col
}

// Coord converts a row-major index back to a coordinate.
func (g *Grid) Coord(idx int) Coord {
	return Coord{Row: idx / g.width, Col: idx % g.width}
}

// AppendNeighbors appends the walkable 4-neighbours of c to dst in
// Directions order and returns the extended slice.
func (g *Grid) AppendNeighbors(dst []Coord, c Coord) []Coord {
	if !g.Walkable(c) {
		return dst
	}
	for _, d := range Directions {
		n := c.Add(d.Offset())
		if g.Walkable(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

// Neighbors returns the walkable 4-neighbours of c.
func (g *Grid) Neighbors(c Coord) []Coord {
	return g.AppendNeighbors(make([]Coord, 0, 4), c)
}

// FreeCells lists every walkable cell in row-major order.
func (g *Grid) FreeCells() []Coord {
	cells := make([]Coord, 0, len(g.free))
	for i, ok := range g.free {
		if ok {
			cells = append(cells, g.Coord(i))
		}
	}
	return cells
}

// Obstacles lists every blocked cell in row-major order.
func (g *Grid) Obstacles() []Coord {
	var cells []Coord
	for i, ok := range g.free {
		if !ok {
			cells = append(cells, g.Coord(i))
		}
	}
	return cells
}

// Area is an inclusive rectangle of cells.
type Area struct {
	From, To Coord
}

// ExpandAreas flattens rectangles into their cells. Corners may be given in
// any order.
func ExpandAreas(areas []Area) []Coord {
	var cells []Coord
	for _, a := range areas {
		r0, r1 := minMax(a.From.Row, a.To.Row)
		c0, c1 := minMax(a.From.Col, a.To.Col)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				cells = append(cells, Coord{Row: r, Col: c})
			}
		}
	}
	return cells
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
