// Package core defines domain models for PIBT scheduling on grids.
package core

import (
	"encoding/json"
	"fmt"
)

// Coord identifies a grid cell by row and column.
type Coord struct {
	Row, Col int
}

// C is shorthand for Coord{Row: row, Col: col}.
func C(row, col int) Coord {
	return Coord{Row: row, Col: col}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add returns c shifted by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}
}

// Manhattan returns the L1 distance between c and o.
func (c Coord) Manhattan(o Coord) int {
	return abs(c.Row-o.Row) + abs(c.Col-o.Col)
}

// Adjacent reports whether o is one orthogonal step away from c.
func (c Coord) Adjacent(o Coord) bool {
	return c.Manhattan(o) == 1
}

// MarshalJSON encodes the coordinate as [row, col].
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON decodes a [row, col] pair.
func (c *Coord) UnmarshalJSON(data []byte) error {
	var rc [2]int
	if err := json.Unmarshal(data, &rc); err != nil {
		return fmt.Errorf("core: coordinate must be [row, col]: %w", err)
	}
	c.Row, c.Col = rc[0], rc[1]
	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// AgentID indexes an agent in [0, N).
type AgentID int

// Direction is one of the four grid moves.
type Direction int

const (
	West Direction = iota
	East
	North
	South
)

func (d Direction) String() string {
	return [...]string{"West", "East", "North", "South"}[d]
}

// Offset returns the coordinate delta of a move in direction d.
func (d Direction) Offset() Coord {
	switch d {
	case West:
		return Coord{Col: -1}
	case East:
		return Coord{Col: 1}
	case North:
		return Coord{Row: -1}
	case South:
		return Coord{Row: 1}
	default:
		return Coord{}
	}
}

// Directions is the fixed neighbour order used everywhere a deterministic
// tie-break between moves is needed.
var Directions = [4]Direction{West, East, North, South}
