package domain

import "fmt"

// Coordinate is a geographic position after reprojection to the target EPSG.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Grid holds the reprojected coordinate of every cell of the measurement
// grid, indexed by (row, column). It is immutable after construction and
// shared read-only by all downstream stages.
type Grid struct {
	cells [][]Coordinate
}

// NewGrid wraps a rectangular cell matrix. It fails on ragged input because
// mask building and file iteration both assume fixed dimensions.
func NewGrid(cells [][]Coordinate) (Grid, error) {
	if len(cells) == 0 {
		return Grid{}, fmt.Errorf("grid has no rows")
	}
	cols := len(cells[0])
	if cols == 0 {
		return Grid{}, fmt.Errorf("grid has no columns")
	}
	for i, row := range cells {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("grid is not rectangular: row %d has %d columns, expected %d", i, len(row), cols)
		}
	}
	return Grid{cells: cells}, nil
}

// Rows returns the number of grid rows.
func (g Grid) Rows() int { return len(g.cells) }

// Cols returns the number of grid columns.
func (g Grid) Cols() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// At returns the coordinate of the cell at (row, col).
func (g Grid) At(row, col int) Coordinate { return g.cells[row][col] }
