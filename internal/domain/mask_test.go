package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGrid builds a small grid whose cell (i, j) sits at lon=10+j*0.1,
// lat=50+i*0.1.
func testGrid(t *testing.T, rows, cols int) Grid {
	t.Helper()
	cells := make([][]Coordinate, rows)
	for i := range cells {
		cells[i] = make([]Coordinate, cols)
		for j := range cells[i] {
			cells[i][j] = Coordinate{Lon: 10 + float64(j)*0.1, Lat: 50 + float64(i)*0.1}
		}
	}
	grid, err := NewGrid(cells)
	require.NoError(t, err)
	return grid
}

func TestBuildMaskNoBoxes(t *testing.T) {
	grid := testGrid(t, 3, 2)

	mask := BuildMask(grid, nil)

	want := Mask{
		{0, 0}, {0, 1},
		{1, 0}, {1, 1},
		{2, 0}, {2, 1},
	}
	if diff := cmp.Diff(want, mask); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMaskSelectsCellsInBoxes(t *testing.T) {
	grid := testGrid(t, 5, 5)

	// Covers cells with lat in [50.1, 50.2] and lon in [10.1, 10.2]:
	// rows 1-2, cols 1-2. Bounds are inclusive.
	boxes := []BoundingBox{{MinLon: 10.1, MinLat: 50.1, MaxLon: 10.2, MaxLat: 50.2}}

	mask := BuildMask(grid, boxes)

	want := Mask{{1, 1}, {1, 2}, {2, 1}, {2, 2}}
	if diff := cmp.Diff(want, mask); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}

	for _, cell := range mask {
		c := grid.At(cell.Row, cell.Col)
		assert.True(t, InAnyBBox(c.Lat, c.Lon, boxes), "cell %v outside all boxes", cell)
	}
}

func TestBuildMaskMultipleBoxes(t *testing.T) {
	grid := testGrid(t, 5, 5)

	boxes := []BoundingBox{
		{MinLon: 10.0, MinLat: 50.0, MaxLon: 10.0, MaxLat: 50.0},   // exactly cell (0,0)
		{MinLon: 10.35, MinLat: 50.35, MaxLon: 10.5, MaxLat: 50.5}, // cell (4,4)
	}

	mask := BuildMask(grid, boxes)

	want := Mask{{0, 0}, {4, 4}}
	if diff := cmp.Diff(want, mask); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMaskRowMajorOrder(t *testing.T) {
	grid := testGrid(t, 4, 4)
	boxes := []BoundingBox{{MinLon: 10, MinLat: 50, MaxLon: 11, MaxLat: 51}}

	mask := BuildMask(grid, boxes)

	require.Len(t, mask, 16)
	for i := 1; i < len(mask); i++ {
		prev, cur := mask[i-1], mask[i]
		ordered := cur.Row > prev.Row || (cur.Row == prev.Row && cur.Col > prev.Col)
		assert.True(t, ordered, "mask not in row-major order at %d: %v -> %v", i, prev, cur)
	}
}

func TestBuildMaskNoMatches(t *testing.T) {
	grid := testGrid(t, 3, 3)
	boxes := []BoundingBox{{MinLon: 20, MinLat: 60, MaxLon: 21, MaxLat: 61}}

	assert.Empty(t, BuildMask(grid, boxes))
}

func TestNewGridRejectsRaggedInput(t *testing.T) {
	_, err := NewGrid([][]Coordinate{
		{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}},
		{{Lon: 1, Lat: 2}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not rectangular")
}
