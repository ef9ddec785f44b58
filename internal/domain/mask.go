package domain

import "github.com/dhconnelly/rtreego"

// rectPadding pads degenerate rectangles so the R-tree accepts point queries
// and boxes with zero extent. Candidates are re-checked with the exact
// inclusive point-in-box test, so the padding cannot change the result.
const rectPadding = 1e-9

// CellIndex addresses one cell of the measurement grid.
type CellIndex struct {
	Row int
	Col int
}

// Mask is the precomputed subset of grid cells worth processing, in
// row-major scan order. It is built once per product configuration and
// reused for every decoded file, which is valid because the grid geometry
// is static per product.
type Mask []CellIndex

type bboxEntry struct {
	box  BoundingBox
	rect *rtreego.Rect
}

func (e *bboxEntry) Bounds() *rtreego.Rect { return e.rect }

// BuildMask returns the indices of all grid cells whose coordinate falls
// inside at least one bounding box, in row-major order. With no boxes every
// cell is returned. The boxes are indexed in an R-tree so that large box
// sets stay cheap across the 810k-cell grid; hits are confirmed with the
// exact inclusive containment test.
func BuildMask(grid Grid, boxes []BoundingBox) Mask {
	rows, cols := grid.Rows(), grid.Cols()

	if len(boxes) == 0 {
		mask := make(Mask, 0, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				mask = append(mask, CellIndex{Row: i, Col: j})
			}
		}
		return mask
	}

	tree := rtreego.NewTree(2, 2, 8)
	for _, box := range boxes {
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{box.MinLon - rectPadding, box.MinLat - rectPadding},
			rtreego.Point{box.MaxLon + rectPadding, box.MaxLat + rectPadding},
		)
		if err != nil {
			// NewRectFromPoints only fails on dimension mismatch,
			// which cannot happen with fixed 2D points.
			continue
		}
		tree.Insert(&bboxEntry{box: box, rect: rect})
	}

	var mask Mask
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := grid.At(i, j)
			point := rtreego.Point{c.Lon, c.Lat}
			for _, candidate := range tree.SearchIntersect(point.ToRect(rectPadding)) {
				if candidate.(*bboxEntry).box.Contains(c.Lat, c.Lon) {
					mask = append(mask, CellIndex{Row: i, Col: j})
					break
				}
			}
		}
	}
	return mask
}
