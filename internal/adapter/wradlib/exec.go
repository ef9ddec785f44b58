// Package wradlib bridges to the external composite codec: a helper command
// (typically a thin wradlib-based script) that decodes RADOLAN binary files
// and computes the reprojected coordinate grid, emitting JSON on stdout.
// The binary format and the projection mathematics live entirely in that
// helper; this package only shells out and validates the results.
package wradlib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/SENERGY-Platform/import-radolan/internal/domain"
)

// Decoder implements domain.GridDecoder by invoking `<cmd> decode <file>`.
type Decoder struct {
	cmd    string
	logger *slog.Logger
}

// NewDecoder creates a Decoder using the given helper command.
func NewDecoder(cmd string, logger *slog.Logger) *Decoder {
	return &Decoder{cmd: cmd, logger: logger}
}

type decodeOutput struct {
	Values     [][]float64 `json:"values"`
	NoDataFlag float64     `json:"nodataflag"`
	Datetime   time.Time   `json:"datetime"`
	Precision  float64     `json:"precision"`
}

func (d *Decoder) Decode(ctx context.Context, path string) (domain.Composite, error) {
	out, err := exec.CommandContext(ctx, d.cmd, "decode", path).Output()
	if err != nil {
		return domain.Composite{}, &domain.DecodeError{Path: path, Err: commandError(err)}
	}

	var decoded decodeOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return domain.Composite{}, &domain.DecodeError{Path: path, Err: fmt.Errorf("parse decoder output: %w", err)}
	}
	if len(decoded.Values) == 0 {
		return domain.Composite{}, &domain.DecodeError{Path: path, Err: errors.New("decoder returned no values")}
	}

	return domain.Composite{
		Values:      decoded.Values,
		NoDataValue: decoded.NoDataFlag,
		Timestamp:   decoded.Datetime,
		Precision:   decoded.Precision,
	}, nil
}

// Projector implements domain.GridProjector by invoking
// `<cmd> grid <rows> <cols> <epsg>`, which prints the reprojected cell
// coordinates as a JSON matrix of [lon, lat] pairs.
type Projector struct {
	cmd    string
	logger *slog.Logger
}

// NewProjector creates a Projector using the given helper command.
func NewProjector(cmd string, logger *slog.Logger) *Projector {
	return &Projector{cmd: cmd, logger: logger}
}

func (p *Projector) ProjectGrid(ctx context.Context, rows, cols, epsg int) (domain.Grid, error) {
	p.logger.Debug("projecting grid", "rows", rows, "cols", cols, "epsg", epsg)
	out, err := exec.CommandContext(ctx, p.cmd, "grid",
		strconv.Itoa(rows), strconv.Itoa(cols), strconv.Itoa(epsg)).Output()
	if err != nil {
		return domain.Grid{}, fmt.Errorf("project grid: %w", commandError(err))
	}

	var pairs [][][2]float64
	if err := json.Unmarshal(out, &pairs); err != nil {
		return domain.Grid{}, fmt.Errorf("parse projector output: %w", err)
	}

	cells := make([][]domain.Coordinate, len(pairs))
	for i, row := range pairs {
		cells[i] = make([]domain.Coordinate, len(row))
		for j, pair := range row {
			cells[i][j] = domain.Coordinate{Lon: pair[0], Lat: pair[1]}
		}
	}
	grid, err := domain.NewGrid(cells)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("projector output: %w", err)
	}
	if grid.Rows() != rows || grid.Cols() != cols {
		return domain.Grid{}, fmt.Errorf("projector output: got %dx%d grid, expected %dx%d", grid.Rows(), grid.Cols(), rows, cols)
	}
	return grid, nil
}

// commandError surfaces the helper's stderr, which otherwise vanishes into
// a bare exit status.
func commandError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, exitErr.Stderr)
	}
	return err
}
