// Package differ implements the tile-based frame differ (C4): it compares
// two RGB565 frames and reports either a bounding dirty rectangle or a
// full-frame marker.
package differ

import (
	"github.com/devodan69/smartscreen/internal/xerrors"
)

// DefaultTile and DefaultMaxRatio match the spec's default tuning.
const (
	DefaultTile     = 32
	DefaultMaxRatio = 0.35
)

// Rect is an axis-aligned dirty rectangle in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// IsFullFrame reports whether r covers the entire width x height frame —
// the full-refresh marker.
func (r Rect) IsFullFrame(width, height int) bool {
	return r.X == 0 && r.Y == 0 && r.W == width && r.H == height
}

// Options tunes the tile scan. Diff substitutes DefaultOptions() when
// Tile is not positive, so the zero value behaves like the defaults.
type Options struct {
	Tile     int
	MaxRatio float64
}

func DefaultOptions() Options {
	return Options{Tile: DefaultTile, MaxRatio: DefaultMaxRatio}
}

// Diff scans previous and current tile-by-tile and returns the changed
// region:
//   - no changes: nil
//   - changed-tile coverage exceeds opts.MaxRatio of the frame: a single
//     full-frame rect (the "mostly changed -> just redraw" heuristic)
//   - otherwise: a single rect bounding every changed tile
//
// previous and current must both be width*height*2 bytes (RGB565 LE).
func Diff(previous, current []byte, width, height int, opts Options) ([]Rect, error) {
	expected := width * height * 2
	if len(previous) != expected || len(current) != expected {
		return nil, xerrors.New(xerrors.InvalidArgument, "frame sizes must match width*height*2")
	}
	if opts.Tile <= 0 {
		opts = DefaultOptions()
	}
	tile := opts.Tile
	stride := width * 2

	var minX, minY, maxX, maxY int
	changedTiles := 0
	first := true

	for y := 0; y < height; y += tile {
		h := tile
		if height-y < h {
			h = height - y
		}
		for x := 0; x < width; x += tile {
			w := tile
			if width-x < w {
				w = width - x
			}
			if !tileChanged(previous, current, x, y, w, h, stride) {
				continue
			}
			changedTiles++
			if first {
				minX, minY, maxX, maxY = x, y, x, y
				first = false
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if changedTiles == 0 {
		return nil, nil
	}

	changedPixels := float64(changedTiles) * float64(tile) * float64(tile)
	if changedPixels/float64(width*height) > opts.MaxRatio {
		return []Rect{{X: 0, Y: 0, W: width, H: height}}, nil
	}

	rectW := width - minX
	if w := (maxX - minX) + tile; w < rectW {
		rectW = w
	}
	rectH := height - minY
	if h := (maxY - minY) + tile; h < rectH {
		rectH = h
	}
	return []Rect{{X: minX, Y: minY, W: rectW, H: rectH}}, nil
}

func tileChanged(previous, current []byte, x, y, w, h, stride int) bool {
	for row := 0; row < h; row++ {
		start := (y+row)*stride + x*2
		end := start + w*2
		if !bytesEqual(previous[start:end], current[start:end]) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
