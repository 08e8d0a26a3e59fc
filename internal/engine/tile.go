package engine

import "fmt"

// Tile is one rectangular window of the source extent, half-open on both
// axes. Interior tiles are full-sized; tiles touching the bottom or right
// edge are clipped to the extent.
type Tile struct {
	Y0, Y1 int
	X0, X1 int
}

// Height returns the tile row count.
func (t Tile) Height() int { return t.Y1 - t.Y0 }

// Width returns the tile column count.
func (t Tile) Width() int { return t.X1 - t.X0 }

func (t Tile) String() string {
	return fmt.Sprintf("rows %d:%d cols %d:%d", t.Y0, t.Y1, t.X0, t.X1)
}

// TileIterator walks an extent in row-major tile order. The tiles are an
// exact partition: every pixel belongs to exactly one tile.
type TileIterator struct {
	height, width         int
	tileHeight, tileWidth int
	y, x                  int
}

// NewTileIterator partitions a height x width extent into tiles of at most
// tileHeight x tileWidth pixels.
func NewTileIterator(height, width, tileHeight, tileWidth int) (*TileIterator, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("extent %dx%d must be positive", height, width)
	}
	if tileHeight <= 0 || tileWidth <= 0 {
		return nil, fmt.Errorf("tile size %dx%d must be positive", tileHeight, tileWidth)
	}
	return &TileIterator{height: height, width: width, tileHeight: tileHeight, tileWidth: tileWidth}, nil
}

// Next returns the next tile in row-major order, or false when exhausted.
func (it *TileIterator) Next() (Tile, bool) {
	if it.y >= it.height {
		return Tile{}, false
	}
	t := Tile{
		Y0: it.y, Y1: minInt(it.y+it.tileHeight, it.height),
		X0: it.x, X1: minInt(it.x+it.tileWidth, it.width),
	}
	it.x += it.tileWidth
	if it.x >= it.width {
		it.x = 0
		it.y += it.tileHeight
	}
	return t, true
}

// Reset rewinds the iterator to the first tile.
func (it *TileIterator) Reset() {
	it.y, it.x = 0, 0
}

// Count returns the total number of tiles in the partition.
func (it *TileIterator) Count() int {
	rows := (it.height + it.tileHeight - 1) / it.tileHeight
	cols := (it.width + it.tileWidth - 1) / it.tileWidth
	return rows * cols
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
