// Package grid converts between row-major cell indices and x/y coordinates.
package grid

// GetGridCoords returns the column and row of a row-major index in a grid
// that is cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index returns the row-major index of (x, y) in a grid that is cols wide.
func Index(x, y, cols int) int {
	return y*cols + x
}

// Wrap reduces v into [0, n), also for negative values.
func Wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
