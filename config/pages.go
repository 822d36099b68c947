package config

// Page identifies a top-level view
type Page int

const (
	PageWaves Page = iota
	PageDetails
	PageSettings
	PageHome
)

// ClickableArea represents a clickable region for mouse support
type ClickableArea struct {
	X, Y          int
	Width, Height int
	Index         int
}

// Contains reports whether the cell (x, y) falls inside the area.
func (a ClickableArea) Contains(x, y int) bool {
	return x >= a.X && x < a.X+a.Width && y >= a.Y && y < a.Y+a.Height
}
