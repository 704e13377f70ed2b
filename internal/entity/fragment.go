package entity

// Fragment is one piece of text extracted from a PDF page with its
// horizontal extent [X0, X1] and vertical position Y0 (top-based, growing
// downward). Fragments are immutable and live only for the duration of one
// page's extraction.
type Fragment struct {
	Text string
	X0   float64
	X1   float64
	Y0   float64
}

// MidX is the horizontal midpoint used for field-band assignment.
func (f Fragment) MidX() float64 {
	return (f.X0 + f.X1) / 2
}
