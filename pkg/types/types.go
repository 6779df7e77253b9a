package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized centre of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Subject is the dominant subject found in an uploaded background.
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// None reports whether no subject was found.
func (s Subject) None() bool {
	return s.Label == "none" || s.Confidence <= 0
}

// CenteredSubject is the neutral answer used when nothing was located.
func CenteredSubject(label string) Subject {
	return Subject{
		Label: label,
		Box:   Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
		Cx:    0.5,
		Cy:    0.5,
	}
}
