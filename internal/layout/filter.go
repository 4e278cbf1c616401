package layout

// FilterConfig configures degenerate-slice filtering.
type FilterConfig struct {
	// MinSize is the pixel dimension at or below which a slice is dropped.
	// Slices this small are measurement noise: hairline artifacts and
	// clustering remnants with no transcribable content.
	MinSize float64
}

// DefaultFilterConfig returns the filter default of 15px at the working DPI.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MinSize: 15}
}

// FilterSlices drops every slice whose width or height is at or below the
// minimum size. Surviving slices keep their relative order and their
// original order indices; the indices are not renumbered, so gaps are
// expected. Applying the filter twice equals applying it once.
func FilterSlices(slices []Slice, config FilterConfig) (kept, dropped []Slice) {
	if config.MinSize <= 0 {
		config.MinSize = DefaultFilterConfig().MinSize
	}
	for _, s := range slices {
		if s.BBox.Width() <= config.MinSize || s.BBox.Height() <= config.MinSize {
			dropped = append(dropped, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, dropped
}
