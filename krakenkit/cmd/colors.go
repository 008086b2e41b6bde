package cmd

import (
	"hash/fnv"
	"image/color"
)

// colorFunc assigns a chart color to a category value. The assignment strategy
// is injectable so tests (and anyone who dislikes the defaults) can swap it.
type colorFunc func(category string) color.Color

// defaultColors derives a stable color from the category name, so re-running
// a plot yields identical output and the same taxon keeps its color across
// charts. Channels are squeezed away from the extremes to stay visible on a
// white background.
func defaultColors() colorFunc {
	return func(category string) color.Color {
		h := fnv.New32a()
		_, _ = h.Write([]byte(category))
		sum := h.Sum32()
		squeeze := func(v uint32) uint8 {
			return uint8(40 + v%176)
		}
		return color.RGBA{
			R: squeeze(sum),
			G: squeeze(sum >> 8),
			B: squeeze(sum >> 16),
			A: 255,
		}
	}
}
