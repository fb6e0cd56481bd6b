package ffprobe

import "strings"

// Decision records whether a stream should be treated as interlaced and, if
// so, which field is dominant.
type Decision struct {
	Interlaced    bool
	TopFieldFirst bool
}

// Vertical resolutions that almost always indicate interlaced broadcast
// material when the container does not declare a field order.
var interlacedHeights = map[int]bool{
	480:  true,
	576:  true,
	1080: true,
}

// DecideInterlace classifies a video stream using its declared field order
// first, then falls back to a height heuristic. NTSC-height material (480)
// and bottom-field orders flip the dominant field; everything else defaults
// to top field first.
func DecideInterlace(stream *Stream) Decision {
	if stream == nil {
		return Decision{Interlaced: true, TopFieldFirst: true}
	}

	order := strings.ToLower(strings.TrimSpace(stream.FieldOrder))
	declared := strings.Contains(order, "tt") || strings.Contains(order, "bb") ||
		strings.Contains(order, "tb") || strings.Contains(order, "bt")

	interlaced := declared || interlacedHeights[stream.Height]
	if !interlaced {
		return Decision{}
	}

	tff := true
	if strings.Contains(order, "bb") || strings.Contains(order, "bt") {
		tff = false
	}
	if stream.Height == 480 {
		tff = false
	}
	return Decision{Interlaced: true, TopFieldFirst: tff}
}
