package timeline

// Resolution is the authoritative per-item timing computed for one track.
// Slices are indexed like track.Items; transitions keep their own extents.
type Resolution struct {
	Starts        []int
	Ends          []int
	InAdjustments []int
}

// Resolve computes authoritative clip boundaries for a track whose clips may
// carry Sentinel boundaries next to transitions. The file format encodes a
// transition's overlap implicitly: the transition item states its visible
// extent, and the overlapped neighbor states -1 for the boundary the
// transition owns.
//
// For each transition, the cut point ("transition time") is chosen by
// alignment: center cuts at the midpoint, start/start-black at the
// transition's start, end/end-black at its end. With no alignment the side
// actually overlapped decides (left neighbor only: the end; right neighbor
// only: the start; both or neither: the midpoint). The cut point replaces
// each sentinel neighbor boundary, and a right neighbor additionally records
// an in-point adjustment of cut minus transition start, the media it plays
// during the overlap.
//
// Resolve does not mutate the track. Applying a resolution and resolving
// again is a fixed point: no sentinels remain, so nothing changes.
func Resolve(track *Track) Resolution {
	n := len(track.Items)
	res := Resolution{
		Starts:        make([]int, n),
		Ends:          make([]int, n),
		InAdjustments: make([]int, n),
	}
	for i, item := range track.Items {
		res.Starts[i] = item.Start
		res.Ends[i] = item.End
	}

	for i, item := range track.Items {
		if !item.IsTransition() {
			continue
		}
		applyLeft := i > 0 && res.Ends[i-1] == Sentinel
		applyRight := i < n-1 && res.Starts[i+1] == Sentinel

		var cut int
		switch {
		case item.Alignment == AlignCenter:
			cut = midpoint(res.Starts[i], res.Ends[i])
		case item.Alignment == AlignStart || item.Alignment == AlignStartBlack:
			cut = res.Starts[i]
		case item.Alignment == AlignEnd || item.Alignment == AlignEndBlack:
			cut = res.Ends[i]
		case applyLeft && !applyRight:
			cut = res.Ends[i]
		case applyRight && !applyLeft:
			cut = res.Starts[i]
		default:
			cut = midpoint(res.Starts[i], res.Ends[i])
		}

		if applyLeft {
			res.Ends[i-1] = cut
		}
		if applyRight {
			res.Starts[i+1] = cut
			res.InAdjustments[i+1] = cut - res.Starts[i]
		}
	}
	return res
}

// Apply writes the resolved boundaries back onto the track's items,
// folding each in-point adjustment into the item's In.
func (r Resolution) Apply(track *Track) {
	for i, item := range track.Items {
		item.Start = r.Starts[i]
		item.End = r.Ends[i]
		item.In += r.InAdjustments[i]
	}
}

func midpoint(start, end int) int {
	return (start + end) / 2
}
