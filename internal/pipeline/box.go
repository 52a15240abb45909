package pipeline

// roiBox is a tracked face region in image pixel space.
type roiBox struct {
	StartX, StartY float32
	EndX, EndY     float32
}

// Width returns box width
func (b roiBox) Width() float32 {
	return b.EndX - b.StartX
}

// Height returns box height
func (b roiBox) Height() float32 {
	return b.EndY - b.StartY
}

// squarify returns an equal-sided box around the same center, sized by
// the longer edge.
func squarify(b roiBox) roiBox {
	cx := (b.StartX + b.EndX) / 2
	cy := (b.StartY + b.EndY) / 2
	half := b.Width()
	if b.Height() > half {
		half = b.Height()
	}
	half /= 2
	return roiBox{
		StartX: cx - half,
		StartY: cy - half,
		EndX:   cx + half,
		EndY:   cy + half,
	}
}

// enlarge scales a box about its center.
func enlarge(b roiBox, factor float32) roiBox {
	cx := (b.StartX + b.EndX) / 2
	cy := (b.StartY + b.EndY) / 2
	halfW := b.Width() / 2 * factor
	halfH := b.Height() / 2 * factor
	return roiBox{
		StartX: cx - halfW,
		StartY: cy - halfH,
		EndX:   cx + halfW,
		EndY:   cy + halfH,
	}
}

// boundingBoxOf computes the tight box around interleaved x,y coords.
func boundingBoxOf(coords []float32) roiBox {
	if len(coords) < 2 {
		return roiBox{}
	}
	box := roiBox{StartX: coords[0], StartY: coords[1], EndX: coords[0], EndY: coords[1]}
	for i := 2; i+1 < len(coords); i += 2 {
		x, y := coords[i], coords[i+1]
		if x < box.StartX {
			box.StartX = x
		}
		if x > box.EndX {
			box.EndX = x
		}
		if y < box.StartY {
			box.StartY = y
		}
		if y > box.EndY {
			box.EndY = y
		}
	}
	return box
}
