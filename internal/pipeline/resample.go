package pipeline

// cropAndResize samples the given box out of an HWC float image into an
// outW x outH patch using bilinear interpolation. Source coordinates
// outside the image are clamped to the border. The box is in pixel
// space and may extend past the image edges (tracked regions often do
// after enlarging).
func cropAndResize(data []float32, width, height, channels int, box roiBox, outW, outH int) []float32 {
	out := make([]float32, outH*outW*channels)

	stepX := float32(0)
	if outW > 1 {
		stepX = (box.Width() - 1) / float32(outW-1)
	}
	stepY := float32(0)
	if outH > 1 {
		stepY = (box.Height() - 1) / float32(outH-1)
	}

	for oy := 0; oy < outH; oy++ {
		sy := box.StartY + float32(oy)*stepY
		y0 := clampInt(int(sy), 0, height-1)
		y1 := clampInt(y0+1, 0, height-1)
		fy := sy - float32(int(sy))
		if sy < 0 {
			fy = 0
		}

		for ox := 0; ox < outW; ox++ {
			sx := box.StartX + float32(ox)*stepX
			x0 := clampInt(int(sx), 0, width-1)
			x1 := clampInt(x0+1, 0, width-1)
			fx := sx - float32(int(sx))
			if sx < 0 {
				fx = 0
			}

			for c := 0; c < channels; c++ {
				tl := data[(y0*width+x0)*channels+c]
				tr := data[(y0*width+x1)*channels+c]
				bl := data[(y1*width+x0)*channels+c]
				br := data[(y1*width+x1)*channels+c]

				top := tl + (tr-tl)*fx
				bottom := bl + (br-bl)*fx
				out[(oy*outW+ox)*channels+c] = top + (bottom-top)*fy
			}
		}
	}

	return out
}

func clampInt(x, min, max int) int {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
