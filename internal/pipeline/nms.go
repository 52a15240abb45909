package pipeline

import "sort"

// nonMaxSuppression drops lower-scored detections whose box overlaps a
// kept one beyond the IoU threshold.
func nonMaxSuppression(detections []Detection, iouThreshold float32) []Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if !keep[j] {
				continue
			}
			if iou(detections[i].Box, detections[j].Box) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]Detection, 0, len(detections))
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}

	return result
}

// iou calculates Intersection over Union of two boxes
func iou(a, b roiBox) float32 {
	x1 := max32(a.StartX, b.StartX)
	y1 := max32(a.StartY, b.StartY)
	x2 := min32(a.EndX, b.EndX)
	y2 := min32(a.EndY, b.EndY)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	areaA := a.Width() * a.Height()
	areaB := b.Width() * b.Height()
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
