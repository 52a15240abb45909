package facemesh

// AnnotationGroup names one semantic face region and the mesh indices
// that make it up. Index order within a group is anatomically meaningful
// and must not be reordered.
type AnnotationGroup struct {
	Name    string
	Indices []int
}

// meshAnnotations is the fixed 468-point mesh region table. Groups are
// listed in their canonical order.
var meshAnnotations = []AnnotationGroup{
	{"silhouette", []int{
		10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
		397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
		172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
	}},
	{"lipsUpperOuter", []int{61, 185, 40, 39, 37, 0, 267, 269, 270, 409, 291}},
	{"lipsLowerOuter", []int{146, 91, 181, 84, 17, 314, 405, 321, 375, 291}},
	{"lipsUpperInner", []int{78, 191, 80, 81, 82, 13, 312, 311, 310, 415, 308}},
	{"lipsLowerInner", []int{78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308}},
	{"rightEyeUpper0", []int{246, 161, 160, 159, 158, 157, 173}},
	{"rightEyeLower0", []int{33, 7, 163, 144, 145, 153, 154, 155, 133}},
	{"rightEyeUpper1", []int{247, 30, 29, 27, 28, 56, 190}},
	{"rightEyeLower1", []int{130, 25, 110, 24, 23, 22, 26, 112, 243}},
	{"rightEyeUpper2", []int{113, 225, 224, 223, 222, 221, 189}},
	{"rightEyeLower2", []int{226, 31, 228, 229, 230, 231, 232, 233, 244}},
	{"rightEyeLower3", []int{143, 111, 117, 118, 119, 120, 121, 128, 245}},
	{"rightEyebrowUpper", []int{156, 70, 63, 105, 66, 107, 55, 193}},
	{"rightEyebrowLower", []int{35, 124, 46, 53, 52, 65}},
	{"leftEyeUpper0", []int{466, 388, 387, 386, 385, 384, 398}},
	{"leftEyeLower0", []int{263, 249, 390, 373, 374, 380, 381, 382, 362}},
	{"leftEyeUpper1", []int{467, 260, 259, 257, 258, 286, 414}},
	{"leftEyeLower1", []int{359, 255, 339, 254, 253, 252, 256, 341, 463}},
	{"leftEyeUpper2", []int{342, 445, 444, 443, 442, 441, 413}},
	{"leftEyeLower2", []int{446, 261, 448, 449, 450, 451, 452, 453, 464}},
	{"leftEyeLower3", []int{372, 340, 346, 347, 348, 349, 350, 357, 465}},
	{"leftEyebrowUpper", []int{383, 300, 293, 334, 296, 336, 285, 417}},
	{"leftEyebrowLower", []int{265, 353, 276, 283, 282, 295}},
	{"midwayBetweenEyes", []int{168}},
	{"noseTip", []int{1}},
	{"noseBottom", []int{2}},
	{"noseRightCorner", []int{98}},
	{"noseLeftCorner", []int{327}},
	{"rightCheek", []int{205}},
	{"leftCheek", []int{425}},
}

// Annotations returns the mesh region table in canonical group order.
// Useful for callers who want index semantics without running inference.
func Annotations() []AnnotationGroup {
	return meshAnnotations
}

// annotate selects the scaled-mesh points for every region in the table,
// preserving each group's index order.
func annotate(scaledMesh []Point) map[string][]Point {
	annotations := make(map[string][]Point, len(meshAnnotations))
	for _, group := range meshAnnotations {
		points := make([]Point, len(group.Indices))
		for i, idx := range group.Indices {
			points[i] = scaledMesh[idx]
		}
		annotations[group.Name] = points
	}
	return annotations
}
