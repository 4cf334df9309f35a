package mapdata

// DecodeRuns expands a run-length pixel stream into explicit coordinates.
// The stream is consumed as (x, y, count) triples, each describing count
// consecutive pixels from (x,y) along the positive x axis. A trailing
// partial triple is dropped rather than rejected: a remainder shorter than
// three values cannot describe a run, and a truncated feed is otherwise
// usable. A count of zero or less contributes no pixels. Output order
// follows encoding order.
func DecodeRuns(values []int) []Point {
	pixels := make([]Point, 0, runTotal(values))
	for i := 0; i+2 < len(values); i += 3 {
		x, y, count := values[i], values[i+1], values[i+2]
		for j := 0; j < count; j++ {
			pixels = append(pixels, Point{X: x + j, Y: y})
		}
	}
	return pixels
}

// runTotal sums the run counts so DecodeRuns can allocate once.
func runTotal(values []int) int {
	total := 0
	for i := 2; i < len(values); i += 3 {
		if values[i] > 0 {
			total += values[i]
		}
	}
	return total
}
