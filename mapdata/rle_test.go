package mapdata

import (
	"reflect"
	"testing"
)

func TestDecodeRuns_SingleRun(t *testing.T) {
	got := DecodeRuns([]int{10, 10, 5})
	want := []Point{{10, 10}, {11, 10}, {12, 10}, {13, 10}, {14, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pixels = %v, want %v", got, want)
	}
}

func TestDecodeRuns_Empty(t *testing.T) {
	got := DecodeRuns(nil)
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	got = DecodeRuns([]int{})
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestDecodeRuns_ZeroAndNegativeCounts(t *testing.T) {
	if got := DecodeRuns([]int{5, 5, 0}); len(got) != 0 {
		t.Errorf("zero count: len = %d, want 0", len(got))
	}
	if got := DecodeRuns([]int{5, 5, -3}); len(got) != 0 {
		t.Errorf("negative count: len = %d, want 0", len(got))
	}

	// A bad count must not disturb the runs around it.
	got := DecodeRuns([]int{0, 0, 1, 5, 5, -3, 9, 9, 2})
	want := []Point{{0, 0}, {9, 9}, {10, 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pixels = %v, want %v", got, want)
	}
}

func TestDecodeRuns_TruncatedTail(t *testing.T) {
	full := []int{1, 2, 3, 7, 8, 2}
	want := DecodeRuns(full)

	// Any stream with a trailing partial triple decodes like the stream
	// truncated to the nearest lower multiple of three.
	for extra := 1; extra <= 2; extra++ {
		stream := append(append([]int{}, full...), make([]int, extra)...)
		got := DecodeRuns(stream)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("extra %d values: pixels = %v, want %v", extra, got, want)
		}
	}
}

func TestDecodeRuns_OrderPreserved(t *testing.T) {
	got := DecodeRuns([]int{0, 0, 2, 5, 1, 3})
	want := []Point{{0, 0}, {1, 0}, {5, 1}, {6, 1}, {7, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pixels = %v, want %v", got, want)
	}
}

func TestDecodeRuns_CountProperty(t *testing.T) {
	// decode([x,y,count]) yields exactly count pairs (x,y)..(x+count-1,y).
	for count := 0; count <= 20; count++ {
		got := DecodeRuns([]int{3, 4, count})
		if len(got) != count {
			t.Fatalf("count %d: len = %d, want %d", count, len(got), count)
		}
		for i, p := range got {
			if p.X != 3+i || p.Y != 4 {
				t.Fatalf("count %d: pixel[%d] = %v, want {%d 4}", count, i, p, 3+i)
			}
		}
	}
}
