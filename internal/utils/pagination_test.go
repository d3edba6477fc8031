package utils

import "testing"

func TestPageParams(t *testing.T) {
	cases := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 1, 20},
		{"3", "10", 3, 10},
		{"0", "0", 1, 1},
		{"-2", "-5", 1, 1},
		{"x", "1000", 1, 100},
		{" 2", "5", 1, 5}, // no trimming
		{"999999999999999999999999", "20", 1, 20},
	}
	for _, tc := range cases {
		p, s := PageParams(tc.page, tc.size, 20, 100)
		if p != tc.wantPage || s != tc.wantSize {
			t.Fatalf("PageParams(%q, %q) = %d, %d; want %d, %d", tc.page, tc.size, p, s, tc.wantPage, tc.wantSize)
		}
	}
	if _, s := PageParams("1", "500", 20, 0); s != 500 {
		t.Fatalf("maxSize 0 should not cap, got %d", s)
	}
}

func TestOffset(t *testing.T) {
	for _, tc := range []struct{ page, size, want int }{
		{1, 20, 0}, {2, 20, 20}, {3, 7, 14}, {0, 20, 0}, {2, 0, 0},
	} {
		if got := Offset(tc.page, tc.size); got != tc.want {
			t.Fatalf("Offset(%d, %d) = %d; want %d", tc.page, tc.size, got, tc.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	for _, tc := range []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0}, {1, 20, 1}, {20, 20, 1}, {21, 20, 2}, {5, 2, 3}, {5, 0, 0},
	} {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d; want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
