package scorer

import "testing"

func TestBucketBoundaries(t *testing.T) {
	c := DefaultBucketConfig()

	cases := []struct {
		value float64
		want  int
	}{
		{0.0, 0},
		{3.29, 0},
		{3.3, 1},
		{6.59, 1},
		{6.6, 2},
		{10.0, 2},
	}
	for _, tc := range cases {
		if got := c.bucket(tc.value); got != tc.want {
			t.Errorf("bucket(%.2f) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestDescribeCoversGrid(t *testing.T) {
	c := DefaultBucketConfig()

	seen := map[string]bool{}
	for _, meaning := range []float64{1.0, 5.0, 9.0} {
		for _, strain := range []float64{1.0, 5.0, 9.0} {
			desc := c.Describe(meaning, strain)
			if desc == "" {
				t.Fatalf("empty description for meaning=%.1f strain=%.1f", meaning, strain)
			}
			if seen[desc] {
				t.Errorf("duplicate description %q", desc)
			}
			seen[desc] = true
		}
	}
	if len(seen) != 9 {
		t.Errorf("got %d distinct descriptions, want 9", len(seen))
	}
}

func TestAffectBand(t *testing.T) {
	c := DefaultBucketConfig()

	if got := c.AffectBand(1.0); got != "subdued" {
		t.Errorf("AffectBand(1.0) = %q", got)
	}
	if got := c.AffectBand(5.0); got != "steady" {
		t.Errorf("AffectBand(5.0) = %q", got)
	}
	if got := c.AffectBand(9.0); got != "elevated" {
		t.Errorf("AffectBand(9.0) = %q", got)
	}
}
