package l3geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablepose/internal/vision"
)

// permutations returns every ordering of the four points.
func permutations(pts [4]r2.Point) [][4]r2.Point {
	var out [][4]r2.Point
	var rec func(k int, cur [4]r2.Point)
	rec = func(k int, cur [4]r2.Point) {
		if k == len(cur) {
			out = append(out, cur)
			return
		}
		for i := k; i < len(cur); i++ {
			cur[k], cur[i] = cur[i], cur[k]
			rec(k+1, cur)
			cur[k], cur[i] = cur[i], cur[k]
		}
	}
	rec(0, pts)
	return out
}

func assertPointNear(t *testing.T, want, got r2.Point, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x mismatch: want %v got %v", want, got)
	assert.InDelta(t, want.Y, got.Y, tol, "y mismatch: want %v got %v", want, got)
}

// segmentsCross reports whether segments ab and cd properly intersect.
func segmentsCross(a, b, c, d r2.Point) bool {
	side := func(p, q, r r2.Point) float64 { return q.Sub(p).Cross(r.Sub(p)) }
	return side(a, b, c)*side(a, b, d) < 0 && side(c, d, a)*side(c, d, b) < 0
}

func TestOrderCorners_PermutationInvariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		quad [4]r2.Point
		want [4]r2.Point
	}{
		{
			name: "skewed quad",
			quad: [4]r2.Point{{X: 12, Y: 8}, {X: 205, Y: 15}, {X: 198, Y: 190}, {X: 5, Y: 210}},
			want: [4]r2.Point{{X: 12, Y: 8}, {X: 205, Y: 15}, {X: 198, Y: 190}, {X: 5, Y: 210}},
		},
		{
			name: "diamond with tied sums",
			quad: [4]r2.Point{{X: 0, Y: 10}, {X: 10, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 20}},
			want: [4]r2.Point{{X: 10, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 20}, {X: 0, Y: 10}},
		},
		{
			name: "axis aligned square",
			quad: [4]r2.Point{{X: 100, Y: 100}, {X: 0, Y: 100}, {X: 100, Y: 0}, {X: 0, Y: 0}},
			want: [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			perms := permutations(tt.quad)
			require.Len(t, perms, 24)

			for _, p := range perms {
				got := OrderCorners(p)
				assert.Equal(t, tt.want, got, "input %v", p)

				tlSum := got[TopLeft].X + got[TopLeft].Y
				brSum := got[BottomRight].X + got[BottomRight].Y
				for _, q := range got {
					assert.LessOrEqual(t, tlSum, q.X+q.Y)
					assert.GreaterOrEqual(t, brSum, q.X+q.Y)
				}

				assert.False(t, segmentsCross(got[0], got[1], got[2], got[3]), "edges 0-1 and 2-3 cross for input %v", p)
				assert.False(t, segmentsCross(got[1], got[2], got[3], got[0]), "edges 1-2 and 3-0 cross for input %v", p)
			}
		})
	}
}

func TestOrderCorners_RemainingPointsSplitByDiagonal(t *testing.T) {
	t.Parallel()

	// (80,60) is right of (20,30) but also lower, so only the side of the
	// top-left to bottom-right diagonal separates them.
	pts := [4]r2.Point{{X: 20, Y: 30}, {X: 100, Y: 100}, {X: 0, Y: 0}, {X: 80, Y: 60}}
	got := OrderCorners(pts)

	assert.Equal(t, r2.Point{X: 0, Y: 0}, got[TopLeft])
	assert.Equal(t, r2.Point{X: 80, Y: 60}, got[TopRight])
	assert.Equal(t, r2.Point{X: 100, Y: 100}, got[BottomRight])
	assert.Equal(t, r2.Point{X: 20, Y: 30}, got[BottomLeft])
}

func TestOrderCorners_EqualSumsStillUsesEveryPoint(t *testing.T) {
	t.Parallel()

	pts := [4]r2.Point{{X: 0, Y: 10}, {X: 10, Y: 0}, {X: 5, Y: 5}, {X: 2, Y: 8}}
	got := OrderCorners(pts)

	seen := map[r2.Point]int{}
	for _, p := range got {
		seen[p]++
	}
	for _, p := range pts {
		assert.Equal(t, 1, seen[p], "point %v should appear exactly once", p)
	}
}

func TestCentroid(t *testing.T) {
	t.Parallel()
	c := Centroid([4]r2.Point{{X: 40, Y: 40}, {X: 60, Y: 40}, {X: 60, Y: 60}, {X: 40, Y: 60}})
	assert.Equal(t, r2.Point{X: 50, Y: 50}, c)
}

func TestCheckNonDegenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pts  [4]r2.Point
		want bool
	}{
		{"square", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, true},
		{"three collinear", [4]r2.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 50}}, false},
		{"nearly collinear", [4]r2.Point{{X: 0, Y: 0}, {X: 50, Y: 1e-8}, {X: 100, Y: 0}, {X: 50, Y: 50}}, false},
		{"duplicate point", [4]r2.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, false},
		{"NaN", [4]r2.Point{{X: math.NaN(), Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, false},
		{"Inf", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: math.Inf(1)}, {X: 100, Y: 100}, {X: 0, Y: 100}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckNonDegenerate(tt.pts))
		})
	}
}

func TestComputeHomography_Square(t *testing.T) {
	t.Parallel()

	square := [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	h, err := ComputeHomography(square, 30, 30, OutputSize{Width: 800, Height: 600})
	require.NoError(t, err)

	assert.InDelta(t, 30.0/800.0, h.ScaleX, 1e-12)
	assert.InDelta(t, 30.0/600.0, h.ScaleY, 1e-12)

	centre, err := h.Project(r2.Point{X: 50, Y: 50})
	require.NoError(t, err)
	assertPointNear(t, r2.Point{X: 400, Y: 300}, centre, 1e-6)

	for i, c := range square {
		got, err := h.Project(c)
		require.NoError(t, err)
		assertPointNear(t, h.Output.Corners()[i], got, 1e-6)
	}
}

func TestComputeHomography_RoundTrip(t *testing.T) {
	t.Parallel()

	quads := map[string][4]r2.Point{
		"perspective": {{X: 102.5, Y: 87.25}, {X: 530.1, Y: 95.8}, {X: 570.4, Y: 410.9}, {X: 80.3, Y: 400.2}},
		"rotated":     {{X: 320, Y: 40}, {X: 600, Y: 240}, {X: 320, Y: 440}, {X: 40, Y: 240}},
		"skewed":      {{X: 10, Y: 20}, {X: 1900, Y: 60}, {X: 1700, Y: 1050}, {X: 150, Y: 980}},
	}

	for name, quad := range quads {
		t.Run(name, func(t *testing.T) {
			ordered := OrderCorners(quad)
			h, err := ComputeHomography(ordered, 0.6, 0.4, OutputSize{Width: 900, Height: 600})
			require.NoError(t, err)

			for i, out := range h.Output.Corners() {
				back, err := h.Unproject(out)
				require.NoError(t, err)
				assertPointNear(t, ordered[i], back, 1e-3)
			}

			// Interior points survive a forward/backward trip as well.
			mid := Centroid(ordered)
			fwd, err := h.Project(mid)
			require.NoError(t, err)
			back, err := h.Unproject(fwd)
			require.NoError(t, err)
			assertPointNear(t, mid, back, 1e-4)
		})
	}
}

func TestComputeHomography_RejectsDegenerate(t *testing.T) {
	t.Parallel()

	out := OutputSize{Width: 800, Height: 600}
	cases := []struct {
		name   string
		pts    [4]r2.Point
		pw, ph float64
		out    OutputSize
	}{
		{"collinear", [4]r2.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 50}}, 30, 30, out},
		{"all collinear", [4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}, 30, 30, out},
		{"non-finite", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: math.Inf(1), Y: 100}, {X: 0, Y: 100}}, 30, 30, out},
		{"zero width", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, 0, 30, out},
		{"NaN height", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, 30, math.NaN(), out},
		{"empty output", [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, 30, 30, OutputSize{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := ComputeHomography(tc.pts, tc.pw, tc.ph, tc.out)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, vision.ErrDegenerateGeometry)
		})
	}
}

func TestProject_ZeroW(t *testing.T) {
	t.Parallel()

	// w = x, so the image column x=0 is the line at infinity.
	h := &Homography{M: [9]float64{1, 0, 0, 0, 1, 0, 1, 0, 0}}

	_, err := h.Project(r2.Point{X: 0, Y: 5})
	assert.ErrorIs(t, err, vision.ErrProjectionFailure)

	p, err := h.Project(r2.Point{X: 2, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, r2.Point{X: 1, Y: 2}, p)
}

func TestScaleConversion(t *testing.T) {
	t.Parallel()

	square := [4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	h, err := ComputeHomography(square, 0.3, 0.3, OutputSize{Width: 800, Height: 600})
	require.NoError(t, err)

	phys := h.ToPhysical(r2.Point{X: 800, Y: 600})
	assertPointNear(t, r2.Point{X: 0.3, Y: 0.3}, phys, 1e-12)

	px := h.ToOutputPixels(r2.Point{X: 0.15, Y: 0.075})
	assertPointNear(t, r2.Point{X: 400, Y: 150}, px, 1e-9)
}

func TestOutputSizeForTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutputSize{Width: 600, Height: 600}, OutputSizeForTable(0.3, 0.3, 600))
	assert.Equal(t, OutputSize{Width: 1200, Height: 600}, OutputSizeForTable(0.6, 0.3, 600))
	assert.Equal(t, OutputSize{}, OutputSizeForTable(0.6, 0, 600))
}
