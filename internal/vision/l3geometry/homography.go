package l3geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/tablepose/internal/vision"
)

// projectionEpsilon is the smallest |w| accepted by the perspective divide.
const projectionEpsilon = 1e-12

// OutputSize is the pixel size of the rectified output rectangle.
type OutputSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OutputSizeForTable derives the output rectangle from a target height in
// pixels, keeping the table aspect ratio.
func OutputSizeForTable(physicalWidth, physicalHeight float64, heightPx int) OutputSize {
	if physicalHeight <= 0 || heightPx <= 0 {
		return OutputSize{}
	}
	return OutputSize{
		Width:  int(float64(heightPx) * (physicalWidth / physicalHeight)),
		Height: heightPx,
	}
}

// Corners returns the output rectangle as [TL, TR, BR, BL].
func (s OutputSize) Corners() [4]r2.Point {
	w, h := float64(s.Width), float64(s.Height)
	return [4]r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// Homography maps image pixels onto the rectified output rectangle and
// carries the scale factors from output pixels to physical units.
// M is row-major with M[8] normalised to 1.
type Homography struct {
	M   [9]float64
	inv [9]float64

	Output         OutputSize
	PhysicalWidth  float64
	PhysicalHeight float64
	ScaleX         float64
	ScaleY         float64
}

// ComputeHomography solves the projective transform taking the ordered
// image quadrilateral (TL, TR, BR, BL) to the corners of the output
// rectangle. It returns an error wrapping vision.ErrDegenerateGeometry when
// the input is collinear or non-finite, the sizes are not positive, or the
// solve yields non-finite terms.
func ComputeHomography(ordered [4]r2.Point, physicalWidth, physicalHeight float64, output OutputSize) (*Homography, error) {
	if !(physicalWidth > 0) || !(physicalHeight > 0) || math.IsInf(physicalWidth, 0) || math.IsInf(physicalHeight, 0) {
		return nil, fmt.Errorf("%w: physical size %gx%g must be positive and finite",
			vision.ErrDegenerateGeometry, physicalWidth, physicalHeight)
	}
	if output.Width <= 0 || output.Height <= 0 {
		return nil, fmt.Errorf("%w: output size %dx%d must be positive",
			vision.ErrDegenerateGeometry, output.Width, output.Height)
	}
	if !CheckNonDegenerate(ordered) {
		return nil, fmt.Errorf("%w: corners %v are collinear or non-finite",
			vision.ErrDegenerateGeometry, ordered)
	}

	m, err := solveHomography(ordered, output.Corners())
	if err != nil {
		return nil, err
	}

	inv, err := invert(m)
	if err != nil {
		return nil, err
	}

	return &Homography{
		M:              m,
		inv:            inv,
		Output:         output,
		PhysicalWidth:  physicalWidth,
		PhysicalHeight: physicalHeight,
		ScaleX:         physicalWidth / float64(output.Width),
		ScaleY:         physicalHeight / float64(output.Height),
	}, nil
}

// solveHomography builds the 8x8 system A*h = b for the unknowns h00..h21
// (h22 fixed to 1) from four correspondences src[i] -> dst[i].
func solveHomography(src, dst [4]r2.Point) ([9]float64, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x' = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)

		// y' = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return [9]float64{}, fmt.Errorf("%w: homography solve: %v", vision.ErrDegenerateGeometry, err)
	}

	var m [9]float64
	for i := 0; i < 8; i++ {
		m[i] = h.AtVec(i)
	}
	m[8] = 1
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [9]float64{}, fmt.Errorf("%w: homography has non-finite terms", vision.ErrDegenerateGeometry)
		}
	}
	return m, nil
}

func invert(m [9]float64) ([9]float64, error) {
	src := mat.NewDense(3, 3, m[:])
	var inv mat.Dense
	if err := inv.Inverse(src); err != nil {
		return [9]float64{}, fmt.Errorf("%w: homography not invertible: %v", vision.ErrDegenerateGeometry, err)
	}
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = inv.At(r, c)
		}
	}
	if out[8] != 0 {
		for i := range out {
			out[i] /= out[8]
		}
	}
	return out, nil
}

// apply runs the homogeneous transform m on p followed by the perspective
// divide.
func apply(m [9]float64, p r2.Point) (r2.Point, error) {
	x := m[0]*p.X + m[1]*p.Y + m[2]
	y := m[3]*p.X + m[4]*p.Y + m[5]
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if math.Abs(w) < projectionEpsilon || math.IsNaN(w) {
		return r2.Point{}, fmt.Errorf("%w: w=%g at (%.3f, %.3f)", vision.ErrProjectionFailure, w, p.X, p.Y)
	}
	out := r2.Point{X: x / w, Y: y / w}
	if !isFinite(out) {
		return r2.Point{}, fmt.Errorf("%w: non-finite result at (%.3f, %.3f)", vision.ErrProjectionFailure, p.X, p.Y)
	}
	return out, nil
}

// Project maps an image pixel into output-rectangle pixels.
func (h *Homography) Project(p r2.Point) (r2.Point, error) {
	return apply(h.M, p)
}

// Unproject maps an output-rectangle pixel back into the image.
func (h *Homography) Unproject(p r2.Point) (r2.Point, error) {
	return apply(h.inv, p)
}

