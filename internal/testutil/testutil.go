// Package testutil provides shared test helpers and fixtures for the
// vision pipeline and the commands built on it.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertPointNear checks both coordinates of got are within tol of want.
func AssertPointNear(t *testing.T, want, got r2.Point, tol float64) {
	t.Helper()
	if math.Abs(want.X-got.X) > tol || math.Abs(want.Y-got.Y) > tol {
		t.Errorf("point = (%.6f, %.6f), want (%.6f, %.6f) ±%g", got.X, got.Y, want.X, want.Y, tol)
	}
}

// AngleDiff returns a-b wrapped into [-pi, pi].
func AngleDiff(a, b float64) float64 {
	return math.Remainder(a-b, 2*math.Pi)
}

// AssertAngleNear compares headings modulo 2*pi.
func AssertAngleNear(t *testing.T, want, got, tol float64) {
	t.Helper()
	if d := AngleDiff(got, want); math.Abs(d) > tol {
		t.Errorf("angle = %.6f, want %.6f ±%g (diff %.6f)", got, want, tol, d)
	}
}

// WriteFile writes content to name inside a fresh temp dir and returns the
// full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
