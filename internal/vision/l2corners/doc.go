// Package l2corners owns Layer 2 of the table pose model: the CornerSet,
// i.e. the last observed pixel centre of each of the four table corner
// markers.
//
// Each corner is either Unknown (never observed) or Known with its latest
// centre. There is no expiry: a corner that drops out of view keeps its
// stale centre until it is seen again, so a partially occluded table still
// yields a quadrilateral once every corner has been seen at least once.
//
// A Tracker belongs to one physical table and is not safe for concurrent
// use; the pipeline touches it from a single goroutine.
package l2corners
