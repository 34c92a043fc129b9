// Package pipeline runs the per-frame table pose pipeline: corner tracking
// (L2), homography (L3), marker pose and offsets (L4), entity
// classification (L5) and dispatch to sinks.
//
// This package is the composition root: it imports from the layer packages
// (l1markers, l2corners, l3geometry, l4pose, l5entities), and none of those
// packages import pipeline/.
//
// Processing is single-threaded. A Processor holds the corner state and must
// only be driven from one goroutine, normally a Runner.
package pipeline
