// Package vision owns the table pose data model used by tablepose.
//
// The model is split into layers, each in its own package:
//
//	l1markers  - marker observations and frames as produced by the external detector
//	l2corners  - last-known centres of the four table corner markers
//	l3geometry - corner ordering, degeneracy checks and the pixel->table homography
//	l4pose     - per-marker position/orientation and mounting offsets
//	l5entities - marker ID classification (robot, station, unknown) and results
//	pipeline   - per-frame orchestration and result dispatch
//
// Dependency rule: a layer may depend on lower-numbered layers only.
// pipeline is the composition root and nothing below it imports it.
//
// This package holds only the shared error taxonomy so that every layer
// reports failures with the same sentinels.
package vision
