// Package l1markers owns Layer 1 of the table pose model: the marker
// observations produced by the external fiducial detector.
//
// The detector itself is not part of this module. Its per-frame output
// reaches tablepose as JSON Lines, one Frame per line, read through Source.
// Observations are ephemeral: nothing in this package keeps state between
// frames beyond the sequence counter used to fill gaps in the input.
package l1markers
