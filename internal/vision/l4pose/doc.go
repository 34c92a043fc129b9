// Package l4pose owns Layer 4 of the table pose model: the physical pose of
// a single marker and the rigid-body mounting offset between a marker and
// the entity it is attached to.
//
// Frame convention: the table origin is its bottom-left corner, x grows to
// the right and y grows away from the camera's top edge (right-handed,
// counter-clockwise positive angles). Image rows grow downward, so the pose
// resolver flips the y axis for both position and angle.
package l4pose
