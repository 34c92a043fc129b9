// Package l3geometry owns the planar geometry of the table pose model.
//
// Responsibilities: stable ordering of the four corner centres, the
// collinearity/finiteness guard, the 4-point homography solve from image
// pixels to the rectified output rectangle, perspective projection in both
// directions, and the scale conversion between output pixels and physical
// units.
// Key types: Homography, OutputSize.
//
// Dependency rule: l3geometry depends only on the vision error taxonomy.
package l3geometry
