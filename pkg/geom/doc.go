// Package geom provides the small amount of 3D math the converter needs:
// vectors, rotation matrices, rototranslations, planes and axis-aligned
// bounding boxes (extents). All types are immutable values.
package geom
