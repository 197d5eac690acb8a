// Package stereo reconstructs 3D landmark frames from a synchronised pair
// of 2D frames seen by two calibrated cameras.
//
// Responsibilities:
//   - hold and persist the stereo calibration (intrinsics, extrinsics,
//     projection, fundamental and essential matrices)
//   - triangulate each landmark, keeping the 33-point index alignment
//   - correct implausible knee positions from limb proportions
//   - smooth output and estimate triangulation confidence
//   - keep rolling processing-time statistics per Processor
//
// Dependency rule: stereo depends on geom, pose, config and timeutil. It
// performs no I/O apart from calibration load/save.
package stereo
