// Package metrics evaluates Functional Movement Screen test definitions
// against a landmark frame and its joint angles.
//
// Responsibilities: the static test catalog, the formula registry (one
// formula per metric id), and pass / warning / fail classification with
// deviation and confidence. Missing or low-visibility landmarks produce a
// zero-valued, zero-confidence result rather than an error.
//
// Dependency rule: metrics may depend on geom, pose and joints, never on
// scoring or any storage package.
package metrics
