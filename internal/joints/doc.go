// Package joints computes the fixed catalog of named joint angles from a
// single landmark frame.
//
// Responsibilities: visibility gating, angle computation, band
// classification (normal / warning / out of band), confidence and signed
// deviation. Output order follows the catalog and is stable.
//
// Dependency rule: joints depends on geom and pose only.
package joints
