// Package session runs one screening session frame by frame: the
// single-camera path (angles, metrics, score per movement test) and the
// dual-camera drop-jump path (triangulation, landing trials, risk).
//
// Responsibilities:
//   - own the per-session analysis state (reference frames, scores,
//     landing analyzer, stereo processor)
//   - hand finished records to the persistence port after the pure
//     analysis has produced them
//
// Dependency rule: session wires the analysis packages together and talks
// to storage only through Store.
package session
