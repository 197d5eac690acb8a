// Package landing segments drop-jump landings from a stream of 3D frames
// and scores each landing for injury risk.
//
// Responsibilities:
//   - track centre-of-mass vertical velocity over a rolling frame buffer
//   - detect landing phases with a two-state machine (idle, in landing)
//   - turn valid phases into trials with valgus, trunk, arm and
//     stability metrics and a risk tier
//   - summarise a session of trials into an overall assessment
//
// Dependency rule: landing depends on geom, pose, config and monitoring.
// An Analyzer is owned by one session and is not safe for concurrent use.
package landing
