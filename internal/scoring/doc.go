// Package scoring turns metric results into an FMS score (0-3) and keeps
// the audit trail of manual overrides and pain flags.
//
// Responsibilities:
//   - apply the scoring rule to one test's results
//   - record clinician overrides without losing the automatic score
//   - force a zero score when pain is reported
//
// Dependency rule: scoring depends on metrics and timeutil only. It never
// reads frames or angles directly.
package scoring
