// Package report renders screening session output for clinicians.
//
// Responsibilities:
//   - JSON export and import of a session summary (lossless round trip)
//   - vertical velocity profile PNG with detected landing phases
//   - per-trial landing risk HTML chart
//   - XLSX workbook of scores, trials and the session assessment
//
// Dependency rule: report consumes session, scoring and landing output
// types. It never computes analysis values of its own.
package report
