// Package preflight provides readiness checks for the analysis services and
// filesystem paths a batch run depends on.
//
// These checks run in two contexts:
//   - The run command calls CheckDescriber and CheckTagger to decide which
//     sources are usable and refuses to start when the catalog or results
//     directory is unusable.
//   - The check command calls RunAll and prints every result.
//
// Each service check is gated by its config toggle; disabled sources are
// reported as skipped.
package preflight
