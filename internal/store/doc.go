// Package store persists the run ledger in SQLite.
//
// Every batch run gets a row in runs (keyed by a UUID) and one row per
// processed image in results, carrying the match, confidence, any error, and
// the full JSON record. The history command reads it back. Schema changes are
// added as numbered files under migrations/ and applied in order on Open.
package store
