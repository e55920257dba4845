// Package batch runs the analyzer over a directory of images.
//
// Images are discovered by glob, optionally sampled, and processed on a
// bounded worker pool. Records keep the sorted input order. Each run gets a
// timestamped results directory holding results.json, copies of the analyzed
// images renamed to their match filename, and a JSON run log. A lock file in
// the results base keeps two runs from writing there at once.
package batch
