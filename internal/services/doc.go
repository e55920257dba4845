// Package services defines shared utilities consumed by the image analysis
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, image names, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the kinds recorded with per-image error records.
//
// The describer and tagger clients live in the llm and vision subpackages.
package services
