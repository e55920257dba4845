// Package matching turns free-text image analyses into a catalog match, a
// bounded confidence and a deterministic output file name.
//
// The pipeline for one image is fixed and linear:
//
//	Fuse (two sources only) -> ParseSignals -> Match -> ResolveConfidence
//	  -> SynthesizeUnmatchedLabel (weak or missing match) -> MatchFilename
//
// # Signals
//
// ParseSignals pulls three optional signals out of a description: the text
// read off the packaging ("TEXT DETECTED: ..."), the describer's own
// confidence ("Confidence score: 7/10") and an explicit "UNMATCHED <label>"
// declaration. Missing or malformed signals are simply absent.
//
// # Matching
//
// Match first tries the detected text against every catalog entry (substring
// either way, score 0.9). Otherwise it scores each entry by the fraction of its
// words longer than two runes that appear in the text. The scan is sequential
// and uses a strict greater-than comparison, so the earliest catalog entry
// wins ties. Keep that rule if the scan is ever parallelized.
//
// # Confidence
//
// ResolveConfidence prefers the reported confidence over the heuristic score,
// caps explicit unmatched results at 0.9 and everything else at 1.0, and
// applies the fusion boost. Fuse currently always reports a zero boost.
//
// # Purity
//
// Nothing in this package performs I/O or keeps state between images. The
// catalog is read-only and may be shared across goroutines without locking.
package matching
