// Package textutil provides the small text helpers shared by the matching
// engine and the file naming code.
//
// The primary use cases are:
//   - Sanitizing labels into filesystem-safe ASCII file name components
//   - Collapsing whitespace runs into a single separator
//   - Splitting file names into stem and extension the way the result names
//     expect (leading dots are part of the stem)
//   - Word helpers that count runes rather than bytes so multi-byte words are
//     measured the same way humans read them
package textutil
