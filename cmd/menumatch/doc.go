// Package main hosts the menumatch CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the describer
// and tagger clients, and hands them to the analyzer and batch runner. The
// run command processes an image directory; match scores a description
// without calling any service; check runs preflight probes; history reads the
// run ledger; config scaffolds and validates configuration files.
//
// Keep this package lean: behaviour lives in the internal packages and is
// only surfaced here.
package main
