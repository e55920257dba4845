// Package analyzer runs one image through the available description sources
// and the matching engine.
//
// With both sources present the tagger runs first and its signals feed the
// describer prompt and the fusion step. With one source the analyzer falls
// back to describer-only or tagger-only evaluation. SelectSources performs the
// availability checks that decide the mode for a run.
package analyzer
