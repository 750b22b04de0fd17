// Package textutil holds small text helpers shared across ffcuesplitter,
// chiefly turning cue sheet titles into safe, normalized file names.
package textutil
