// Package cuesheet reads CUE sheets into track descriptors.
//
// A Sheet holds album-level metadata and one Track per TRACK entry. Track
// boundaries are expressed in CD samples at 44100 Hz: INDEX 01 timestamps
// (mm:ss:ff, 75 frames per second) are converted on parse, and each track ends
// where the next track in the same FILE starts. The last track of every FILE
// is open-ended; its Duration stays zero until the caller resolves it from the
// source media (see SetDuration).
//
// Sheets that are not valid UTF-8 are decoded as Windows-1252, and byte order
// marks are honoured, since cue files ripped on Windows rarely declare a
// charset.
package cuesheet
