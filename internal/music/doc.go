// Package music implements the pitch algebra used by the transposition
// engine: the mapping between spelled pitches (letter plus alteration) and
// chromatic pitch classes, the fixed fifths-to-key-signature table, and the
// semitone interval between two keys.
//
// Everything here is a pure function over immutable package-level tables,
// safe for unsynchronized concurrent use.
package music
