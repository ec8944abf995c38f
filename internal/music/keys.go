package music

import "fmt"

// Key is a key signature expressed as a signed count of sharps (positive)
// or flats (negative) on the circle of fifths, in [-7, +7].
type Key int

// MinKey and MaxKey bound the fifths range of the key-signature table.
const (
	MinKey Key = -7
	MaxKey Key = 7
)

// Accidental is the accidental kind a key signature carries.
type Accidental string

const (
	AccidentalNone  Accidental = ""
	AccidentalSharp Accidental = "sharp"
	AccidentalFlat  Accidental = "flat"
)

// KeyInfo describes one entry of the key-signature table: the tonic letter,
// the accidental kind, and how many accidentals the signature carries.
type KeyInfo struct {
	Tonic      Letter
	Accidental Accidental
	Count      int
}

// keySignatures is the fixed fifths table. Defined once, never mutated.
var keySignatures = map[Key]KeyInfo{
	-7: {LetterC, AccidentalFlat, 7},
	-6: {LetterG, AccidentalFlat, 6},
	-5: {LetterD, AccidentalFlat, 5},
	-4: {LetterA, AccidentalFlat, 4},
	-3: {LetterE, AccidentalFlat, 3},
	-2: {LetterB, AccidentalFlat, 2},
	-1: {LetterF, AccidentalNone, 1},
	0:  {LetterC, AccidentalNone, 0},
	1:  {LetterG, AccidentalNone, 1},
	2:  {LetterD, AccidentalNone, 2},
	3:  {LetterA, AccidentalNone, 3},
	4:  {LetterE, AccidentalNone, 4},
	5:  {LetterB, AccidentalNone, 5},
	6:  {LetterF, AccidentalSharp, 6},
	7:  {LetterC, AccidentalSharp, 7},
}

// InvalidKeyError reports a key signature the engine cannot transpose
// from or to: a fifths value outside [-7,+7], or a missing source key.
type InvalidKeyError struct {
	Value   int
	Missing bool
}

func (e *InvalidKeyError) Error() string {
	if e.Missing {
		return "source key signature is missing; the score must carry a key to transpose"
	}
	return fmt.Sprintf("key signature %d is outside the supported range [-7, 7]", e.Value)
}

// ValidKey reports whether fifths lies inside the key-signature table.
func ValidKey(fifths int) bool {
	_, ok := keySignatures[Key(fifths)]
	return ok
}

// CheckKey returns an InvalidKeyError when fifths lies outside the table.
func CheckKey(fifths int) error {
	if !ValidKey(fifths) {
		return &InvalidKeyError{Value: fifths}
	}
	return nil
}

// LookupKey returns the table entry for a fifths value.
func LookupKey(key Key) (KeyInfo, bool) {
	info, ok := keySignatures[key]
	return info, ok
}

// Keys returns every valid fifths value in ascending order.
func Keys() []Key {
	keys := make([]Key, 0, len(keySignatures))
	for k := MinKey; k <= MaxKey; k++ {
		keys = append(keys, k)
	}
	return keys
}

// tonicAlteration derives the tonic's chromatic alteration from the
// signature's accidental kind.
func (i KeyInfo) tonicAlteration() int {
	switch i.Accidental {
	case AccidentalSharp:
		return 1
	case AccidentalFlat:
		return -1
	default:
		return 0
	}
}

// TonicClass returns the chromatic class of the key's tonic.
func (i KeyInfo) TonicClass() int {
	return ChromaticClass(i.Tonic, i.tonicAlteration())
}

// DisplayName renders the key for humans, e.g. "D major (2 sharps)",
// "E major (3 flats)", or plain "C major".
func (i KeyInfo) DisplayName() string {
	switch i.Accidental {
	case AccidentalSharp:
		return fmt.Sprintf("%s major (%d sharps)", i.Tonic, i.Count)
	case AccidentalFlat:
		return fmt.Sprintf("%s major (%d flats)", i.Tonic, i.Count)
	default:
		return fmt.Sprintf("%s major", i.Tonic)
	}
}

// KeyDisplayName renders a fifths value, or "Unknown" when out of range.
func KeyDisplayName(key Key) string {
	info, ok := LookupKey(key)
	if !ok {
		return "Unknown"
	}
	return info.DisplayName()
}

// SemitoneShift computes the forward chromatic interval, in [0,11], that
// moves the tonic of from onto the tonic of to. Transposition always moves
// forward around the chromatic circle; octave placement is handled by the
// document rewriter. Both keys must be valid table entries.
func SemitoneShift(from, to Key) (int, error) {
	fromInfo, ok := LookupKey(from)
	if !ok {
		return 0, &InvalidKeyError{Value: int(from)}
	}
	toInfo, ok := LookupKey(to)
	if !ok {
		return 0, &InvalidKeyError{Value: int(to)}
	}
	return ((toInfo.TonicClass()-fromInfo.TonicClass())%12 + 12) % 12, nil
}
