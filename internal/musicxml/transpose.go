package musicxml

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HariKoor/OMR-API/internal/music"
)

// Result reports what a transposition rewrote.
type Result struct {
	OutputPath      string
	Shift           int
	NotesTransposed int
	KeysUpdated     int
}

// Transpose rewrites the document in place from the source key into the
// target key: every key marker's fifths value becomes the target, and
// every pitch marker is shifted forward around the chromatic circle with
// octave carry. All parts are forced to the same target key; per-part
// transposition for transposing instruments is a known scope limit.
//
// Spelling policy: targets at or above C major prefer sharps, flat keys
// prefer flats. Pitch markers missing a step or octave are passed through
// unmodified.
func Transpose(doc *Document, source, target music.Key) (notes, keys int, err error) {
	if err := music.CheckKey(int(source)); err != nil {
		return 0, 0, err
	}
	if err := music.CheckKey(int(target)); err != nil {
		return 0, 0, err
	}
	shift, err := music.SemitoneShift(source, target)
	if err != nil {
		return 0, 0, err
	}
	preferSharps := target >= 0

	if doc == nil || doc.Root == nil {
		return 0, 0, &DocumentFormatError{Err: fmt.Errorf("document has no root element")}
	}

	for _, keyElem := range doc.Root.FindAll("key") {
		fifths := keyElem.Child("fifths")
		if fifths == nil {
			continue
		}
		fifths.SetValue(strconv.Itoa(int(target)))
		keys++
	}

	for _, pitch := range doc.Root.FindAll("pitch") {
		if transposePitch(pitch, shift, preferSharps) {
			notes++
		}
	}
	return notes, keys, nil
}

// transposePitch rewrites one pitch marker, reporting whether it was
// well-formed enough to touch.
func transposePitch(pitch *Element, shift int, preferSharps bool) bool {
	step := pitch.Child("step")
	octaveElem := pitch.Child("octave")
	if step == nil || octaveElem == nil {
		return false
	}
	letter, ok := music.ParseLetter(step.Value())
	if !ok {
		return false
	}
	octave, err := strconv.Atoi(octaveElem.Value())
	if err != nil {
		return false
	}

	alteration := 0
	alterElem := pitch.Child("alter")
	if alterElem != nil {
		if parsed, err := strconv.Atoi(alterElem.Value()); err == nil {
			alteration = parsed
		}
	}

	// shift and class are both in [0,11], so the carry is 0 or 1.
	total := music.ChromaticClass(letter, alteration) + shift
	newLetter, newAlteration := music.SpellChromatic(total%12, preferSharps)

	step.SetValue(string(newLetter))
	octaveElem.SetValue(strconv.Itoa(octave + total/12))

	if newAlteration == 0 {
		// A note landing on a natural must drop its stale alter marker.
		if alterElem != nil {
			pitch.RemoveChild(alterElem)
		}
		return true
	}
	if alterElem == nil {
		alterElem = NewElement("alter", "")
		pitch.InsertChild(pitch.ChildIndex("step")+1, alterElem)
	}
	alterElem.SetValue(strconv.Itoa(newAlteration))
	return true
}

// DefaultOutputPath derives the output document path from the input name
// and the target tonic letter.
func DefaultOutputPath(inputPath string, target music.Key) string {
	info, _ := music.LookupKey(target)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_transposed_to_%s.xml", stem, info.Tonic)
	return filepath.Join(filepath.Dir(inputPath), name)
}

// TransposeFile transposes the score described by summary into the target
// key and writes a new document beside the input (or at outputPath when
// non-empty). The input file is never mutated.
func TransposeFile(summary ScoreSummary, target music.Key, outputPath string) (*Result, error) {
	if summary.Key == nil {
		return nil, &music.InvalidKeyError{Missing: true}
	}
	if err := music.CheckKey(int(*summary.Key)); err != nil {
		return nil, err
	}
	if err := music.CheckKey(int(target)); err != nil {
		return nil, err
	}

	doc, err := Parse(summary.Path)
	if err != nil {
		return nil, err
	}

	notes, keys, err := Transpose(doc, *summary.Key, target)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(outputPath) == "" {
		outputPath = DefaultOutputPath(summary.Path, target)
	}
	if err := doc.WriteFile(outputPath); err != nil {
		return nil, err
	}

	shift, _ := music.SemitoneShift(*summary.Key, target)
	return &Result{
		OutputPath:      outputPath,
		Shift:           shift,
		NotesTransposed: notes,
		KeysUpdated:     keys,
	}, nil
}
