package musicxml

import (
	"fmt"
	"strconv"

	"github.com/HariKoor/OMR-API/internal/music"
)

// TimeSignature is the beats / beat-type pair from a time marker.
type TimeSignature struct {
	Beats    int
	BeatType int
}

func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Beats, t.BeatType)
}

// ScoreSummary carries the metadata extracted once at parse time: the file
// the summary describes, the first key and time signature, and the first
// part name. Missing markers stay nil or empty rather than failing the
// parse. Read-only after extraction.
type ScoreSummary struct {
	Path     string
	Key      *music.Key
	Time     *TimeSignature
	PartName string
}

// Summarize extracts a ScoreSummary from a parsed document.
func Summarize(doc *Document) ScoreSummary {
	summary := ScoreSummary{Path: doc.Path}
	if doc.Root == nil {
		return summary
	}

	if keyElem := doc.Root.FindFirst("key"); keyElem != nil {
		if fifths, err := strconv.Atoi(keyElem.ChildValue("fifths")); err == nil {
			key := music.Key(fifths)
			summary.Key = &key
		}
	}

	if timeElem := doc.Root.FindFirst("time"); timeElem != nil {
		beats, beatsErr := strconv.Atoi(timeElem.ChildValue("beats"))
		beatType, typeErr := strconv.Atoi(timeElem.ChildValue("beat-type"))
		if beatsErr == nil && typeErr == nil {
			summary.Time = &TimeSignature{Beats: beats, BeatType: beatType}
		}
	}

	if partName := doc.Root.FindFirst("part-name"); partName != nil {
		summary.PartName = partName.Value()
	}

	return summary
}

// ParseSummary is the parse-collaborator entry point: it decodes the
// document at path and returns its summary.
func ParseSummary(path string) (ScoreSummary, error) {
	doc, err := Parse(path)
	if err != nil {
		return ScoreSummary{}, err
	}
	return Summarize(doc), nil
}

// KeyDisplay renders the summary's key for humans, "Unknown" when absent.
func (s ScoreSummary) KeyDisplay() string {
	if s.Key == nil {
		return "Unknown"
	}
	return music.KeyDisplayName(*s.Key)
}
