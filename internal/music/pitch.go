package music

// Letter is a natural note letter, C through B.
type Letter string

const (
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
	LetterF Letter = "F"
	LetterG Letter = "G"
	LetterA Letter = "A"
	LetterB Letter = "B"
)

// Pitch is one sounded note: a letter, a chromatic alteration
// (-1 flat, 0 natural, +1 sharp), and an octave.
type Pitch struct {
	Letter     Letter
	Alteration int
	Octave     int
}

// baseOffsets projects each natural letter onto its chromatic class.
var baseOffsets = map[Letter]int{
	LetterC: 0,
	LetterD: 2,
	LetterE: 4,
	LetterF: 5,
	LetterG: 7,
	LetterA: 9,
	LetterB: 11,
}

// naturalLetters maps the seven natural chromatic classes back to letters.
var naturalLetters = map[int]Letter{
	0:  LetterC,
	2:  LetterD,
	4:  LetterE,
	5:  LetterF,
	7:  LetterG,
	9:  LetterA,
	11: LetterB,
}

type spelling struct {
	Letter     Letter
	Alteration int
}

// The five black-key classes are spelled from closed tables rather than
// derived arithmetically so the musical convention stays auditable.
var sharpSpellings = map[int]spelling{
	1:  {LetterC, 1},
	3:  {LetterD, 1},
	6:  {LetterF, 1},
	8:  {LetterG, 1},
	10: {LetterA, 1},
}

var flatSpellings = map[int]spelling{
	1:  {LetterD, -1},
	3:  {LetterE, -1},
	6:  {LetterG, -1},
	8:  {LetterA, -1},
	10: {LetterB, -1},
}

// ValidLetter reports whether the letter is one of C through B.
func ValidLetter(letter Letter) bool {
	_, ok := baseOffsets[letter]
	return ok
}

// ParseLetter normalizes a single-character note letter.
func ParseLetter(value string) (Letter, bool) {
	letter := Letter(value)
	if ValidLetter(letter) {
		return letter, true
	}
	return "", false
}

// ChromaticClass maps a spelled pitch onto its chromatic class in [0,11].
// The letter must be valid; enforce that at the parse boundary.
func ChromaticClass(letter Letter, alteration int) int {
	base := baseOffsets[letter]
	return ((base+alteration)%12 + 12) % 12
}

// SpellChromatic is the inverse of ChromaticClass. Natural classes always
// come back as the natural letter. The five black-key classes are spelled
// as the letter below sharped when preferSharps is set, otherwise as the
// letter above flatted. The class must already be reduced into [0,11].
func SpellChromatic(class int, preferSharps bool) (Letter, int) {
	if letter, ok := naturalLetters[class]; ok {
		return letter, 0
	}
	if preferSharps {
		sp := sharpSpellings[class]
		return sp.Letter, sp.Alteration
	}
	sp := flatSpellings[class]
	return sp.Letter, sp.Alteration
}
