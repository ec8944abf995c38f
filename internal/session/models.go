// Package session persists per-upload workflow state in SQLite. Each
// uploaded score gets one session row that tracks the artifacts produced
// as it moves through recognition, transposition, and rendering.
package session

import (
	"time"

	"github.com/HariKoor/OMR-API/internal/music"
)

// Status represents the lifecycle of a session.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusRecognized Status = "recognized"
	StatusTransposed Status = "transposed"
	StatusRendered   Status = "rendered"
	StatusFailed     Status = "failed"
)

// Session represents one uploaded score and its derived artifacts.
type Session struct {
	ID             string
	Status         Status
	PDFPath        string
	MXLPath        string
	ScorePath      string
	TransposedPath string
	RenderedPath   string

	// KeySignature is the source key reported by recognition; nil until the
	// score has been recognized or when the score carries no key marker.
	KeySignature *music.Key
	// TargetKey is the most recent transposition target; nil before the
	// first transposition.
	TargetKey *music.Key

	TimeBeats    string
	TimeBeatType string
	PartName     string

	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fail marks the session failed with the given message.
func (s *Session) Fail(message string) {
	s.Status = StatusFailed
	s.ErrorMessage = message
}
