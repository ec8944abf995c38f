// Package api defines the JSON payloads exchanged over the HTTP API and
// the converters that build them from domain types.
package api

// KeyView describes one supported key signature.
type KeyView struct {
	Fifths  int    `json:"fifths"`
	Name    string `json:"name"`
	Display string `json:"display"`
}

// KeysResponse lists every key signature the service can transpose to.
type KeysResponse struct {
	Keys []KeyView `json:"keys"`
}

// Metadata summarizes what recognition extracted from a score.
type Metadata struct {
	KeySignature  *int   `json:"key_signature"`
	KeyDisplay    string `json:"key_display"`
	TimeSignature string `json:"time_signature,omitempty"`
	PartName      string `json:"part_name,omitempty"`
}

// UploadResponse is returned after a PDF has been uploaded and recognized.
type UploadResponse struct {
	SessionID string   `json:"session_id"`
	Status    string   `json:"status"`
	Metadata  Metadata `json:"metadata"`
}

// TransposeResponse is returned after a successful transposition.
type TransposeResponse struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	SourceKey       int    `json:"source_key"`
	TargetKey       int    `json:"target_key"`
	Shift           int    `json:"shift"`
	NotesTransposed int    `json:"notes_transposed"`
	KeysUpdated     int    `json:"keys_updated"`
	OutputFile      string `json:"output_file"`
}

// SessionView describes a session for API consumers.
type SessionView struct {
	SessionID    string   `json:"session_id"`
	Status       string   `json:"status"`
	Metadata     Metadata `json:"metadata"`
	TargetKey    *int     `json:"target_key,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// DependencyStatus captures availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	SessionDBPath string             `json:"session_db_path"`
	SessionCount  int                `json:"session_count"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// HealthResponse is the health probe payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
