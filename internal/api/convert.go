package api

import (
	"time"

	"github.com/HariKoor/OMR-API/internal/deps"
	"github.com/HariKoor/OMR-API/internal/music"
	"github.com/HariKoor/OMR-API/internal/session"
)

// timeFormat is used for RFC3339 timestamps in API payloads.
const timeFormat = time.RFC3339

// KeyViews builds the supported key list, flats first.
func KeyViews() []KeyView {
	keys := music.Keys()
	views := make([]KeyView, 0, len(keys))
	for _, key := range keys {
		info, _ := music.LookupKey(key)
		views = append(views, KeyView{
			Fifths:  int(key),
			Name:    string(info.Tonic),
			Display: info.DisplayName(),
		})
	}
	return views
}

// MetadataFromSession extracts the recognition metadata of a session.
func MetadataFromSession(sess *session.Session) Metadata {
	meta := Metadata{
		KeyDisplay: "Unknown",
		PartName:   sess.PartName,
	}
	if sess.KeySignature != nil {
		fifths := int(*sess.KeySignature)
		meta.KeySignature = &fifths
		meta.KeyDisplay = music.KeyDisplayName(*sess.KeySignature)
	}
	if sess.TimeBeats != "" && sess.TimeBeatType != "" {
		meta.TimeSignature = sess.TimeBeats + "/" + sess.TimeBeatType
	}
	return meta
}

// SessionToView converts a stored session into its API representation.
func SessionToView(sess *session.Session) SessionView {
	view := SessionView{
		SessionID:    sess.ID,
		Status:       string(sess.Status),
		Metadata:     MetadataFromSession(sess),
		ErrorMessage: sess.ErrorMessage,
		CreatedAt:    sess.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:    sess.UpdatedAt.UTC().Format(timeFormat),
	}
	if sess.TargetKey != nil {
		target := int(*sess.TargetKey)
		view.TargetKey = &target
	}
	return view
}

// DependencyViews converts dependency statuses into their API representation.
func DependencyViews(statuses []deps.Status) []DependencyStatus {
	views := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		views = append(views, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return views
}
