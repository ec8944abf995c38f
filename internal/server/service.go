// Package server hosts the transposition workflow: it orchestrates the
// external recognition and rendering tools around the document rewriter,
// persists per-upload sessions, and exposes the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/logging"
	"github.com/HariKoor/OMR-API/internal/music"
	"github.com/HariKoor/OMR-API/internal/musicxml"
	"github.com/HariKoor/OMR-API/internal/mxl"
	"github.com/HariKoor/OMR-API/internal/services"
	"github.com/HariKoor/OMR-API/internal/services/audiveris"
	"github.com/HariKoor/OMR-API/internal/services/musescore"
	"github.com/HariKoor/OMR-API/internal/session"
)

// Service coordinates one upload's journey through recognition,
// transposition, and rendering.
type Service struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *session.Store
	recognizer audiveris.Recognizer
	renderer   musescore.Renderer
}

// NewService wires the workflow service.
func NewService(cfg *config.Config, logger *slog.Logger, store *session.Store, recognizer audiveris.Recognizer, renderer musescore.Renderer) (*Service, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("service requires config and store")
	}
	if recognizer == nil || renderer == nil {
		return nil, errors.New("service requires recognizer and renderer")
	}
	return &Service{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "workflow"),
		store:      store,
		recognizer: recognizer,
		renderer:   renderer,
	}, nil
}

func (s *Service) sessionDir(id string) string {
	return filepath.Join(s.cfg.Paths.SessionsDir, id)
}

// Upload stores the uploaded PDF, runs recognition over it, and records the
// extracted score metadata on a fresh session.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*session.Session, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return nil, services.Wrap(services.ErrValidation, "upload",
			fmt.Sprintf("only PDF uploads are accepted, got %q", filepath.Base(filename)), nil)
	}

	sess, err := s.store.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger := s.logger.With(logging.String("session_id", sess.ID))

	dir := s.sessionDir(sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := writeStream(pdfPath, r); err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	sess.PDFPath = pdfPath

	logger.Info("recognition started", logging.String("pdf", pdfPath))
	export, err := s.recognizer.Recognize(ctx, pdfPath, filepath.Join(dir, "omr"))
	if err != nil {
		return nil, s.failSession(ctx, sess, s.toolError("recognize", "optical music recognition failed", err))
	}

	scorePath := export
	if strings.ToLower(filepath.Ext(export)) == ".mxl" {
		sess.MXLPath = export
		extracted, err := mxl.Extract(export, "")
		if err != nil {
			return nil, s.failSession(ctx, sess, fmt.Errorf("extract recognized archive: %w", err))
		}
		scorePath, err = mxl.FindScore(extracted)
		if err != nil {
			return nil, s.failSession(ctx, sess, err)
		}
	}

	summary, err := musicxml.ParseSummary(scorePath)
	if err != nil {
		return nil, s.failSession(ctx, sess, err)
	}

	sess.Status = session.StatusRecognized
	sess.ScorePath = scorePath
	sess.KeySignature = summary.Key
	if summary.Time != nil {
		sess.TimeBeats = strconv.Itoa(summary.Time.Beats)
		sess.TimeBeatType = strconv.Itoa(summary.Time.BeatType)
	}
	sess.PartName = summary.PartName
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	logger.Info("recognition finished",
		logging.String("score", scorePath),
		logging.String("key", summary.KeyDisplay()),
	)
	return sess, nil
}

// Transpose rewrites the session's recognized score into the target key and
// records the output document.
func (s *Service) Transpose(ctx context.Context, sessionID string, targetFifths int) (*session.Session, *musicxml.Result, error) {
	if err := music.CheckKey(targetFifths); err != nil {
		return nil, nil, err
	}

	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.ScorePath == "" {
		return nil, nil, services.Wrap(services.ErrValidation, "transpose",
			"session has no recognized score document", nil)
	}

	summary, err := musicxml.ParseSummary(sess.ScorePath)
	if err != nil {
		return nil, nil, err
	}
	target := music.Key(targetFifths)
	result, err := musicxml.TransposeFile(summary, target, "")
	if err != nil {
		return nil, nil, err
	}

	sess.Status = session.StatusTransposed
	sess.TransposedPath = result.OutputPath
	sess.TargetKey = &target
	sess.KeySignature = summary.Key
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("update session: %w", err)
	}

	s.logger.Info("score transposed",
		logging.String("session_id", sess.ID),
		logging.Int("target", targetFifths),
		logging.Int("shift", result.Shift),
		logging.Int("notes", result.NotesTransposed),
	)
	return sess, result, nil
}

// Render converts the session's current score (the transposed document when
// one exists, otherwise the recognized original) into a PDF.
func (s *Service) Render(ctx context.Context, sessionID string) (*session.Session, string, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	scorePath := sess.TransposedPath
	if scorePath == "" {
		scorePath = sess.ScorePath
	}
	if scorePath == "" {
		return nil, "", services.Wrap(services.ErrValidation, "render",
			"session has no score document to render", nil)
	}

	pdfPath, err := s.renderer.Render(ctx, scorePath, "")
	if err != nil {
		return nil, "", s.toolError("render", "score rendering failed", err)
	}

	sess.Status = session.StatusRendered
	sess.RenderedPath = pdfPath
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("update session: %w", err)
	}

	s.logger.Info("score rendered",
		logging.String("session_id", sess.ID),
		logging.String("pdf", pdfPath),
	)
	return sess, pdfPath, nil
}

// Get returns a session by identifier.
func (s *Service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.lookup(ctx, sessionID)
}

// List returns all sessions.
func (s *Service) List(ctx context.Context) ([]*session.Session, error) {
	return s.store.List(ctx)
}

// nowFunc is swapped out by tests that need deterministic sweeps.
var nowFunc = time.Now

// Sweep removes sessions past the retention window together with their
// working directories, returning how many were removed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	retention := time.Duration(s.cfg.Sessions.RetentionMinutes) * time.Minute
	boundary := nowFunc().UTC().Add(-retention)
	expired, err := s.store.PurgeOlderThan(ctx, boundary)
	if err != nil {
		return 0, err
	}
	for _, sess := range expired {
		if err := os.RemoveAll(s.sessionDir(sess.ID)); err != nil {
			s.logger.Warn("session directory cleanup failed",
				logging.String("session_id", sess.ID),
				logging.Error(err),
			)
		}
	}
	if len(expired) > 0 {
		s.logger.Info("expired sessions swept", logging.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (s *Service) lookup(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "session",
			fmt.Sprintf("session %q not found", sessionID), nil)
	}
	return sess, nil
}

// failSession marks the session failed and persists the message before
// handing the error back to the caller.
func (s *Service) failSession(ctx context.Context, sess *session.Session, cause error) error {
	sess.Fail(cause.Error())
	if err := s.store.Update(ctx, sess); err != nil {
		s.logger.Warn("failed to persist session failure",
			logging.String("session_id", sess.ID),
			logging.Error(err),
		)
	}
	return cause
}

// toolError classifies an external tool failure, distinguishing budget
// exhaustion from genuine tool errors.
func (s *Service) toolError(operation, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, operation, message, err)
	}
	return services.Wrap(services.ErrExternalTool, operation, message, err)
}

func writeStream(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
