package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HariKoor/OMR-API/internal/api"
	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/deps"
	"github.com/HariKoor/OMR-API/internal/logging"
	"github.com/HariKoor/OMR-API/internal/services"
	"github.com/HariKoor/OMR-API/internal/session"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	cfg    *config.Config
	svc    *Service
	store  *session.Store

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, svc *Service, store *session.Store, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || svc == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.WithComponent(logger, "api-server"),
		cfg:    cfg,
		svc:    svc,
		store:  store,
	}
	srv.server = &http.Server{
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/keys", s.handleKeys)
	mux.HandleFunc("/api/upload-pdf", s.handleUpload)
	mux.HandleFunc("/api/transpose", s.handleTranspose)
	mux.HandleFunc("/api/convert-to-pdf", s.handleConvert)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *apiServer) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.KeysResponse{Keys: api.KeyViews()})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	maxBytes := int64(s.cfg.Sessions.MaxUploadMiB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d MiB limit", s.cfg.Sessions.MaxUploadMiB))
			return
		}
		s.writeError(w, http.StatusBadRequest, "multipart form field \"file\" is required")
		return
	}
	defer file.Close()

	sess, err := s.svc.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Metadata:  api.MetadataFromSession(sess),
	})
}

func (s *apiServer) handleTranspose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	target, err := strconv.Atoi(strings.TrimSpace(r.FormValue("target_key")))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "target_key must be an integer fifths value")
		return
	}

	sess, result, err := s.svc.Transpose(r.Context(), sessionID, target)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	sourceKey := 0
	if sess.KeySignature != nil {
		sourceKey = int(*sess.KeySignature)
	}
	s.writeJSON(w, http.StatusOK, api.TransposeResponse{
		SessionID:       sess.ID,
		Status:          string(sess.Status),
		SourceKey:       sourceKey,
		TargetKey:       target,
		Shift:           result.Shift,
		NotesTransposed: result.NotesTransposed,
		KeysUpdated:     result.KeysUpdated,
		OutputFile:      filepath.Base(result.OutputPath),
	})
}

func (s *apiServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	_, pdfPath, err := s.svc.Render(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(pdfPath)))
	http.ServeFile(w, r, pdfPath)
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	sess, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionToView(sess))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessions, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(s.cfg))

	payload := api.StatusResponse{
		Running:      true,
		PID:          os.Getpid(),
		SessionCount: len(sessions),
		Dependencies: api.DependencyViews(statuses),
	}
	if s.store != nil {
		payload.SessionDBPath = s.store.Path()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps a workflow error onto its HTTP status.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}
