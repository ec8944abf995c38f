package server

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/logging"
	"github.com/HariKoor/OMR-API/internal/music"
	"github.com/HariKoor/OMR-API/internal/services"
	"github.com/HariKoor/OMR-API/internal/session"
	"github.com/HariKoor/OMR-API/internal/testsupport"
)

// fakeRecognizer writes a canned export into the output directory.
type fakeRecognizer struct {
	mu         sync.Mutex
	exportName string
	err        error
	calls      int
	lastImage  string
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath, outputDir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastImage = imagePath
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	export := filepath.Join(outputDir, f.exportName)
	if strings.HasSuffix(f.exportName, ".mxl") {
		if err := writeArchive(export); err != nil {
			return "", err
		}
	} else {
		if err := os.WriteFile(export, []byte(testsupport.ScoreXML), 0o644); err != nil {
			return "", err
		}
	}
	return export, nil
}

// writeArchive builds a minimal compressed score container.
func writeArchive(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := zip.NewWriter(file)
	manifest := `<container><rootfiles><rootfile full-path="score.xml"/></rootfiles></container>`
	for name, content := range map[string]string{
		"META-INF/container.xml": manifest,
		"score.xml":              testsupport.ScoreXML,
	} {
		entry, err := writer.Create(name)
		if err != nil {
			return err
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			return err
		}
	}
	return writer.Close()
}

// fakeRenderer records what it rendered and writes a stub PDF.
type fakeRenderer struct {
	mu        sync.Mutex
	err       error
	lastScore string
}

func (f *fakeRenderer) Render(_ context.Context, scorePath, pdfPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastScore = scorePath
	if f.err != nil {
		return "", f.err
	}
	if pdfPath == "" {
		pdfPath = strings.TrimSuffix(scorePath, filepath.Ext(scorePath)) + ".pdf"
	}
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		return "", err
	}
	return pdfPath, nil
}

type testEnv struct {
	cfg        *config.Config
	store      *session.Store
	svc        *Service
	recognizer *fakeRecognizer
	renderer   *fakeRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	recognizer := &fakeRecognizer{exportName: "score.mxl"}
	renderer := &fakeRenderer{}

	svc, err := NewService(cfg, logging.NewNop(), store, recognizer, renderer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnv{cfg: cfg, store: store, svc: svc, recognizer: recognizer, renderer: renderer}
}

func uploadFixture(t *testing.T, env *testEnv) *session.Session {
	t.Helper()

	sess, err := env.svc.Upload(context.Background(), "sheet.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return sess
}

func TestUploadRecognizesArchiveExport(t *testing.T) {
	env := newTestEnv(t)

	sess := uploadFixture(t, env)
	if sess.Status != session.StatusRecognized {
		t.Errorf("status = %q", sess.Status)
	}
	if sess.MXLPath == "" {
		t.Error("archive export path should be recorded")
	}
	if sess.ScorePath == "" {
		t.Fatal("score path should be recorded")
	}
	if _, err := os.Stat(sess.ScorePath); err != nil {
		t.Errorf("score document missing: %v", err)
	}
	if sess.KeySignature == nil || *sess.KeySignature != 0 {
		t.Errorf("key signature = %v, want 0", sess.KeySignature)
	}
	if sess.TimeBeats != "4" || sess.TimeBeatType != "4" {
		t.Errorf("time = %s/%s", sess.TimeBeats, sess.TimeBeatType)
	}
	if sess.PartName != "Piano" {
		t.Errorf("part name = %q", sess.PartName)
	}
	if env.recognizer.lastImage != sess.PDFPath {
		t.Errorf("recognizer input = %q, want %q", env.recognizer.lastImage, sess.PDFPath)
	}
}

func TestUploadRecognizesLooseXMLExport(t *testing.T) {
	env := newTestEnv(t)
	env.recognizer.exportName = "score.xml"

	sess := uploadFixture(t, env)
	if sess.MXLPath != "" {
		t.Errorf("no archive involved, got %q", sess.MXLPath)
	}
	if filepath.Ext(sess.ScorePath) != ".xml" {
		t.Errorf("score path = %q", sess.ScorePath)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Upload(context.Background(), "sheet.png", strings.NewReader("not a pdf"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if env.recognizer.calls != 0 {
		t.Error("recognizer should not run for rejected uploads")
	}
}

func TestUploadToolFailureMarksSessionFailed(t *testing.T) {
	env := newTestEnv(t)
	env.recognizer.err = errors.New("jvm crashed")

	_, err := env.svc.Upload(context.Background(), "sheet.pdf", strings.NewReader("%PDF-1.4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool error", err)
	}

	sessions, listErr := env.store.List(context.Background())
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(sessions) != 1 || sessions[0].Status != session.StatusFailed {
		t.Fatalf("sessions = %+v, want one failed session", sessions)
	}
	if sessions[0].ErrorMessage == "" {
		t.Error("failure message should be persisted")
	}
}

func TestUploadTimeoutClassifiedAsTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.recognizer.err = context.DeadlineExceeded

	_, err := env.svc.Upload(context.Background(), "sheet.pdf", strings.NewReader("%PDF-1.4"))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want timeout error", err)
	}
}

func TestTransposeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := uploadFixture(t, env)

	updated, result, err := env.svc.Transpose(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	if updated.Status != session.StatusTransposed {
		t.Errorf("status = %q", updated.Status)
	}
	if result.Shift != 2 {
		t.Errorf("shift = %d, want 2", result.Shift)
	}
	if result.KeysUpdated == 0 || result.NotesTransposed == 0 {
		t.Errorf("result = %+v", result)
	}
	if updated.TargetKey == nil || *updated.TargetKey != 2 {
		t.Errorf("target key = %v", updated.TargetKey)
	}
	if _, err := os.Stat(updated.TransposedPath); err != nil {
		t.Errorf("transposed document missing: %v", err)
	}
	if filepath.Base(updated.TransposedPath) != "score_transposed_to_D.xml" {
		t.Errorf("output name = %q", filepath.Base(updated.TransposedPath))
	}
}

func TestTransposeRejectsInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	sess := uploadFixture(t, env)

	_, _, err := env.svc.Transpose(context.Background(), sess.ID, 9)
	var invalid *music.InvalidKeyError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidKeyError", err)
	}
	if invalid.Value != 9 {
		t.Errorf("value = %d", invalid.Value)
	}
}

func TestTransposeUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Transpose(context.Background(), "missing", 2)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRenderPrefersTransposedScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := uploadFixture(t, env)

	updated, _, err := env.svc.Transpose(ctx, sess.ID, -3)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}

	rendered, pdfPath, err := env.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if env.renderer.lastScore != updated.TransposedPath {
		t.Errorf("rendered %q, want the transposed document %q", env.renderer.lastScore, updated.TransposedPath)
	}
	if rendered.Status != session.StatusRendered {
		t.Errorf("status = %q", rendered.Status)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		t.Errorf("pdf missing: %v", err)
	}
}

func TestRenderFallsBackToRecognizedScore(t *testing.T) {
	env := newTestEnv(t)
	sess := uploadFixture(t, env)

	_, _, err := env.svc.Render(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if env.renderer.lastScore != sess.ScorePath {
		t.Errorf("rendered %q, want %q", env.renderer.lastScore, sess.ScorePath)
	}
}

func TestRenderToolFailure(t *testing.T) {
	env := newTestEnv(t)
	sess := uploadFixture(t, env)
	env.renderer.err = errors.New("segfault")

	_, _, err := env.svc.Render(context.Background(), sess.ID)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool error", err)
	}
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := uploadFixture(t, env)

	dir := env.svc.sessionDir(sess.ID)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("session directory missing before sweep: %v", err)
	}

	oldNow := nowFunc
	nowFunc = func() time.Time {
		return time.Now().Add(time.Duration(env.cfg.Sessions.RetentionMinutes+1) * time.Minute)
	}
	defer func() { nowFunc = oldNow }()

	removed, err := env.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("session directory should be deleted, stat err = %v", err)
	}
	sessions, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions remaining: %d", len(sessions))
	}
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	env := newTestEnv(t)
	uploadFixture(t, env)

	removed, err := env.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
