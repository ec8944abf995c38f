package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/HariKoor/OMR-API/internal/api"
	"github.com/HariKoor/OMR-API/internal/logging"
)

func newTestHandler(t *testing.T) (*testEnv, http.Handler) {
	t.Helper()

	env := newTestEnv(t)
	srv, err := newAPIServer(env.cfg, env.svc, env.store, logging.NewNop())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	if srv == nil {
		t.Fatal("api server should be configured")
	}
	return env, srv.handler()
}

func multipartPDF(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func uploadViaAPI(t *testing.T, handler http.Handler) api.UploadResponse {
	t.Helper()

	body, contentType := multipartPDF(t, "file", "sheet.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp api.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestKeysEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp api.KeysResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Keys) != 15 {
		t.Fatalf("keys = %d, want 15", len(resp.Keys))
	}
	if resp.Keys[0].Fifths != -7 || resp.Keys[14].Fifths != 7 {
		t.Errorf("range = [%d, %d]", resp.Keys[0].Fifths, resp.Keys[14].Fifths)
	}
}

func TestUploadEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)

	resp := uploadViaAPI(t, handler)
	if resp.SessionID == "" {
		t.Fatal("session id missing")
	}
	if resp.Status != "recognized" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Metadata.KeyDisplay != "C major" {
		t.Errorf("key display = %q", resp.Metadata.KeyDisplay)
	}
	if resp.Metadata.TimeSignature != "4/4" {
		t.Errorf("time signature = %q", resp.Metadata.TimeSignature)
	}
}

func TestUploadEndpointRequiresFileField(t *testing.T) {
	_, handler := newTestHandler(t)

	body, contentType := multipartPDF(t, "document", "sheet.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadEndpointRejectsNonPDF(t *testing.T) {
	_, handler := newTestHandler(t)

	body, contentType := multipartPDF(t, "file", "sheet.png")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	var resp api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" {
		t.Error("error message missing")
	}
}

func TestTransposeEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)
	uploaded := uploadViaAPI(t, handler)

	rec := postForm(handler, "/api/transpose", url.Values{
		"session_id": {uploaded.SessionID},
		"target_key": {"2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp api.TransposeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Shift != 2 || resp.TargetKey != 2 || resp.SourceKey != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.OutputFile != "score_transposed_to_D.xml" {
		t.Errorf("output file = %q", resp.OutputFile)
	}
}

func TestTransposeEndpointValidation(t *testing.T) {
	_, handler := newTestHandler(t)
	uploaded := uploadViaAPI(t, handler)

	cases := []struct {
		name string
		form url.Values
		want int
	}{
		{"missing session", url.Values{"target_key": {"2"}}, http.StatusBadRequest},
		{"bad target", url.Values{"session_id": {uploaded.SessionID}, "target_key": {"abc"}}, http.StatusBadRequest},
		{"out of range target", url.Values{"session_id": {uploaded.SessionID}, "target_key": {"9"}}, http.StatusBadRequest},
		{"unknown session", url.Values{"session_id": {"missing"}, "target_key": {"2"}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := postForm(handler, "/api/transpose", tc.form)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestConvertEndpointReturnsPDF(t *testing.T) {
	_, handler := newTestHandler(t)
	uploaded := uploadViaAPI(t, handler)

	rec := postForm(handler, "/api/convert-to-pdf", url.Values{
		"session_id": {uploaded.SessionID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Errorf("content disposition = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestSessionEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)
	uploaded := uploadViaAPI(t, handler)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/sessions/%s", uploaded.SessionID), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view api.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.SessionID != uploaded.SessionID || view.Status != "recognized" {
		t.Errorf("view = %+v", view)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, handler := newTestHandler(t)
	uploadViaAPI(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp api.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Running {
		t.Error("running should be true")
	}
	if resp.SessionCount != 1 {
		t.Errorf("session count = %d", resp.SessionCount)
	}
	if len(resp.Dependencies) != 2 {
		t.Errorf("dependencies = %d, want 2", len(resp.Dependencies))
	}
	if resp.SessionDBPath == "" {
		t.Error("session db path missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, handler := newTestHandler(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/keys"},
		{http.MethodGet, "/api/upload-pdf"},
		{http.MethodGet, "/api/transpose"},
		{http.MethodDelete, "/api/status"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}
