// Package services carries the error taxonomy and request context shared
// by the external collaborator clients and the HTTP layer.
package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/HariKoor/OMR-API/internal/music"
	"github.com/HariKoor/OMR-API/internal/musicxml"
)

var (
	// ErrExternalTool marks failures of the OMR or rendering binaries.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks caller mistakes: bad keys, wrong file types.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable tool configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks unknown sessions or missing artifacts.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks collaborator invocations that exceeded their budget.
	ErrTimeout = errors.New("timeout")
)

// Wrap tags err with a sentinel marker and an operation detail so the HTTP
// layer can classify it later. A nil marker defaults to ErrExternalTool.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalTool
	}
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps an error to the response status the API should emit.
// Domain errors from the engine classify without wrapping: invalid keys
// and malformed documents are the caller's problem, tool failures are a
// bad gateway, everything else is internal.
func HTTPStatus(err error) int {
	var invalidKey *music.InvalidKeyError
	var badDocument *musicxml.DocumentFormatError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &invalidKey), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &badDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrExternalTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
