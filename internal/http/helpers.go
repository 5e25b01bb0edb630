package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"billview/internal/core"
	"billview/internal/log"
)

type envelope map[string]any

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(append(js, '\n'))
}

// readJSON decodes a single JSON value from the request body.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
		case errors.As(err, &maxErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"error": message})
}

func badRequest(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

func notFound(w http.ResponseWriter, what string) {
	errorResponse(w, http.StatusNotFound, what+" not found")
}

// upstreamError reports a fetch failure with its localized banner message.
func upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := core.KindOf(err)
	status := http.StatusBadGateway
	if kind == core.KindNetwork {
		status = http.StatusServiceUnavailable
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Upstream request failed",
		log.FieldOperation, op,
		log.FieldErrorKind, kind.String(),
		log.FieldError, err.Error())
	writeJSON(w, status, envelope{
		"error":     core.UserMessage(err),
		"kind":      kind.String(),
		"retryable": kind != core.KindData,
	})
}

func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).LogError(r.Context(), "Request failed", op, err, nil)
	errorResponse(w, http.StatusInternalServerError, err.Error())
}

// attachmentName builds a filesystem-safe download name.
func attachmentName(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			switch {
			case r == '/' || r == '\\' || r == '"' || r < 0x20:
				return -1
			case r == ' ':
				return '_'
			}
			return r
		}, strings.TrimSpace(p))
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "-")
}
