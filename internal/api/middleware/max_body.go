package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/helliohr/recruit/internal/api/response"
)

// errRequestBodyTooLarge is the message http.MaxBytesReader produces when the
// limit is exceeded.
const errRequestBodyTooLarge = "http: request body too large"

// MaxBody limits request body size to maxBytes, responding 413 when exceeded.
// Use 0 or negative to disable. Only POST/PUT/PATCH bodies are limited.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mayHaveBody(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			var limitExceeded bool

			r.Body = &maxBodyReader{
				ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes),
				onReadError: func(err error) {
					if err != nil && strings.Contains(err.Error(), errRequestBodyTooLarge) {
						limitExceeded = true
					}
				},
			}

			// Buffer the response so an over-limit request can be rewritten to
			// a 413 even after the handler replied with its own error.
			rw := &deferredWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			if limitExceeded {
				response.RespondError(w, http.StatusRequestEntityTooLarge,
					"Request Entity Too Large", "request body exceeds maximum allowed size")
				return
			}

			rw.flush()
		})
	}
}

func mayHaveBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

type maxBodyReader struct {
	io.ReadCloser

	onReadError func(error)
}

func (r *maxBodyReader) Read(p []byte) (n int, err error) {
	n, err = r.ReadCloser.Read(p)
	if err != nil {
		if r.onReadError != nil {
			r.onReadError(err)
		}

		return n, fmt.Errorf("read body: %w", err)
	}

	return n, nil
}

// deferredWriter buffers status and body until flush.
type deferredWriter struct {
	http.ResponseWriter

	status int
	body   []byte
}

func (w *deferredWriter) WriteHeader(code int) {
	w.status = code
}

func (w *deferredWriter) Write(p []byte) (int, error) {
	w.body = append(w.body, p...)
	return len(p), nil
}

func (w *deferredWriter) flush() {
	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}

	if len(w.body) > 0 {
		_, _ = w.ResponseWriter.Write(w.body)
	}
}
