// Package httpjson writes JSON responses and decodes JSON request bodies.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/limits"
	"go.uber.org/zap"
)

// WriteJSON writes v with the given status and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache prevents intermediaries from caching the response.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and a client-safe message.
type ErrorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// WriteError renders err as {"error":{"code","message"}}. Store errors are
// logged with their cause; clients only see a generic message.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := apperr.From(err)
	if ae.Code == apperr.CodeStore && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	msg := ae.Message
	if ae.Code == apperr.CodeCrossTenantDenied {
		// Same body as a plain miss.
		ae = apperr.ErrNotFound
		msg = ae.Message
	}
	WriteJSON(w, apperr.HTTPStatus(ae.Code), ErrorBody{Error: ErrorDetail{Code: ae.Code, Message: msg}})
}

// Decode reads a JSON body into dst. Unknown fields and trailing data are
// rejected as validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation(describeDecodeErr(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("request body must contain a single JSON object")
	}
	return nil
}

func describeDecodeErr(err error) string {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syn):
		return "request body is not valid JSON"
	case errors.As(err, &typ):
		if typ.Field != "" {
			return typ.Field + " has the wrong type"
		}
		return "request body has the wrong type"
	case errors.As(err, &tooBig):
		return "request body is too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return err.Error()
	}
}
