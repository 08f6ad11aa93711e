// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
)

// Handler renders router-level failures in the API's error shape.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteError(w, nil, apperr.ErrNotFound)
}

// MethodNotAllowed answers a known path with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteJSON(w, http.StatusMethodNotAllowed, httpjson.ErrorBody{
		Error: httpjson.ErrorDetail{Code: apperr.CodeValidation, Message: "method " + r.Method + " is not allowed here"},
	})
}
