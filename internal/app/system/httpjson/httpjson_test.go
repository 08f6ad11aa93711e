package httpjson_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpjson.ErrorBody {
	t.Helper()
	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestWriteError_MapsCodes(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.WriteError(rec, zap.NewNop(), apperr.ErrRoleDenied)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != apperr.CodeRoleDenied {
		t.Errorf("code = %s", body.Error.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store header")
	}
}

func TestWriteError_CrossTenantLooksLikeNotFound(t *testing.T) {
	a := httptest.NewRecorder()
	httpjson.WriteError(a, zap.NewNop(), apperr.ErrCrossTenant)
	b := httptest.NewRecorder()
	httpjson.WriteError(b, zap.NewNop(), apperr.ErrNotFound)

	if a.Code != b.Code || a.Body.String() != b.Body.String() {
		t.Errorf("cross-tenant response %d %s differs from not-found %d %s", a.Code, a.Body, b.Code, b.Body)
	}
}

func TestWriteError_HidesStoreCause(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.WriteError(rec, zap.NewNop(), errors.New("mongo: server selection timeout at 10.0.0.4"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.4") {
		t.Errorf("body leaks internals: %s", rec.Body.String())
	}
}

func TestDecode(t *testing.T) {
	type in struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"name":"Acme"}`, false},
		{"empty", ``, true},
		{"syntax", `{"name":`, true},
		{"unknown field", `{"nam":"x"}`, true},
		{"trailing", `{"name":"a"}{"name":"b"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst in
			err := httpjson.Decode(httptest.NewRecorder(), req, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apperr.CodeOf(err) != apperr.CodeValidation {
				t.Errorf("code = %s, want VALIDATION_ERROR", apperr.CodeOf(err))
			}
		})
	}
}
