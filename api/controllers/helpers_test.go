package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/api/middleware"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

type caller = middleware.Caller

func guest(session string) caller {
	return caller{SessionID: session}
}

func customer(id uuid.UUID) caller {
	return caller{UserID: id, Role: enums.UserRoleCustomer}
}

func admin(id uuid.UUID) caller {
	return caller{UserID: id, Role: enums.UserRoleAdmin}
}

// serve mounts handler on pattern and issues one request as who.
func serve(t *testing.T, method, pattern, target string, body string, who caller, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithCaller(req.Context(), who)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return envelope.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, rec.Body.String())
	}
	return envelope.Error.Code
}
