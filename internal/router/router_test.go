package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

func TestRouter_Health(t *testing.T) {
	h := NewRouter(nil, 0, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_PreflightNeverReachesHandlers(t *testing.T) {
	h := NewRouter(nil, 0, utils.NopLogger())

	for _, path := range []string{"/api/v1/syllabi/upload", "/api/v1/syllabi/abc/extract", "/api/v1/availability", "/api/v1/syllabi"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}
}

func TestRouter_MetadataFields(t *testing.T) {
	h := NewRouter(nil, 0, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metadata-fields", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reading_materials"`)
}

func TestRouter_WrongMethod(t *testing.T) {
	h := NewRouter(nil, 0, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/syllabi/abc", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_UnmatchedRoutesGetCORSHeaders(t *testing.T) {
	h := NewRouter(nil, 0, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
