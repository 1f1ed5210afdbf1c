package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/models"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

type fakeService struct {
	uploaded *models.UploadRequest
	fields   []string
	listArgs [2]int
	matched  []syllabus.Metadata
	err      error
}

func (f *fakeService) UploadSyllabus(_ context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	f.uploaded = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadResponse{ID: "abc", Filename: req.Filename, FileSize: int64(len(req.File)), ContentType: req.ContentType}, nil
}

func (f *fakeService) GetSyllabus(_ context.Context, id string) (*models.Syllabus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Syllabus{ID: id, Filename: "bio.pdf"}, nil
}

func (f *fakeService) ListSyllabi(_ context.Context, limit, offset int) ([]models.Syllabus, error) {
	f.listArgs = [2]int{limit, offset}
	return []models.Syllabus{{ID: "a"}}, nil
}

func (f *fakeService) ExtractMetadata(_ context.Context, id string, fields []string) (*models.ExtractionResponse, error) {
	f.fields = fields
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExtractionResponse{ID: id, Metadata: map[string]any{"filename": "bio.pdf"}, ExtractedAt: time.Now()}, nil
}

func (f *fakeService) CheckAvailability(_ context.Context, id string) (*models.AvailabilityResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AvailabilityResponse{ID: id, Report: library.AvailabilityReport{Found: true, LibraryMatches: []library.MatchResult{}}}, nil
}

func (f *fakeService) MatchMetadata(_ context.Context, records []syllabus.Metadata) []library.AvailabilityReport {
	f.matched = records
	out := make([]library.AvailabilityReport, len(records))
	for i, md := range records {
		out[i] = library.AvailabilityReport{Metadata: md, LibraryMatches: []library.MatchResult{}}
	}
	return out
}

func newTestHandler(svc *fakeService, maxSize int64) *mux.Router {
	h := NewSyllabusHandler(svc, maxSize, utils.NopLogger())
	r := mux.NewRouter()
	r.HandleFunc("/syllabi", h.ListSyllabi)
	r.HandleFunc("/syllabi/upload", h.UploadSyllabus)
	r.HandleFunc("/syllabi/{id}", h.GetSyllabus)
	r.HandleFunc("/syllabi/{id}/extract", h.ExtractMetadata)
	r.HandleFunc("/syllabi/{id}/availability", h.CheckAvailability)
	r.HandleFunc("/availability", h.CheckBatchAvailability)
	r.HandleFunc("/metadata-fields", h.MetadataFields)
	return r
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestUploadSyllabus_UsesExtensionForContentType(t *testing.T) {
	svc := &fakeService{}
	body, ct := multipartBody(t, "syllabus.txt", []byte("BIO 101"))

	req := httptest.NewRequest(http.MethodPost, "/syllabi/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := do(newTestHandler(svc, 0), req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.uploaded)
	assert.Equal(t, "text/plain", svc.uploaded.ContentType)
	assert.Equal(t, "syllabus.txt", svc.uploaded.Filename)
}

func TestUploadSyllabus_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		maxSize  int64
		message  string
	}{
		{"unsupported type", "notes.doc", []byte("x"), 0, "Only PDF, DOCX and TXT files are allowed"},
		{"empty file", "notes.txt", []byte{}, 0, "Uploaded file is empty"},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), 4096), 1024, "File size exceeds 1024 bytes limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			body, ct := multipartBody(t, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/syllabi/upload", body)
			req.Header.Set("Content-Type", ct)

			rec := do(newTestHandler(svc, tt.maxSize), req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, errorMessage(t, rec))
			assert.Nil(t, svc.uploaded)
		})
	}
}

func TestUploadSyllabus_NoFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/syllabi/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(newTestHandler(&fakeService{}, 0), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", errorMessage(t, rec))
}

func TestGetSyllabus_MapsAppError(t *testing.T) {
	svc := &fakeService{err: utils.NewNotFoundError("Syllabus not found")}
	rec := do(newTestHandler(svc, 0), httptest.NewRequest(http.MethodGet, "/syllabi/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Syllabus not found", errorMessage(t, rec))
}

func TestGetSyllabus_HidesUnexpectedErrors(t *testing.T) {
	svc := &fakeService{err: assert.AnError}
	rec := do(newTestHandler(svc, 0), httptest.NewRequest(http.MethodGet, "/syllabi/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, rec))
}

func TestListSyllabi_Paging(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, 0)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/syllabi?limit=5&offset=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{5, 10}, svc.listArgs)
	assert.JSONEq(t, `{"syllabi":[{"id":"a","filename":"","file_size":0,"content_type":"","s3_key":"","created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}]}`, rec.Body.String())

	rec = do(h, httptest.NewRequest(http.MethodGet, "/syllabi?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractMetadata_ParsesFields(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestHandler(svc, 0),
		httptest.NewRequest(http.MethodPost, "/syllabi/abc/extract?fields=year,%20semester&fields=reading_materials", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"year", "semester", "reading_materials"}, svc.fields)
}

func TestCheckAvailability(t *testing.T) {
	rec := do(newTestHandler(&fakeService{}, 0), httptest.NewRequest(http.MethodPost, "/syllabi/abc/availability", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.ID)
	assert.True(t, resp.Report.Found)
}

func TestCheckBatchAvailability(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, 0)

	body := `{"metadata":[{"filename":"a.pdf","year":2024,"reading_materials":["Campbell Biology"]},{"filename":"b.pdf"}]}`
	rec := do(h, httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.matched, 2)
	assert.Equal(t, "2024", svc.matched[0].Year)
	require.Len(t, svc.matched[0].ReadingMaterials, 1)
	assert.Equal(t, "Campbell Biology", svc.matched[0].ReadingMaterials[0].Title)

	var resp models.BatchAvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b.pdf", resp.Results[1].Metadata.Filename)

	rec = do(h, httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(`{"metadata":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetadataFields(t *testing.T) {
	rec := do(newTestHandler(&fakeService{}, 0), httptest.NewRequest(http.MethodGet, "/metadata-fields", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.FieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, syllabus.Fields, resp.Fields)
}
