package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/extractor"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/models"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/services"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// DefaultMaxFileSize applies when the handler is built with a non-positive limit.
const DefaultMaxFileSize = 10 << 20

// maxBatchBody bounds the JSON body of a batch availability request.
const maxBatchBody = 5 << 20

type SyllabusHandler struct {
	service     services.SyllabusService
	maxFileSize int64
	logger      *utils.Logger
}

func NewSyllabusHandler(service services.SyllabusService, maxFileSize int64, logger *utils.Logger) *SyllabusHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &SyllabusHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (h *SyllabusHandler) UploadSyllabus(w http.ResponseWriter, r *http.Request) {
	tooLarge := utils.NewBadRequestError(fmt.Sprintf("File size exceeds %s limit", humanSize(h.maxFileSize)))

	// Reject oversized requests before reading the body
	if r.ContentLength > h.maxFileSize {
		h.respondError(w, tooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, tooLarge)
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	reported := header.Header.Get("Content-Type")
	contentType := extractor.ContentTypeFor(header.Filename, reported)

	h.logger.Info("File upload attempt",
		"filename", header.Filename,
		"reported_content_type", reported,
		"determined_content_type", contentType)

	if !extractor.IsSupported(contentType) {
		h.respondError(w, utils.NewBadRequestError("Only PDF, DOCX and TXT files are allowed"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read file"))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		h.respondError(w, tooLarge)
		return
	}
	if len(data) == 0 {
		h.respondError(w, utils.NewBadRequestError("Uploaded file is empty"))
		return
	}

	resp, err := h.service.UploadSyllabus(r.Context(), &models.UploadRequest{
		File:        data,
		Filename:    header.Filename,
		ContentType: contentType,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *SyllabusHandler) GetSyllabus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Syllabus ID is required"))
		return
	}

	s, err := h.service.GetSyllabus(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, s)
}

func (h *SyllabusHandler) ListSyllabi(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.respondError(w, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		h.respondError(w, err)
		return
	}

	list, err := h.service.ListSyllabi(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.ListResponse{Syllabi: list})
}

// ExtractMetadata runs extraction on a stored syllabus. The fields query
// parameter narrows the result; it may be repeated or comma separated.
func (h *SyllabusHandler) ExtractMetadata(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Syllabus ID is required"))
		return
	}

	resp, err := h.service.ExtractMetadata(r.Context(), id, fieldsParam(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *SyllabusHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Syllabus ID is required"))
		return
	}

	resp, err := h.service.CheckAvailability(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// CheckBatchAvailability matches metadata records supplied in the body.
func (h *SyllabusHandler) CheckBatchAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBatchBody)).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}
	if len(req.Metadata) == 0 {
		h.respondError(w, utils.NewBadRequestError("At least one metadata record is required"))
		return
	}

	results := h.service.MatchMetadata(r.Context(), req.Metadata)
	h.respondJSON(w, http.StatusOK, models.BatchAvailabilityResponse{Results: results})
}

func (h *SyllabusHandler) MetadataFields(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, models.FieldsResponse{Fields: syllabus.Fields})
}

func fieldsParam(r *http.Request) []string {
	var fields []string
	for _, v := range r.URL.Query()["fields"] {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, utils.NewBadRequestError(fmt.Sprintf("Invalid %s parameter", name))
	}
	return n, nil
}

func humanSize(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (h *SyllabusHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *SyllabusHandler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		message = appErr.Message
	}

	h.logger.Error("Request error", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
