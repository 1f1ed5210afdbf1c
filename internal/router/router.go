package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/handlers"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/middleware"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/services"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

func NewRouter(service services.SyllabusService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()
	h := handlers.NewSyllabusHandler(service, maxFileSize, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/metadata-fields", h.MetadataFields).Methods(http.MethodGet)

	// Syllabus endpoints
	api.HandleFunc("/syllabi", h.ListSyllabi).Methods(http.MethodGet)
	api.HandleFunc("/syllabi/upload", h.UploadSyllabus).Methods(http.MethodPost)
	api.HandleFunc("/syllabi/{id}/extract", h.ExtractMetadata).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/syllabi/{id}/availability", h.CheckAvailability).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/syllabi/{id}", h.GetSyllabus).Methods(http.MethodGet)

	// Metadata supplied by the caller
	api.HandleFunc("/availability", h.CheckBatchAvailability).Methods(http.MethodPost)

	// Wrapped outside the mux so that preflights, 404s and 405s pass through
	// the middlewares too.
	return middleware.Chain(r,
		middleware.Logger(logger),
		middleware.CORS(),
		middleware.Recovery(logger),
	)
}
