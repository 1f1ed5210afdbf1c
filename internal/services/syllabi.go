package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/extractor"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/models"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/repository"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/storage"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

const defaultListLimit = 50

type SyllabusService interface {
	UploadSyllabus(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	GetSyllabus(ctx context.Context, id string) (*models.Syllabus, error)
	ListSyllabi(ctx context.Context, limit, offset int) ([]models.Syllabus, error)
	ExtractMetadata(ctx context.Context, id string, fields []string) (*models.ExtractionResponse, error)
	CheckAvailability(ctx context.Context, id string) (*models.AvailabilityResponse, error)
	MatchMetadata(ctx context.Context, records []syllabus.Metadata) []library.AvailabilityReport
}

type syllabusService struct {
	repo         repository.Repository
	storage      storage.Storage
	orchestrator *syllabus.Orchestrator
	matcher      *library.Matcher
	logger       *utils.Logger
}

func NewService(
	repo repository.Repository,
	store storage.Storage,
	orchestrator *syllabus.Orchestrator,
	matcher *library.Matcher,
	logger *utils.Logger,
) SyllabusService {
	return &syllabusService{
		repo:         repo,
		storage:      store,
		orchestrator: orchestrator,
		matcher:      matcher,
		logger:       logger,
	}
}

func (s *syllabusService) UploadSyllabus(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	contentType := extractor.NormalizeContentType(req.ContentType)
	if !extractor.IsSupported(contentType) {
		s.logger.Warn("Unsupported content type", "content_type", req.ContentType, "filename", req.Filename)
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported file type '%s'. Only PDF, DOCX and TXT are allowed", req.ContentType))
	}

	// parse once up front so that broken files are rejected at upload time
	doc, err := extractor.Read(contentType, req.File)
	if err != nil {
		s.logger.Warn("Failed to read document", "error", err, "content_type", contentType, "filename", req.Filename)
		return nil, utils.NewBadRequestError("The file could not be read. It may be corrupted")
	}
	if strings.TrimSpace(extractor.ExtractText(doc)) == "" {
		s.logger.Warn("No text extracted from document", "filename", req.Filename)
		return nil, utils.NewBadRequestError("No text could be extracted from the document. The file may be empty or scanned")
	}

	id := utils.GenerateID()
	key := fmt.Sprintf("syllabi/%s/%s", id, req.Filename)
	if err := s.storage.Upload(ctx, key, req.File, contentType); err != nil {
		s.logger.Error("Failed to upload to S3", "error", err, "s3_key", key)
		return nil, utils.NewInternalError("Failed to store syllabus")
	}

	now := time.Now().UTC()
	record := &models.Syllabus{
		ID:          id,
		Filename:    req.Filename,
		FileSize:    int64(len(req.File)),
		ContentType: contentType,
		S3Key:       key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to save syllabus to database", "error", err, "id", id)
		_ = s.storage.Delete(ctx, key)
		return nil, utils.NewInternalError("Failed to save syllabus")
	}

	s.logger.Info("Syllabus uploaded",
		"id", id,
		"filename", req.Filename,
		"content_type", contentType,
		"file_size", record.FileSize)

	return &models.UploadResponse{
		ID:          id,
		Filename:    req.Filename,
		FileSize:    record.FileSize,
		ContentType: contentType,
		CreatedAt:   now,
		Message:     "Syllabus uploaded. Use /syllabi/{id}/extract or /syllabi/{id}/availability next.",
	}, nil
}

func (s *syllabusService) GetSyllabus(ctx context.Context, id string) (*models.Syllabus, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get syllabus", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve syllabus")
	}
	if record == nil {
		return nil, utils.NewNotFoundError("Syllabus not found")
	}

	return record, nil
}

func (s *syllabusService) ListSyllabi(ctx context.Context, limit, offset int) ([]models.Syllabus, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset = max(offset, 0)

	list, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list syllabi", "error", err)
		return nil, utils.NewInternalError("Failed to list syllabi")
	}
	return list, nil
}

func (s *syllabusService) ExtractMetadata(ctx context.Context, id string, fields []string) (*models.ExtractionResponse, error) {
	md, err := s.extract(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.ExtractionResponse{
		ID:          id,
		Metadata:    md.Select(fields),
		ExtractedAt: time.Now().UTC(),
	}, nil
}

func (s *syllabusService) CheckAvailability(ctx context.Context, id string) (*models.AvailabilityResponse, error) {
	md, err := s.extract(ctx, id)
	if err != nil {
		return nil, err
	}

	report := s.matcher.Match(ctx, md)
	s.logger.Info("Availability checked",
		"id", id,
		"total_materials", report.TotalMaterials,
		"found_materials", report.FoundMaterials)

	return &models.AvailabilityResponse{ID: id, Report: report}, nil
}

// MatchMetadata checks caller-supplied metadata, normalized first so that
// hand written records behave like extracted ones.
func (s *syllabusService) MatchMetadata(ctx context.Context, records []syllabus.Metadata) []library.AvailabilityReport {
	normalized := make([]syllabus.Metadata, len(records))
	for i, md := range records {
		normalized[i] = md.Normalize()
	}
	return s.matcher.MatchBatch(ctx, normalized)
}

// extract loads the stored file and runs the extraction chain on it.
// Extraction itself cannot fail; only loading the file can.
func (s *syllabusService) extract(ctx context.Context, id string) (syllabus.Metadata, error) {
	record, err := s.GetSyllabus(ctx, id)
	if err != nil {
		return syllabus.Metadata{}, err
	}

	data, err := s.storage.Download(ctx, record.S3Key)
	if err != nil {
		s.logger.Error("Failed to download syllabus", "error", err, "s3_key", record.S3Key)
		return syllabus.Metadata{}, utils.NewInternalError("Failed to load syllabus file")
	}

	doc, err := extractor.Read(record.ContentType, data)
	if err != nil {
		s.logger.Error("Failed to read stored syllabus", "error", err, "id", id)
		return syllabus.Metadata{}, utils.NewInternalError("Failed to read syllabus file")
	}

	return s.orchestrator.ExtractMetadata(ctx, doc, record.Filename), nil
}
