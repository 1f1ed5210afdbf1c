package syllabus

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/extractor"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// Extractor is one metadata extraction strategy.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) (Metadata, error)
}

// Orchestrator tries its strategies in order and falls back on the
// heuristic parser, so extraction always yields a complete record.
type Orchestrator struct {
	strategies []Extractor
	logger     *utils.Logger
}

// NewOrchestrator keeps the given priority order. The heuristic baseline is
// always appended and need not be listed.
func NewOrchestrator(logger *utils.Logger, strategies ...Extractor) *Orchestrator {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Orchestrator{strategies: strategies, logger: logger}
}

// ExtractMetadata normalizes the document and extracts from its text.
func (o *Orchestrator) ExtractMetadata(ctx context.Context, doc *extractor.Document, filename string) Metadata {
	return o.ExtractFromText(ctx, extractor.Normalize(doc), filename)
}

// ExtractFromText never fails. Filename tokens fill semester and year only
// when the heuristic produced the record.
func (o *Orchestrator) ExtractFromText(ctx context.Context, text, filename string) Metadata {
	log := o.logger.With("filename", filename)

	for _, s := range o.strategies {
		md, err := o.attempt(ctx, s, text)
		if err != nil {
			log.Warn("metadata extraction strategy failed", "strategy", s.Name(), "error", err)
			continue
		}
		log.Info("metadata extracted", "strategy", s.Name())
		md.Filename = filename
		return md
	}

	md := fillFromFilename(Parse(text), filename)
	md.Filename = filename
	log.Info("metadata extracted", "strategy", HeuristicExtractor{}.Name())
	return md
}

// attempt isolates a strategy so that a panic counts as a failure.
func (o *Orchestrator) attempt(ctx context.Context, s Extractor, text string) (md Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()

	md, err = s.Extract(ctx, text)
	if err != nil {
		return Metadata{}, err
	}
	return md.Normalize(), nil
}
