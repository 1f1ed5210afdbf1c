package services

import (
	"context"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/extractor"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/source"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// Pipeline runs extraction, and optionally matching, over a window of the
// files a source lists.
type Pipeline struct {
	src          source.Source
	orchestrator *syllabus.Orchestrator
	matcher      *library.Matcher
	concurrency  int
	timeout      time.Duration
	logger       *utils.Logger
}

func NewPipeline(
	src source.Source,
	orchestrator *syllabus.Orchestrator,
	matcher *library.Matcher,
	concurrency int,
	timeout time.Duration,
	logger *utils.Logger,
) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Pipeline{
		src:          src,
		orchestrator: orchestrator,
		matcher:      matcher,
		concurrency:  concurrency,
		timeout:      timeout,
		logger:       logger,
	}
}

// Extract returns one record per file in [start, end), in listing order.
// Only listing the source can fail; an unreadable file still yields a
// record, built from its name alone.
func (p *Pipeline) Extract(ctx context.Context, start, end int) ([]syllabus.Metadata, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.extract(ctx, start, end)
}

// Analyze extracts the window and checks every record against the library.
// The batch timeout covers both stages.
func (p *Pipeline) Analyze(ctx context.Context, start, end int) ([]library.AvailabilityReport, error) {
	if p.matcher == nil {
		return nil, eris.New("pipeline has no matcher")
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	records, err := p.extract(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return p.matcher.MatchBatch(ctx, records), nil
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) extract(ctx context.Context, start, end int) ([]syllabus.Metadata, error) {
	names, err := p.src.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "list syllabus files")
	}
	names = source.Window(names, start, end)
	p.logger.Info("Batch extraction started", "files", len(names), "start", start, "end", end)

	records := make([]syllabus.Metadata, len(names))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, name := range names {
		g.Go(func() error {
			records[i] = p.extractOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("Batch extraction finished", "files", len(records))
	return records, nil
}

func (p *Pipeline) extractOne(ctx context.Context, name string) syllabus.Metadata {
	filename := path.Base(name)

	data, err := p.src.Read(ctx, name)
	if err != nil {
		p.logger.Warn("Failed to read syllabus file", "file", name, "error", err)
		return p.orchestrator.ExtractFromText(ctx, "", filename)
	}

	doc, err := extractor.Read(extractor.ContentTypeFor(filename, ""), data)
	if err != nil {
		p.logger.Warn("Failed to parse syllabus file", "file", name, "error", err)
		return p.orchestrator.ExtractFromText(ctx, "", filename)
	}

	return p.orchestrator.ExtractMetadata(ctx, doc, filename)
}
