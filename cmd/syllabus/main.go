package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/config"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/llm"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/services"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/source"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/storage"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	outputFormat string
	outputPath   string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "syllabus",
	Short: "Extract syllabus metadata and check reading lists against the library",
	Long: `Batch tools over a directory of syllabus PDFs (or a bucket prefix).

  syllabus extract ./pdfs --start 0 --end 50 --format csv --out metadata.csv
  syllabus match metadata.json --format yaml
  syllabus analyze ./pdfs --out reports.json

Configuration comes from config.yaml and the environment, as for the API server.
Logs go to stderr; results go to stdout unless --out is given.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logger = utils.NewLoggerTo(os.Stderr, level)

		switch outputFormat {
		case formatJSON, formatYAML, formatCSV:
		default:
			return eris.Errorf("unknown output format %q", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", formatJSON, "output format: json, yaml or csv")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "out", "o", "", "write results to this file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(extractCmd, matchCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newOrchestrator() *syllabus.Orchestrator {
	var strategies []syllabus.Extractor
	if client := llm.FromConfig(cfg, logger); client != nil {
		strategies = append(strategies, syllabus.NewAIExtractor(client, cfg.LLMTimeout))
	} else {
		logger.Warn("no LLM credential configured, using heuristic extraction only", "provider", cfg.LLMProvider)
	}
	return syllabus.NewOrchestrator(logger, strategies...)
}

func newMatcher() *library.Matcher {
	catalog := library.FromConfig(cfg, logger)
	if catalog == nil {
		logger.Warn("no Primo API key configured, reading materials will not be found")
	}
	return library.NewMatcher(catalog, cfg.MatchConcurrency, logger)
}

// batchFlags are shared by the commands that walk a set of PDFs.
type batchFlags struct {
	start    int
	end      int
	s3Prefix string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.start, "start", 0, "index of the first file to process")
	cmd.Flags().IntVar(&f.end, "end", 0, "index one past the last file to process (0 means all)")
	cmd.Flags().StringVar(&f.s3Prefix, "s3-prefix", "", "read PDFs from this bucket prefix instead of a directory")
}

func (f *batchFlags) source(ctx context.Context, args []string) (source.Source, error) {
	if f.s3Prefix != "" {
		store, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return source.NewBucketSource(store, f.s3Prefix), nil
	}
	if len(args) != 1 {
		return nil, eris.New("a PDF directory or --s3-prefix is required")
	}
	return source.NewDirSource(args[0]), nil
}

func (f *batchFlags) pipeline(ctx context.Context, args []string, matcher *library.Matcher) (*services.Pipeline, error) {
	src, err := f.source(ctx, args)
	if err != nil {
		return nil, err
	}
	return services.NewPipeline(src, newOrchestrator(), matcher, cfg.BatchConcurrency, cfg.BatchTimeout, logger), nil
}
