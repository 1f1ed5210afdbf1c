package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
)

var (
	extractFlags batchFlags
	analyzeFlags batchFlags
)

var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Extract metadata from every PDF in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := extractFlags.pipeline(ctx, args, nil)
		if err != nil {
			return err
		}
		records, err := p.Extract(ctx, extractFlags.start, extractFlags.end)
		if err != nil {
			return err
		}
		return writeOutput(func(w io.Writer) error { return writeMetadata(w, outputFormat, records) })
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <metadata.json>",
	Short: "Check the reading lists of extracted metadata against the library",
	Long: `Reads metadata records as written by "extract --format json" (a JSON array,
or a single record) and reports library availability for each.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readMetadata(args[0])
		if err != nil {
			return err
		}
		for i := range records {
			records[i] = records[i].Normalize()
		}

		reports := newMatcher().MatchBatch(cmd.Context(), records)
		return writeOutput(func(w io.Writer) error { return writeReports(w, outputFormat, reports) })
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Extract metadata and check availability in one pass",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := analyzeFlags.pipeline(ctx, args, newMatcher())
		if err != nil {
			return err
		}
		reports, err := p.Analyze(ctx, analyzeFlags.start, analyzeFlags.end)
		if err != nil {
			return err
		}
		return writeOutput(func(w io.Writer) error { return writeReports(w, outputFormat, reports) })
	},
}

func init() {
	extractFlags.register(extractCmd)
	analyzeFlags.register(analyzeCmd)
}

func readMetadata(path string) ([]syllabus.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var md syllabus.Metadata
		if err := json.Unmarshal(data, &md); err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
		return []syllabus.Metadata{md}, nil
	}

	var records []syllabus.Metadata
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return records, nil
}

// writeOutput runs write against --out, or stdout when it is unset.
func writeOutput(write func(w io.Writer) error) error {
	if outputPath == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "create %s", outputPath)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", outputPath)
	}
	logger.Info("results written", "path", outputPath)
	return nil
}
