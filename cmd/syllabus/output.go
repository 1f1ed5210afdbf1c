package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatCSV  = "csv"
)

var metadataColumns = []string{
	"filename", "year", "semester", "class_name", "class_number",
	"instructor", "university", "main_topic", "reading_materials_json",
}

var reportColumns = []string{
	"filename", "found", "total_materials", "evaluated_materials",
	"found_materials", "error", "library_matches_json",
}

func writeMetadata(w io.Writer, format string, records []syllabus.Metadata) error {
	if format != formatCSV {
		return writeStructured(w, format, records)
	}

	rows := make([][]string, 0, len(records))
	for _, md := range records {
		materials, err := json.Marshal(md.ReadingMaterials)
		if err != nil {
			return eris.Wrapf(err, "encode reading materials of %s", md.Filename)
		}
		rows = append(rows, []string{
			md.Filename, md.Year, md.Semester, md.ClassName, md.ClassNumber,
			md.Instructor, md.University, md.MainTopic, string(materials),
		})
	}
	return writeCSV(w, metadataColumns, rows)
}

func writeReports(w io.Writer, format string, reports []library.AvailabilityReport) error {
	if format != formatCSV {
		return writeStructured(w, format, reports)
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		matches, err := json.Marshal(r.LibraryMatches)
		if err != nil {
			return eris.Wrapf(err, "encode matches of %s", r.Metadata.Filename)
		}
		rows = append(rows, []string{
			r.Metadata.Filename,
			strconv.FormatBool(r.Found),
			strconv.Itoa(r.TotalMaterials),
			strconv.Itoa(r.EvaluatedMaterials),
			strconv.Itoa(r.FoundMaterials),
			r.Error,
			string(matches),
		})
	}
	return writeCSV(w, reportColumns, rows)
}

// writeStructured emits JSON, or YAML with the same keys. The YAML goes
// through JSON first so that the json tags and custom marshalers decide the
// shape in both formats.
func writeStructured(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode json")
	}

	if format == formatJSON {
		if _, err := w.Write(append(data, '\n')); err != nil {
			return eris.Wrap(err, "write output")
		}
		return nil
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return eris.Wrap(err, "decode json")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "flush yaml")
	}
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "write csv rows")
	}
	return nil
}
