package cache

import (
	"encoding/csv"
	"fmt"
	"os"

	"steamrevs/pkg/models"
)

// RowSink is the durable destination for flushed rows. The production
// sink is a CSV file; tests substitute failing implementations to
// exercise partial-flush recovery.
type RowSink interface {
	// WriteRow durably appends one row. An error means the row was not
	// written and may be retried.
	WriteRow(row []string) error
	Close() error
}

// CSVSink writes rows to an append-only CSV file. The file is exclusively
// owned by this process for its lifetime; no other writer may touch it.
type CSVSink struct {
	file *os.File
	w    *csv.Writer
}

// NewCSVSink creates the output file for a new scrape and writes the
// header row. Fails if the path already exists, so a finished scrape
// cannot be clobbered by forgetting --resume.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	sink := &CSVSink{file: file, w: csv.NewWriter(file)}
	if err := sink.WriteRow(models.CSVHeader()); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return sink, nil
}

// OpenCSVSink reopens an existing scrape file in append-only mode for a
// resumed scrape. Fails if the path does not exist.
func OpenCSVSink(path string) (*CSVSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file for append: %w", err)
	}

	return &CSVSink{file: file, w: csv.NewWriter(file)}, nil
}

// WriteRow appends one row and pushes it through to the file, so a
// failure is attributable to this row rather than surfacing on a later
// flush.
func (s *CSVSink) WriteRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes buffered rows and closes the file
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
