package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/labmerge/internal/exam"
)

// Format selects the decoder used for a source file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format selector
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q, use csv or json", exam.ErrInvalidArgument, s)
	}
}

// Dataset is an immutable, ordered collection of exam records.
// Every transformation returns a new Dataset.
type Dataset struct {
	records []exam.Record
	sorted  bool
}

// New creates a dataset holding a copy of records
func New(records []exam.Record) *Dataset {
	return &Dataset{records: clone(records)}
}

// Load reads the file at path and normalizes it according to format.
// A nil normalizer uses the strict age policy.
func Load(path string, format Format, normalizer *exam.Normalizer) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", exam.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Decode(f, format, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return ds, nil
}

// Decode normalizes raw rows read from r
func Decode(r io.Reader, format Format, normalizer *exam.Normalizer) (*Dataset, error) {
	if normalizer == nil {
		normalizer = exam.NewNormalizer(exam.AgeStrict)
	}

	var records []exam.Record
	var err error
	switch format {
	case FormatCSV:
		records, err = normalizer.FromCSV(r)
	case FormatJSON:
		records, err = normalizer.FromJSON(r)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", exam.ErrInvalidArgument, format)
	}
	if err != nil {
		return nil, err
	}

	return &Dataset{records: records}, nil
}

// Merge returns a's records followed by b's. No deduplication is done.
func Merge(a, b *Dataset) *Dataset {
	records := make([]exam.Record, 0, a.Size()+b.Size())
	records = append(records, a.records...)
	records = append(records, b.records...)
	return &Dataset{records: records}
}

// Records returns a copy of the records in order
func (d *Dataset) Records() []exam.Record {
	return clone(d.records)
}

// Head returns a copy of at most n leading records
func (d *Dataset) Head(n int) []exam.Record {
	if n > len(d.records) {
		n = len(d.records)
	}
	if n < 0 {
		n = 0
	}
	return clone(d.records[:n])
}

// Size is the current record count
func (d *Dataset) Size() int {
	return len(d.records)
}

// ColumnNames returns the key set of the last record, or nothing when empty
func (d *Dataset) ColumnNames() []string {
	if len(d.records) == 0 {
		return []string{}
	}
	return d.records[len(d.records)-1].Fields()
}

// Sorted reports whether the dataset came out of Sort
func (d *Dataset) Sorted() bool {
	return d.sorted
}

// Sort returns a new dataset ordered by folded patient name
func (d *Dataset) Sort() *Dataset {
	return &Dataset{records: SortRecords(d.records), sorted: true}
}

// FindSequential returns every exam of the named patient in dataset order
func (d *Dataset) FindSequential(name string) []exam.Record {
	return clone(Sequential(d.records, name))
}

// FindBinary looks the patient up with a binary scan. The dataset must come from Sort.
func (d *Dataset) FindBinary(name string) ([]exam.Record, error) {
	if !d.sorted {
		return nil, fmt.Errorf("%w: binary lookup requires a dataset sorted by patient name", exam.ErrPrecondition)
	}
	return clone(Binary(d.records, name)), nil
}

// GroupByPatient builds the per-patient view of the dataset
func (d *Dataset) GroupByPatient() *Grouped {
	return GroupByPatient(d.records)
}

// Encode writes the records as an indented JSON array
func (d *Dataset) Encode(w io.Writer) error {
	return encodeJSON(w, d.records)
}

// Save writes the records as an indented JSON array, creating parent directories
func (d *Dataset) Save(path string) error {
	return saveJSON(path, d.records)
}

func clone(records []exam.Record) []exam.Record {
	out := make([]exam.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func saveJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to create output directory")
		}
	}

	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", exam.ErrWrite, path, err)
	}
	return nil
}
