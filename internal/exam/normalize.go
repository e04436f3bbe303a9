package exam

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// AgePolicy controls how an empty idade column is treated
type AgePolicy string

const (
	// AgeStrict rejects empty ages
	AgeStrict AgePolicy = "strict"
	// AgeNullable maps empty ages to null
	AgeNullable AgePolicy = "nullable"
)

// ParseAgePolicy validates a policy name, defaulting to strict
func ParseAgePolicy(s string) (AgePolicy, error) {
	switch AgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AgeStrict:
		return AgeStrict, nil
	case AgeNullable:
		return AgeNullable, nil
	default:
		return "", fmt.Errorf("%w: unknown age policy %q", ErrInvalidArgument, s)
	}
}

// CSVColumns lists the header columns a laboratory CSV must carry
var CSVColumns = []string{
	"id_exame", "nome", "cpf", "idade", "sexo",
	"tipo_exame", "data", "teste", "valor", "unidade", "referencia",
}

// ExamsKey is the top-level key holding the exam array in JSON sources
const ExamsKey = "exames"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalizer turns raw CSV rows and JSON documents into canonical records
type Normalizer struct {
	agePolicy AgePolicy
}

// NewNormalizer creates a normalizer with the given age policy
func NewNormalizer(policy AgePolicy) *Normalizer {
	if policy == "" {
		policy = AgeStrict
	}
	return &Normalizer{agePolicy: policy}
}

// FromRow builds a record from one CSV row keyed by column name.
// A CSV row always encodes exactly one test result.
func (n *Normalizer) FromRow(row map[string]string) (Record, error) {
	for _, col := range CSVColumns {
		if _, ok := row[col]; !ok {
			return Record{}, fmt.Errorf("%w: column %q", ErrSchema, col)
		}
	}

	age, err := n.parseAge(row["idade"])
	if err != nil {
		return Record{}, err
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(row["valor"]), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Record{}, fmt.Errorf("%w: valor %q is not a finite number", ErrTypeConversion, row["valor"])
	}

	return Record{
		ExamID: row["id_exame"],
		Patient: Patient{
			Name:       row["nome"],
			NationalID: row["cpf"],
			Age:        age,
			Sex:        row["sexo"],
		},
		Exam: Exam{
			Type: row["tipo_exame"],
			Date: row["data"],
			Results: Results{{
				Test: row["teste"],
				Result: Result{
					Value:          value,
					Unit:           row["unidade"],
					ReferenceRange: row["referencia"],
				},
			}},
		},
	}, nil
}

func (n *Normalizer) parseAge(raw string) (*int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" && n.agePolicy == AgeNullable {
		return nil, nil
	}
	age, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: idade %q is not an integer", ErrTypeConversion, raw)
	}
	return &age, nil
}

// FromCSV reads a comma-delimited CSV with a header row and normalizes every row
func (n *Normalizer) FromCSV(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = ','

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %w", ErrDecode, err)
	}

	records := []Record{}
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV row %d: %w", ErrDecode, line, err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = fields[i]
		}

		record, err := n.FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// FromJSON decodes a JSON source. The document is either an object with an
// exames array, or a bare array of records as written by Save.
func (n *Normalizer) FromJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read JSON: %w", ErrDecode, err)
	}

	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeRecords(trimmed)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON document: %w", ErrDecode, err)
	}

	raw, ok := doc[ExamsKey]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrSchema, ExamsKey)
	}
	return decodeRecords(raw)
}

func decodeRecords(raw []byte) ([]Record, error) {
	records := []Record{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse exam records: %w", ErrDecode, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
