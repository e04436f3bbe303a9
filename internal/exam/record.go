package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Patient identifies the person an exam belongs to
type Patient struct {
	Name       string `json:"nome"`
	NationalID string `json:"cpf"`
	Age        *int   `json:"idade"`
	Sex        string `json:"sexo"`
}

// Result is one measured test value
type Result struct {
	Value          float64 `json:"valor"`
	Unit           string  `json:"unidade"`
	ReferenceRange string  `json:"referencia"`
}

// NamedResult pairs a test name with its result
type NamedResult struct {
	Test   string
	Result Result
}

// Results maps test names to results and keeps the order in which
// the names were first seen, both when decoding and encoding JSON.
type Results []NamedResult

// Exam describes a single diagnostic exam
type Exam struct {
	Type    string  `json:"tipo"`
	Date    string  `json:"data"`
	Results Results `json:"resultados"`
}

// Record is the canonical exam record every source is normalized into
type Record struct {
	ExamID  string  `json:"id_exame"`
	Patient Patient `json:"paciente"`
	Exam    Exam    `json:"exame"`
}

var recordFields = []string{"id_exame", "paciente", "exame"}

// Fields returns the top-level keys of the record in encoding order
func (r Record) Fields() []string {
	fields := make([]string, len(recordFields))
	copy(fields, recordFields)
	return fields
}

// PatientKey is the folded patient name used for ordering and lookup
func (r Record) PatientKey() string {
	return FoldName(r.Patient.Name)
}

// Clone returns a deep copy of the record. The copy shares no memory with r.
func (r Record) Clone() Record {
	out := r
	if r.Patient.Age != nil {
		age := *r.Patient.Age
		out.Patient.Age = &age
	}
	out.Exam.Results = r.Exam.Results.Clone()
	return out
}

// FoldName lower-cases a name for case-insensitive comparison
func FoldName(name string) string {
	return strings.ToLower(name)
}

// Get returns the result recorded for the given test
func (rs Results) Get(test string) (Result, bool) {
	for _, nr := range rs {
		if nr.Test == test {
			return nr.Result, true
		}
	}
	return Result{}, false
}

// With returns a copy of rs with test set to r. An existing entry keeps its position.
func (rs Results) With(test string, r Result) Results {
	out := make(Results, len(rs), len(rs)+1)
	copy(out, rs)
	for i := range out {
		if out[i].Test == test {
			out[i].Result = r
			return out
		}
	}
	return append(out, NamedResult{Test: test, Result: r})
}

// Clone returns a copy of rs. A nil rs stays nil.
func (rs Results) Clone() Results {
	if rs == nil {
		return nil
	}
	out := make(Results, len(rs))
	copy(out, rs)
	return out
}

// Tests returns the test names in order
func (rs Results) Tests() []string {
	names := make([]string, len(rs))
	for i, nr := range rs {
		names[i] = nr.Test
	}
	return names
}

// MarshalJSON encodes the results as an object keyed by test name.
// nil encodes as null so a decoded null survives a save.
func (rs Results) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nr := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := MarshalLiteral(nr.Test)
		if err != nil {
			return nil, err
		}
		value, err := MarshalLiteral(nr.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result %q: %w", nr.Test, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a results object, preserving key order
func (rs *Results) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*rs = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("results must be a JSON object")
	}

	out := Results{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		test, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected results key %v", tok)
		}
		var r Result
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("failed to decode result %q: %w", test, err)
		}
		out = out.With(test, r)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*rs = out
	return nil
}

// MarshalLiteral encodes v as compact JSON without escaping HTML characters
func MarshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
