package dataset

import (
	"bytes"
	"fmt"

	"stealthcompany.com/labmerge/internal/exam"
)

// PatientExam is one exam inside a patient bundle
type PatientExam struct {
	ExamID  string       `json:"id_exame"`
	Type    string       `json:"tipo"`
	Date    string       `json:"data"`
	Results exam.Results `json:"resultados"`
}

// PatientBundle holds a patient and all of their exams
type PatientBundle struct {
	Patient exam.Patient  `json:"paciente"`
	Exams   []PatientExam `json:"exames"`
}

// Grouped maps national IDs to patient bundles. Keys keep first-seen order.
type Grouped struct {
	keys    []string
	bundles map[string]*PatientBundle
}

// GroupByPatient groups records by national ID in a single pass.
// The patient block of the first record seen for an ID is kept.
func GroupByPatient(records []exam.Record) *Grouped {
	g := &Grouped{bundles: make(map[string]*PatientBundle)}

	for _, r := range records {
		id := r.Patient.NationalID
		bundle, ok := g.bundles[id]
		if !ok {
			bundle = &PatientBundle{Patient: r.Patient, Exams: []PatientExam{}}
			g.bundles[id] = bundle
			g.keys = append(g.keys, id)
		}
		bundle.Exams = append(bundle.Exams, PatientExam{
			ExamID:  r.ExamID,
			Type:    r.Exam.Type,
			Date:    r.Exam.Date,
			Results: r.Exam.Results,
		})
	}

	return g
}

// Len is the number of distinct patients
func (g *Grouped) Len() int {
	return len(g.keys)
}

// Keys returns national IDs in first-seen order
func (g *Grouped) Keys() []string {
	keys := make([]string, len(g.keys))
	copy(keys, g.keys)
	return keys
}

// Get returns a copy of the bundle for a national ID
func (g *Grouped) Get(nationalID string) (PatientBundle, bool) {
	bundle, ok := g.bundles[nationalID]
	if !ok {
		return PatientBundle{}, false
	}
	exams := make([]PatientExam, len(bundle.Exams))
	for i, e := range bundle.Exams {
		e.Results = e.Results.Clone()
		exams[i] = e
	}
	patient := exam.Record{Patient: bundle.Patient}.Clone().Patient
	return PatientBundle{Patient: patient, Exams: exams}, true
}

// MarshalJSON encodes the view as an object keyed by national ID
func (g *Grouped) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := exam.MarshalLiteral(key)
		if err != nil {
			return nil, err
		}
		v, err := exam.MarshalLiteral(g.bundles[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode patient %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Save writes the grouped view as indented JSON, creating parent directories
func (g *Grouped) Save(path string) error {
	return saveJSON(path, g)
}
