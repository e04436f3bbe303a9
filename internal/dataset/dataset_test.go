package dataset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/labmerge/internal/exam"
)

const labAJSON = `{
  "exames": [
    {
      "id_exame": "A001",
      "paciente": {"nome": "João Silva", "cpf": "111", "idade": 45, "sexo": "M"},
      "exame": {"tipo": "Hemograma", "data": "2024-03-10",
        "resultados": {"Hemoglobina": {"valor": 13.5, "unidade": "g/dL", "referencia": "13-17"}}}
    },
    {
      "id_exame": "A002",
      "paciente": {"nome": "Ana Souza", "cpf": "222", "idade": 30, "sexo": "F"},
      "exame": {"tipo": "Glicemia", "data": "2024-03-11",
        "resultados": {"Glicose": {"valor": 92, "unidade": "mg/dL", "referencia": "<99"}}}
    }
  ]
}`

const labBCSV = "id_exame,nome,cpf,idade,sexo,tipo_exame,data,teste,valor,unidade,referencia\n" +
	"B001,ana souza,222,30,F,Lipidograma,2024-04-01,LDL,120.5,mg/dL,<130\n" +
	"B002,Carlos Lima,333,60,M,TSH,2024-04-02,TSH,2.1,mUI/L,0.4-4.0\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadFixtures(t *testing.T) (*Dataset, *Dataset) {
	t.Helper()
	dir := t.TempDir()

	a, err := Load(writeFile(t, dir, "a.json", labAJSON), FormatJSON, nil)
	require.NoError(t, err)
	b, err := Load(writeFile(t, dir, "b.csv", labBCSV), FormatCSV, nil)
	require.NoError(t, err)
	return a, b
}

func TestLoad(t *testing.T) {
	a, b := loadFixtures(t)

	assert.Equal(t, 2, a.Size())
	assert.Equal(t, 2, b.Size())
	assert.Equal(t, []string{"id_exame", "paciente", "exame"}, a.ColumnNames())
	assert.False(t, a.Sorted())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "b.csv", labBCSV)
	badJSON := writeFile(t, dir, "bad.json", `{"exames": [}`)

	tests := []struct {
		name    string
		path    string
		format  Format
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.json"), format: FormatJSON, wantErr: exam.ErrFileNotFound},
		{name: "unsupported format", path: csvPath, format: Format("xml"), wantErr: exam.ErrInvalidArgument},
		{name: "malformed json", path: badJSON, format: FormatJSON, wantErr: exam.ErrDecode},
		{name: "csv read as json", path: csvPath, format: FormatJSON, wantErr: exam.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, tt.format, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("parquet")
	assert.ErrorIs(t, err, exam.ErrInvalidArgument)
}

func TestEmptyDataset(t *testing.T) {
	ds := New(nil)
	assert.Equal(t, 0, ds.Size())
	assert.Empty(t, ds.ColumnNames())
	assert.Empty(t, ds.Head(5))
}

func TestMerge(t *testing.T) {
	a, b := loadFixtures(t)
	aBefore, bBefore := a.Records(), b.Records()

	merged := Merge(a, b)

	assert.Equal(t, a.Size()+b.Size(), merged.Size())
	want := append(a.Records(), b.Records()...)
	if diff := cmp.Diff(want, merged.Records()); diff != "" {
		t.Errorf("merged records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, aBefore, a.Records())
	assert.Equal(t, bBefore, b.Records())
}

func TestMergeKeepsDuplicates(t *testing.T) {
	a, _ := loadFixtures(t)
	merged := Merge(a, a)

	assert.Equal(t, 4, merged.Size())
	assert.Len(t, merged.FindSequential("joão silva"), 2)
}

func TestRecordsReturnsCopy(t *testing.T) {
	a, _ := loadFixtures(t)
	records := a.Records()
	records[0].ExamID = "changed"
	records[0].Exam.Results[0].Result.Value = -1
	*records[0].Patient.Age = 99

	fresh := a.Records()
	assert.Equal(t, "A001", fresh[0].ExamID)
	assert.Equal(t, 13.5, fresh[0].Exam.Results[0].Result.Value)
	assert.Equal(t, 45, *fresh[0].Patient.Age)
}

func TestAccessorsDoNotShareRecordState(t *testing.T) {
	a, _ := loadFixtures(t)
	sorted := a.Sort()

	head := sorted.Head(1)
	head[0].Exam.Results[0].Result.Unit = "changed"

	hits := sorted.FindSequential("Ana Souza")
	require.Len(t, hits, 1)
	hits[0].Exam.Results[0].Result.Value = -1

	binary, err := sorted.FindBinary("Ana Souza")
	require.NoError(t, err)
	*binary[0].Patient.Age = 1

	again := sorted.FindSequential("Ana Souza")
	assert.Equal(t, "mg/dL", again[0].Exam.Results[0].Result.Unit)
	assert.Equal(t, 92.0, again[0].Exam.Results[0].Result.Value)
	assert.Equal(t, 30, *again[0].Patient.Age)

	bundle, ok := sorted.GroupByPatient().Get("222")
	require.True(t, ok)
	assert.Equal(t, 92.0, bundle.Exams[0].Results[0].Result.Value)
}

func TestSortReturnsNewDataset(t *testing.T) {
	a, b := loadFixtures(t)
	merged := Merge(a, b)
	before := merged.Records()

	sorted := merged.Sort()

	assert.True(t, sorted.Sorted())
	assert.False(t, merged.Sorted())
	assert.Equal(t, before, merged.Records())
	assert.True(t, IsSortedByPatient(sorted.Records()))
}

func TestFindBinaryRequiresSort(t *testing.T) {
	a, b := loadFixtures(t)
	merged := Merge(a, b)

	_, err := merged.FindBinary("Ana Souza")
	assert.ErrorIs(t, err, exam.ErrPrecondition)

	matches, err := merged.Sort().FindBinary("Ana Souza")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestSaveRoundTrip(t *testing.T) {
	a, b := loadFixtures(t)
	merged := Merge(a, b).Sort()

	path := filepath.Join(t.TempDir(), "processed", "nested", "dados.json")
	require.NoError(t, merged.Save(path))

	loaded, err := Load(path, FormatJSON, nil)
	require.NoError(t, err)

	assert.Equal(t, merged.Size(), loaded.Size())
	if diff := cmp.Diff(merged.Records(), loaded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveWritesReadableUnicode(t *testing.T) {
	a, _ := loadFixtures(t)
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, a.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "João Silva")
	assert.Contains(t, string(data), `"referencia": "<99"`)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"id_exame\""))
}

func TestSaveWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := writeFile(t, dir, "blocker", "x")

	a, _ := loadFixtures(t)
	err := a.Save(filepath.Join(blocker, "out.json"))
	assert.ErrorIs(t, err, exam.ErrWrite)
}

func TestGroupByPatient(t *testing.T) {
	a, b := loadFixtures(t)
	grouped := Merge(a, b).GroupByPatient()

	assert.Equal(t, 3, grouped.Len())
	assert.Equal(t, []string{"111", "222", "333"}, grouped.Keys())

	ana, ok := grouped.Get("222")
	require.True(t, ok)
	assert.Equal(t, "Ana Souza", ana.Patient.Name)
	require.Len(t, ana.Exams, 2)
	assert.Equal(t, "A002", ana.Exams[0].ExamID)
	assert.Equal(t, "B001", ana.Exams[1].ExamID)

	_, ok = grouped.Get("999")
	assert.False(t, ok)
}

func TestGroupedSaveKeepsOrder(t *testing.T) {
	a, b := loadFixtures(t)
	grouped := Merge(b, a).GroupByPatient()

	path := filepath.Join(t.TempDir(), "grouped.json")
	require.NoError(t, grouped.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(data))
	var keys []string
	_, err = dec.Token()
	require.NoError(t, err)
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	assert.Equal(t, []string{"222", "333", "111"}, keys)
}
