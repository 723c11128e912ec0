package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func gradeDataset() Dataset {
	return Dataset{
		Headers: []string{"student_number", "letter_grade"},
		Rows: []map[string]string{
			{"student_number": "2024001", "letter_grade": "AA"},
			{"student_number": "2024002", "letter_grade": "CC"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(gradeDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{"student_number,letter_grade", "2024001,AA", "2024002,CC"}, lines)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoHeaders)

	semicolon := &CSVExporter{Comma: ';'}
	out, err = semicolon.Render(Dataset{Headers: []string{"a", "b"}, Rows: []map[string]string{{"a": "1"}}})
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;\n", string(out))
}

func TestPDFExporterPaginatesLongSheets(t *testing.T) {
	data := Dataset{Headers: []string{"n"}}
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, map[string]string{"n": "row"})
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(out, []byte("/Type /Page\n")), 2)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(gradeDataset(), "CS101-A grades")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(gradeDataset(), "CS101-A")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("CS101-A", "A1")
	require.NoError(t, err)
	assert.Equal(t, "student_number", header)
	letter, err := f.GetCellValue("CS101-A", "B3")
	require.NoError(t, err)
	assert.Equal(t, "CC", letter)
}
