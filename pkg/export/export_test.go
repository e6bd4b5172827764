package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTable() Table {
	return Table{
		Title: "Portfolio register",
		Columns: []Column{
			{Key: "course", Header: "Course", Width: 3},
			{Key: "status", Header: "Status"},
		},
		Rows: []map[string]string{
			{"course": "CS101 Algorithms, I", "status": "DRAFT"},
			{"course": "MA201", "status": "APPROVED", "ignored": "x"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, registerTable()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Course,Status", lines[0])
	assert.Equal(t, `"CS101 Algorithms, I",DRAFT`, lines[1])
	assert.Equal(t, "MA201,APPROVED", lines[2])
}

func TestWritePDF(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WritePDF(buf, registerTable(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteRequiresColumns(t *testing.T) {
	assert.ErrorIs(t, WriteCSV(&bytes.Buffer{}, Table{}), ErrNoColumns)
	assert.ErrorIs(t, WritePDF(&bytes.Buffer{}, Table{}, time.Now()), ErrNoColumns)
}
