package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Headers: []string{"Student", "Unit", "Status"},
		Rows: []map[string]string{
			{"Student": "Jordan Lee", "Unit": "SE201", "Status": "ACTIVE"},
			{"Student": "Sam Cho", "Unit": "SE201", "Status": "CANCELLED"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	data, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Student", "Unit", "Status"}, records[0])
	assert.Equal(t, []string{"Jordan Lee", "SE201", "ACTIVE"}, records[1])
}

func TestCSVRenderMissingCellsAreEmpty(t *testing.T) {
	data, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Student", "Unit"},
		Rows:    []map[string]string{{"Student": "Jordan Lee"}},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Jordan Lee", ""}, records[1])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoHeaders)
}

func TestPDFRender(t *testing.T) {
	data, err := NewPDFExporter().Render(rosterDataset(), "Enrollment Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPDFRenderRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.ErrorIs(t, err, ErrNoHeaders)
}
