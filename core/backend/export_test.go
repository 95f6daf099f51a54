package backend

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/relabs-tech/homesense/telemetry"
)

// TestExport verifies that the export contains one sheet per measure type
func TestExport(t *testing.T) {
	s := CreateTestService(t)
	ctx := context.Background()
	_, sensor := seed(t, s)
	for _, m := range []telemetry.Measure{
		{Type: telemetry.MeasureTypeTemperature, Value: 21.5},
		{Type: telemetry.MeasureTypeTemperature, Value: 19},
		{Type: telemetry.MeasureTypeAirPollution, Value: 30},
	} {
		m.SensorID = sensor.SensorID
		_, err := s.client.CreateMeasure(ctx, m)
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/measures/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ExportContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename=measures-"))

	data, err := s.client.Export(ctx)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"temperature", "humidity", "airPollution"}, f.GetSheetList())

	rows, err := f.GetRows("temperature")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "21.5", rows[1][2])
	assert.Equal(t, "°C", rows[1][3])
	assert.Equal(t, sensor.SensorID.String(), rows[1][4])
	assert.Equal(t, "bedroom", rows[1][5])
	assert.Equal(t, "Paris", rows[1][6])

	rows, err = f.GetRows("humidity")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = f.GetRows("airPollution")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "30", rows[1][2])
}
