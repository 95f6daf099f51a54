package backend

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/telemetry"
)

// ExportContentType is the content type of the measure export
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportHeader is the first row of every sheet of the export
var exportHeader = []string{"ID", "Date", "Value", "Unit", "Sensor", "Location", "User location"}

var exportColumnWidths = []float64{38, 22, 10, 6, 38, 14, 20}

func (b *Backend) handleExport(router *mux.Router) {
	logger.Default().Debugln("export")
	logger.Default().Debugln("  handle export route: /api/measures/export GET")

	// no compression, xlsx is a zip archive already
	router.HandleFunc("/api/measures/export", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)

		measures, err := b.store.PopulatedMeasures(r.Context())
		if err != nil {
			rlog.WithError(err).Errorln("Error 4730: list measures")
			writeMessage(w, http.StatusInternalServerError, "Error 4730")
			return
		}
		data, err := measuresWorkbook(measures)
		if err != nil {
			rlog.WithError(err).Errorln("Error 4731: build workbook")
			writeMessage(w, http.StatusInternalServerError, "Error 4731")
			return
		}
		filename := fmt.Sprintf("measures-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		w.Header().Set("Content-Type", ExportContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		w.Write(data)
	}).Methods(http.MethodOptions, http.MethodGet)
}

// measuresWorkbook renders measures as xlsx with one sheet per measure type.
// Every type gets a sheet, types without measures only have the header row.
func measuresWorkbook(measures []telemetry.PopulatedMeasure) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := map[telemetry.MeasureType]int{}
	for _, t := range telemetry.MeasureTypes {
		sheet := string(t)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		for col, header := range exportHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(sheet, cell, header); err != nil {
				return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
				return nil, fmt.Errorf("failed to set header style: %w", err)
			}
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetColWidth(sheet, name, name, exportColumnWidths[col]); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
		rows[t] = 1
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(string(telemetry.MeasureTypes[0])); err == nil {
		f.SetActiveSheet(index)
	}

	for _, m := range measures {
		row, ok := rows[m.Type]
		if !ok {
			continue
		}
		row++
		rows[m.Type] = row

		var sensor, location, userLocation string
		if m.Sensor != nil {
			sensor = m.Sensor.SensorID.String()
			location = string(m.Sensor.Location)
			if m.Sensor.User != nil {
				userLocation = m.Sensor.User.Location
			}
		}
		values := []interface{}{
			m.MeasureID.String(),
			m.CreationDate.UTC().Format(time.RFC3339),
			m.Value,
			m.Type.Unit(),
			sensor,
			location,
			userLocation,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(string(m.Type), cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
