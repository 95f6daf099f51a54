package backend

import (
	"context"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/telemetry"
)

func (b *Backend) handleMeasures(router *mux.Router) {
	// before /api/measures/{id}
	handleFilteredList(router, "/api/measures/sensor/{sensorId}", "sensorId", "sensorID", true, b.store.Measures)
	// an unknown type is not an error, it just matches nothing
	handleFilteredList(router, "/api/measures/type/{type}", "type", "type", false, b.store.Measures)

	createResource(b, router, resourceConfiguration[telemetry.Measure, telemetry.MeasurePatch, telemetry.PopulatedMeasure]{
		resource:       "measure",
		title:          "Measure",
		createSchemaID: telemetry.MeasureSchemaID,
		patchSchemaID:  telemetry.MeasurePatchSchemaID,
		create:         b.store.CreateMeasure,
		update:         b.store.UpdateMeasure,
		delete:         b.store.DeleteMeasure,
		read:           b.store.PopulatedMeasure,
		list:           b.store.PopulatedMeasures,
		checkCreate: func(ctx context.Context, measure telemetry.Measure) (string, error) {
			return b.sensorExists(ctx, measure.SensorID)
		},
		checkUpdate: func(ctx context.Context, patch telemetry.MeasurePatch) (string, error) {
			if patch.SensorID == nil {
				return "", nil
			}
			return b.sensorExists(ctx, *patch.SensorID)
		},
	})
}
