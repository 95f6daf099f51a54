package backend

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/core/store"
	"github.com/relabs-tech/homesense/telemetry"
)

func (b *Backend) handleSensors(router *mux.Router) {
	// before /api/sensors/{id}
	handleFilteredList(router, "/api/sensors/user/{userId}", "userId", "userID", true, b.store.Sensors)

	createResource(b, router, resourceConfiguration[telemetry.Sensor, telemetry.SensorPatch, telemetry.PopulatedSensor]{
		resource:       "sensor",
		title:          "Sensor",
		createSchemaID: telemetry.SensorSchemaID,
		patchSchemaID:  telemetry.SensorPatchSchemaID,
		create:         b.store.CreateSensor,
		update:         b.store.UpdateSensor,
		delete:         b.store.DeleteSensor,
		read:           b.store.PopulatedSensor,
		list:           b.store.PopulatedSensors,
		checkCreate: func(ctx context.Context, sensor telemetry.Sensor) (string, error) {
			return b.userExists(ctx, sensor.UserID)
		},
		checkUpdate: func(ctx context.Context, patch telemetry.SensorPatch) (string, error) {
			if patch.UserID == nil {
				return "", nil
			}
			return b.userExists(ctx, *patch.UserID)
		},
	})
}

// sensorExists returns a client message if the sensor with id does not exist
func (b *Backend) sensorExists(ctx context.Context, id uuid.UUID) (string, error) {
	_, err := b.store.Sensor(ctx, id)
	return missingReference("sensor", id, err)
}

func missingReference(resource string, id uuid.UUID, err error) (string, error) {
	if errors.Is(err, store.ErrNotFound) {
		return resource + " " + id.String() + " does not exist", nil
	}
	return "", err
}
