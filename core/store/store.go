// Package store persists users, sensors and measures.
//
// There are two implementations of Store: Postgres, backed by a csql.DB, and
// Memory, which keeps everything in process and is used by tests and by the
// service's in-memory mode. Both keep records in insertion order, resolve
// references at read time and never cascade deletes. A reference to a deleted
// record expands to nil.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/relabs-tech/homesense/telemetry"
)

var (
	// ErrNotFound is returned when a record with the requested identity does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnknownField is returned when filtering on a field the entity does not have
	ErrUnknownField = errors.New("unknown field")
)

// Filter is an exact match condition on one field of an entity. Field uses the
// JSON name, e.g. "sensorID" or "type".
type Filter struct {
	Field string
	Value string
}

// filterable fields per entity
var (
	userFields    = []string{"location", "houseSize"}
	sensorFields  = []string{"location", "userID"}
	measureFields = []string{"type", "sensorID"}
)

// DefaultRecentLimit is the number of measures returned by RecentMeasures when
// the caller has no preference
const DefaultRecentLimit = 50

// Store is the entity store and its query and aggregation layer
type Store interface {
	CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error)
	User(ctx context.Context, id uuid.UUID) (telemetry.User, error)
	Users(ctx context.Context, filters ...Filter) ([]telemetry.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error)
	Sensor(ctx context.Context, id uuid.UUID) (telemetry.Sensor, error)
	Sensors(ctx context.Context, filters ...Filter) ([]telemetry.Sensor, error)
	UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error)
	DeleteSensor(ctx context.Context, id uuid.UUID) error
	PopulatedSensor(ctx context.Context, id uuid.UUID) (telemetry.PopulatedSensor, error)
	PopulatedSensors(ctx context.Context) ([]telemetry.PopulatedSensor, error)

	CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error)
	Measure(ctx context.Context, id uuid.UUID) (telemetry.Measure, error)
	Measures(ctx context.Context, filters ...Filter) ([]telemetry.Measure, error)
	UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error)
	DeleteMeasure(ctx context.Context, id uuid.UUID) error
	PopulatedMeasure(ctx context.Context, id uuid.UUID) (telemetry.PopulatedMeasure, error)
	PopulatedMeasures(ctx context.Context) ([]telemetry.PopulatedMeasure, error)

	// RecentMeasures returns at most limit measures, newest creationDate first,
	// each populated with its sensor and the sensor's user. Equal creation dates
	// are ordered by insertion, last inserted first.
	RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error)
	// StatsByType aggregates count, mean, min and max of the value per measure type.
	// Types without measures are omitted. The order is unspecified.
	StatsByType(ctx context.Context) ([]telemetry.TypeStats, error)
	// Counts returns the number of records per entity
	Counts(ctx context.Context) (telemetry.Counts, error)
	// SensorsByLocation returns the number of sensors per location.
	// Locations without sensors are omitted.
	SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error)
}

func checkFilters(allowed []string, filters []Filter) error {
	for _, f := range filters {
		found := false
		for _, a := range allowed {
			if f.Field == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
		}
	}
	return nil
}
