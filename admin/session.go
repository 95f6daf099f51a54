package admin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/telemetry"
)

// View is one of the administration views
type View string

// all views
const (
	ViewUsers    View = "users"
	ViewSensors  View = "sensors"
	ViewMeasures View = "measures"
)

// Views lists all views in display order
var Views = []View{ViewUsers, ViewSensors, ViewMeasures}

// API is the part of the REST api the administration uses. client.Client implements it.
type API interface {
	Users(ctx context.Context) ([]telemetry.User, error)
	CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	Sensors(ctx context.Context) ([]telemetry.PopulatedSensor, error)
	CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error)
	UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error)
	DeleteSensor(ctx context.Context, id uuid.UUID) error

	Measures(ctx context.Context) ([]telemetry.PopulatedMeasure, error)
	CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error)
	UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error)
	DeleteMeasure(ctx context.Context, id uuid.UUID) error
}

// Session holds the tables of all views and loads the data of the active one
type Session struct {
	api API

	Users    *Table[telemetry.User]
	Sensors  *Table[telemetry.PopulatedSensor]
	Measures *Table[telemetry.PopulatedMeasure]

	mu         sync.Mutex
	active     View
	generation uint64
	cancel     context.CancelFunc
}

// NewSession returns a session with empty tables
func NewSession(api API) *Session {
	return &Session{
		api:      api,
		Users:    NewTable(func(u telemetry.User) uuid.UUID { return u.UserID }),
		Sensors:  NewTable(func(s telemetry.PopulatedSensor) uuid.UUID { return s.SensorID }),
		Measures: NewTable(func(m telemetry.PopulatedMeasure) uuid.UUID { return m.MeasureID }),
	}
}

// Active returns the active view
func (s *Session) Active() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Show makes view the active view and fetches its data into its table. A load
// still in flight for the previous view is cancelled, and its result is never
// written to a table. Show returns context.Canceled if another Show superseded it.
func (s *Session) Show(ctx context.Context, view View) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	generation := s.generation
	s.active = view
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	rlog := logger.FromContext(ctx)
	rlog.Debugln("admin: load view", view)

	var apply func()
	switch view {
	case ViewUsers:
		users, err := s.api.Users(ctx)
		if err != nil {
			return s.loadError(ctx, view, err)
		}
		apply = func() { s.Users.Reconcile(users) }
	case ViewSensors:
		sensors, err := s.api.Sensors(ctx)
		if err != nil {
			return s.loadError(ctx, view, err)
		}
		apply = func() { s.Sensors.Reconcile(sensors) }
	case ViewMeasures:
		measures, err := s.api.Measures(ctx)
		if err != nil {
			return s.loadError(ctx, view, err)
		}
		apply = func() { s.Measures.Reconcile(measures) }
	default:
		return fmt.Errorf("unknown view %q", view)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		rlog.Debugln("admin: discard stale result of view", view)
		return context.Canceled
	}
	apply()
	return nil
}

func (s *Session) loadError(ctx context.Context, view View, err error) error {
	if ctx.Err() != nil {
		return context.Canceled
	}
	return fmt.Errorf("failed to fetch %s: %w", view, err)
}

// CreateUser creates user and adds it to the users table
func (s *Session) CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error) {
	created, err := s.api.CreateUser(ctx, user)
	if err != nil {
		return created, err
	}
	s.Users.Add(created)
	return created, nil
}

// UpdateUser updates the user with id and replaces it in the users table
func (s *Session) UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error) {
	updated, err := s.api.UpdateUser(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.Users.Replace(updated)
	return updated, nil
}

// DeleteUser deletes the user with id after confirmation
func (s *Session) DeleteUser(ctx context.Context, id uuid.UUID, confirm Confirm) (bool, error) {
	return s.Users.Delete(ctx, id, "Are you sure you want to delete this user?", confirm, s.api.DeleteUser)
}

// populateSensor expands sensor with the user from the users table, if it is there
func (s *Session) populateSensor(sensor telemetry.Sensor) telemetry.PopulatedSensor {
	if user, ok := s.Users.Find(sensor.UserID); ok {
		return sensor.Populate(&user)
	}
	return sensor.Populate(nil)
}

// CreateSensor creates sensor and adds it to the sensors table
func (s *Session) CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error) {
	created, err := s.api.CreateSensor(ctx, sensor)
	if err != nil {
		return created, err
	}
	s.Sensors.Add(s.populateSensor(created))
	return created, nil
}

// UpdateSensor updates the sensor with id and replaces it in the sensors table
func (s *Session) UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error) {
	updated, err := s.api.UpdateSensor(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.Sensors.Replace(s.populateSensor(updated))
	return updated, nil
}

// DeleteSensor deletes the sensor with id after confirmation
func (s *Session) DeleteSensor(ctx context.Context, id uuid.UUID, confirm Confirm) (bool, error) {
	return s.Sensors.Delete(ctx, id, "Are you sure you want to delete this sensor?", confirm, s.api.DeleteSensor)
}

func (s *Session) populateMeasure(measure telemetry.Measure) telemetry.PopulatedMeasure {
	if sensor, ok := s.Sensors.Find(measure.SensorID); ok {
		return measure.Populate(&sensor)
	}
	return measure.Populate(nil)
}

// CreateMeasure creates measure and adds it to the measures table
func (s *Session) CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error) {
	created, err := s.api.CreateMeasure(ctx, measure)
	if err != nil {
		return created, err
	}
	s.Measures.Add(s.populateMeasure(created))
	return created, nil
}

// UpdateMeasure updates the measure with id and replaces it in the measures table
func (s *Session) UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error) {
	updated, err := s.api.UpdateMeasure(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.Measures.Replace(s.populateMeasure(updated))
	return updated, nil
}

// DeleteMeasure deletes the measure with id after confirmation
func (s *Session) DeleteMeasure(ctx context.Context, id uuid.UUID, confirm Confirm) (bool, error) {
	return s.Measures.Delete(ctx, id, "Are you sure you want to delete this measure?", confirm, s.api.DeleteMeasure)
}
