package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/homesense/telemetry"
)

type entry[T any] struct {
	serial int64
	record T
}

// table is an insertion ordered collection of records
type table[T any] struct {
	byID  map[uuid.UUID]*entry[T]
	order []*entry[T]
}

func newTable[T any]() *table[T] {
	return &table[T]{byID: map[uuid.UUID]*entry[T]{}}
}

func (t *table[T]) insert(id uuid.UUID, serial int64, record T) {
	e := &entry[T]{serial: serial, record: record}
	t.byID[id] = e
	t.order = append(t.order, e)
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	e, ok := t.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	return e.record, true
}

func (t *table[T]) remove(id uuid.UUID) {
	e, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	for i := range t.order {
		if t.order[i] == e {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *table[T]) list(match func(T) bool) []T {
	res := []T{}
	for _, e := range t.order {
		if match == nil || match(e.record) {
			res = append(res, e.record)
		}
	}
	return res
}

// Memory is an in-process Store. The zero value is not usable, use NewMemory.
type Memory struct {
	mu       sync.RWMutex
	serial   int64
	users    *table[telemetry.User]
	sensors  *table[telemetry.Sensor]
	measures *table[telemetry.Measure]

	now func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:    newTable[telemetry.User](),
		sensors:  newTable[telemetry.Sensor](),
		measures: newTable[telemetry.Measure](),
		now:      now,
	}
}

// now returns the current time with the precision postgres stores
func now() time.Time {
	return telemetry.Timestamp(time.Now())
}

func (m *Memory) nextSerial() int64 {
	m.serial++
	return m.serial
}

func matchUUID(id uuid.UUID, value string) bool {
	other, err := uuid.Parse(value)
	return err == nil && other == id
}

// CreateUser stores user under a new identity
func (m *Memory) CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.UserID = uuid.New()
	m.users.insert(user.UserID, m.nextSerial(), user)
	return user, nil
}

// User returns the user with the given id
func (m *Memory) User(ctx context.Context, id uuid.UUID) (telemetry.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users.get(id)
	if !ok {
		return u, ErrNotFound
	}
	return u, nil
}

// Users returns all users matching filters, in insertion order
func (m *Memory) Users(ctx context.Context, filters ...Filter) ([]telemetry.User, error) {
	if err := checkFilters(userFields, filters); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.list(func(u telemetry.User) bool {
		for _, f := range filters {
			switch f.Field {
			case "location":
				if u.Location != f.Value {
					return false
				}
			case "houseSize":
				if string(u.HouseSize) != f.Value {
					return false
				}
			}
		}
		return true
	}), nil
}

// UpdateUser merges patch into the user with the given id
func (m *Memory) UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.users.byID[id]
	if !ok {
		return telemetry.User{}, ErrNotFound
	}
	patch.Apply(&e.record)
	return e.record, nil
}

// DeleteUser removes the user with the given id. Sensors referring to it are kept.
func (m *Memory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users.remove(id)
	return nil
}

// CreateSensor stores sensor under a new identity. A zero creation date is set to now.
func (m *Memory) CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sensor.SensorID = uuid.New()
	if sensor.CreationDate.IsZero() {
		sensor.CreationDate = m.now()
	}
	sensor.CreationDate = telemetry.Timestamp(sensor.CreationDate)
	m.sensors.insert(sensor.SensorID, m.nextSerial(), sensor)
	return sensor, nil
}

// Sensor returns the sensor with the given id
func (m *Memory) Sensor(ctx context.Context, id uuid.UUID) (telemetry.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sensors.get(id)
	if !ok {
		return s, ErrNotFound
	}
	return s, nil
}

// Sensors returns all sensors matching filters, in insertion order
func (m *Memory) Sensors(ctx context.Context, filters ...Filter) ([]telemetry.Sensor, error) {
	if err := checkFilters(sensorFields, filters); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sensors.list(func(s telemetry.Sensor) bool {
		for _, f := range filters {
			switch f.Field {
			case "location":
				if string(s.Location) != f.Value {
					return false
				}
			case "userID":
				if !matchUUID(s.UserID, f.Value) {
					return false
				}
			}
		}
		return true
	}), nil
}

// UpdateSensor merges patch into the sensor with the given id
func (m *Memory) UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sensors.byID[id]
	if !ok {
		return telemetry.Sensor{}, ErrNotFound
	}
	patch.Apply(&e.record)
	return e.record, nil
}

// DeleteSensor removes the sensor with the given id. Measures referring to it are kept.
func (m *Memory) DeleteSensor(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensors.remove(id)
	return nil
}

// populateSensor expects m.mu to be held
func (m *Memory) populateSensor(s telemetry.Sensor) telemetry.PopulatedSensor {
	var user *telemetry.User
	if u, ok := m.users.get(s.UserID); ok {
		user = &u
	}
	return s.Populate(user)
}

// populateMeasure expects m.mu to be held
func (m *Memory) populateMeasure(measure telemetry.Measure) telemetry.PopulatedMeasure {
	var sensor *telemetry.PopulatedSensor
	if s, ok := m.sensors.get(measure.SensorID); ok {
		ps := m.populateSensor(s)
		sensor = &ps
	}
	return measure.Populate(sensor)
}

// PopulatedSensor returns the sensor with the given id and its user
func (m *Memory) PopulatedSensor(ctx context.Context, id uuid.UUID) (telemetry.PopulatedSensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sensors.get(id)
	if !ok {
		return telemetry.PopulatedSensor{}, ErrNotFound
	}
	return m.populateSensor(s), nil
}

// PopulatedSensors returns all sensors with their users, in insertion order
func (m *Memory) PopulatedSensors(ctx context.Context) ([]telemetry.PopulatedSensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []telemetry.PopulatedSensor{}
	for _, e := range m.sensors.order {
		res = append(res, m.populateSensor(e.record))
	}
	return res, nil
}

// CreateMeasure stores measure under a new identity. A zero creation date is set to now.
func (m *Memory) CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	measure.MeasureID = uuid.New()
	if measure.CreationDate.IsZero() {
		measure.CreationDate = m.now()
	}
	measure.CreationDate = telemetry.Timestamp(measure.CreationDate)
	m.measures.insert(measure.MeasureID, m.nextSerial(), measure)
	return measure, nil
}

// Measure returns the measure with the given id
func (m *Memory) Measure(ctx context.Context, id uuid.UUID) (telemetry.Measure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	measure, ok := m.measures.get(id)
	if !ok {
		return measure, ErrNotFound
	}
	return measure, nil
}

// Measures returns all measures matching filters, in insertion order
func (m *Memory) Measures(ctx context.Context, filters ...Filter) ([]telemetry.Measure, error) {
	if err := checkFilters(measureFields, filters); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.measures.list(func(measure telemetry.Measure) bool {
		for _, f := range filters {
			switch f.Field {
			case "type":
				if string(measure.Type) != f.Value {
					return false
				}
			case "sensorID":
				if !matchUUID(measure.SensorID, f.Value) {
					return false
				}
			}
		}
		return true
	}), nil
}

// UpdateMeasure merges patch into the measure with the given id
func (m *Memory) UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.measures.byID[id]
	if !ok {
		return telemetry.Measure{}, ErrNotFound
	}
	patch.Apply(&e.record)
	return e.record, nil
}

// DeleteMeasure removes the measure with the given id
func (m *Memory) DeleteMeasure(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.measures.remove(id)
	return nil
}

// PopulatedMeasure returns the measure with the given id, its sensor and the sensor's user
func (m *Memory) PopulatedMeasure(ctx context.Context, id uuid.UUID) (telemetry.PopulatedMeasure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	measure, ok := m.measures.get(id)
	if !ok {
		return telemetry.PopulatedMeasure{}, ErrNotFound
	}
	return m.populateMeasure(measure), nil
}

// PopulatedMeasures returns all measures populated two levels deep, in insertion order
func (m *Memory) PopulatedMeasures(ctx context.Context) ([]telemetry.PopulatedMeasure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []telemetry.PopulatedMeasure{}
	for _, e := range m.measures.order {
		res = append(res, m.populateMeasure(e.record))
	}
	return res, nil
}

// RecentMeasures implements Store.RecentMeasures
func (m *Memory) RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]*entry[telemetry.Measure], len(m.measures.order))
	copy(entries, m.measures.order)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.record.CreationDate.Equal(b.record.CreationDate) {
			return a.record.CreationDate.After(b.record.CreationDate)
		}
		return a.serial > b.serial
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	res := make([]telemetry.PopulatedMeasure, 0, len(entries))
	for _, e := range entries {
		res = append(res, m.populateMeasure(e.record))
	}
	return res, nil
}

// StatsByType implements Store.StatsByType
func (m *Memory) StatsByType(ctx context.Context) ([]telemetry.TypeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type acc struct {
		stats telemetry.TypeStats
		sum   float64
	}
	groups := map[telemetry.MeasureType]*acc{}
	var order []telemetry.MeasureType
	for _, e := range m.measures.order {
		measure := e.record
		a, ok := groups[measure.Type]
		if !ok {
			a = &acc{stats: telemetry.TypeStats{Type: measure.Type, MinValue: measure.Value, MaxValue: measure.Value}}
			groups[measure.Type] = a
			order = append(order, measure.Type)
		}
		a.stats.Count++
		a.sum += measure.Value
		if measure.Value < a.stats.MinValue {
			a.stats.MinValue = measure.Value
		}
		if measure.Value > a.stats.MaxValue {
			a.stats.MaxValue = measure.Value
		}
	}
	res := make([]telemetry.TypeStats, 0, len(order))
	for _, t := range order {
		a := groups[t]
		a.stats.AvgValue = a.sum / float64(a.stats.Count)
		res = append(res, a.stats)
	}
	return res, nil
}

// Counts implements Store.Counts
func (m *Memory) Counts(ctx context.Context) (telemetry.Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return telemetry.Counts{
		Users:    int64(len(m.users.order)),
		Sensors:  int64(len(m.sensors.order)),
		Measures: int64(len(m.measures.order)),
	}, nil
}

// SensorsByLocation implements Store.SensorsByLocation
func (m *Memory) SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[telemetry.Location]int64{}
	for _, e := range m.sensors.order {
		counts[e.record.Location]++
	}
	res := []telemetry.LocationCount{}
	for _, l := range telemetry.Locations {
		if counts[l] > 0 {
			res = append(res, telemetry.LocationCount{Location: l, Count: counts[l]})
		}
	}
	return res, nil
}
