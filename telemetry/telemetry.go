package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// User is a household owning sensors
type User struct {
	UserID         uuid.UUID `json:"_id"`
	Location       string    `json:"location"`
	PersonsInHouse int       `json:"personsInHouse"`
	HouseSize      HouseSize `json:"houseSize"`
}

// Sensor is a device installed in one room of a user's home
type Sensor struct {
	SensorID     uuid.UUID `json:"_id"`
	CreationDate time.Time `json:"creationDate"`
	Location     Location  `json:"location"`
	UserID       uuid.UUID `json:"userID"`
}

// Measure is a single reading of a sensor
type Measure struct {
	MeasureID    uuid.UUID   `json:"_id"`
	Type         MeasureType `json:"type"`
	CreationDate time.Time   `json:"creationDate"`
	SensorID     uuid.UUID   `json:"sensorID"`
	Value        float64     `json:"value"`
}

// PopulatedSensor is a sensor with its user expanded. User is nil if
// the referenced user no longer exists.
type PopulatedSensor struct {
	SensorID     uuid.UUID `json:"_id"`
	CreationDate time.Time `json:"creationDate"`
	Location     Location  `json:"location"`
	User         *User     `json:"userID"`
}

// PopulatedMeasure is a measure with its sensor, and the sensor's user, expanded.
// Sensor is nil if the referenced sensor no longer exists.
type PopulatedMeasure struct {
	MeasureID    uuid.UUID        `json:"_id"`
	Type         MeasureType      `json:"type"`
	CreationDate time.Time        `json:"creationDate"`
	Sensor       *PopulatedSensor `json:"sensorID"`
	Value        float64          `json:"value"`
}

// Timestamp returns t in UTC with the microsecond precision of the stores, so a
// creation date reads back as the instant it was written with
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Populate expands s with user, which may be nil
func (s Sensor) Populate(user *User) PopulatedSensor {
	return PopulatedSensor{
		SensorID:     s.SensorID,
		CreationDate: s.CreationDate,
		Location:     s.Location,
		User:         user,
	}
}

// Populate expands m with sensor, which may be nil
func (m Measure) Populate(sensor *PopulatedSensor) PopulatedMeasure {
	return PopulatedMeasure{
		MeasureID:    m.MeasureID,
		Type:         m.Type,
		CreationDate: m.CreationDate,
		Sensor:       sensor,
		Value:        m.Value,
	}
}

// Location returns the room of the expanded sensor, or an empty string
func (m PopulatedMeasure) Location() Location {
	if m.Sensor == nil {
		return ""
	}
	return m.Sensor.Location
}
