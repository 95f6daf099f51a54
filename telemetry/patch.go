package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// UserPatch is a partial update of a user. Nil fields are left untouched.
type UserPatch struct {
	Location       *string    `json:"location,omitempty"`
	PersonsInHouse *int       `json:"personsInHouse,omitempty"`
	HouseSize      *HouseSize `json:"houseSize,omitempty"`
}

// Apply merges the patch into u
func (p UserPatch) Apply(u *User) {
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.PersonsInHouse != nil {
		u.PersonsInHouse = *p.PersonsInHouse
	}
	if p.HouseSize != nil {
		u.HouseSize = *p.HouseSize
	}
}

// SensorPatch is a partial update of a sensor. Nil fields are left untouched.
type SensorPatch struct {
	CreationDate *time.Time `json:"creationDate,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	UserID       *uuid.UUID `json:"userID,omitempty"`
}

// Apply merges the patch into s
func (p SensorPatch) Apply(s *Sensor) {
	if p.CreationDate != nil {
		s.CreationDate = Timestamp(*p.CreationDate)
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.UserID != nil {
		s.UserID = *p.UserID
	}
}

// MeasurePatch is a partial update of a measure. Nil fields are left untouched.
type MeasurePatch struct {
	Type         *MeasureType `json:"type,omitempty"`
	CreationDate *time.Time   `json:"creationDate,omitempty"`
	SensorID     *uuid.UUID   `json:"sensorID,omitempty"`
	Value        *float64     `json:"value,omitempty"`
}

// Apply merges the patch into m
func (p MeasurePatch) Apply(m *Measure) {
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.CreationDate != nil {
		m.CreationDate = Timestamp(*p.CreationDate)
	}
	if p.SensorID != nil {
		m.SensorID = *p.SensorID
	}
	if p.Value != nil {
		m.Value = *p.Value
	}
}
