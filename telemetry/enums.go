package telemetry

import (
	"fmt"

	"github.com/goccy/go-json"
)

// HouseSize is the size class of a user's home
type HouseSize string

// all house sizes
const (
	HouseSizeSmall  HouseSize = "small"
	HouseSizeMedium HouseSize = "medium"
	HouseSizeBig    HouseSize = "big"
)

// HouseSizes lists all valid house sizes
var HouseSizes = []HouseSize{HouseSizeSmall, HouseSizeMedium, HouseSizeBig}

// Valid returns true if h is one of HouseSizes
func (h HouseSize) Valid() bool {
	for _, v := range HouseSizes {
		if h == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON is a custom JSON unmarshaller
func (h *HouseSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*h = HouseSize(s)
	if !h.Valid() {
		return fmt.Errorf("%s is not a valid houseSize", s)
	}
	return nil
}

// Location is the room a sensor is installed in
type Location string

// all sensor locations
const (
	LocationBedroom    Location = "bedroom"
	LocationLivingroom Location = "livingroom"
	LocationBathroom   Location = "bathroom"
	LocationEntrance   Location = "entrance"
)

// Locations lists all valid sensor locations
var Locations = []Location{LocationBedroom, LocationLivingroom, LocationBathroom, LocationEntrance}

// Valid returns true if l is one of Locations
func (l Location) Valid() bool {
	for _, v := range Locations {
		if l == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON is a custom JSON unmarshaller
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Location(s)
	if !l.Valid() {
		return fmt.Errorf("%s is not a valid location", s)
	}
	return nil
}

// MeasureType is the physical quantity of a measure
type MeasureType string

// all measure types
const (
	MeasureTypeTemperature  MeasureType = "temperature"
	MeasureTypeHumidity     MeasureType = "humidity"
	MeasureTypeAirPollution MeasureType = "airPollution"
)

// MeasureTypes lists all valid measure types
var MeasureTypes = []MeasureType{MeasureTypeTemperature, MeasureTypeHumidity, MeasureTypeAirPollution}

// Valid returns true if t is one of MeasureTypes
func (t MeasureType) Valid() bool {
	for _, v := range MeasureTypes {
		if t == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON is a custom JSON unmarshaller
func (t *MeasureType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = MeasureType(s)
	if !t.Valid() {
		return fmt.Errorf("%s is not a valid measure type", s)
	}
	return nil
}

// Unit returns the unit suffix used when displaying a value of type t
func (t MeasureType) Unit() string {
	switch t {
	case MeasureTypeTemperature:
		return "°C"
	case MeasureTypeHumidity:
		return "%"
	}
	return ""
}

// FormatValue formats value the way dashboards display it, e.g. "21.5°C", "45%" or "AQI: 30"
func (t MeasureType) FormatValue(value float64) string {
	switch t {
	case MeasureTypeTemperature, MeasureTypeHumidity:
		return fmt.Sprintf("%g%s", value, t.Unit())
	case MeasureTypeAirPollution:
		return fmt.Sprintf("AQI: %g", value)
	}
	return fmt.Sprintf("%g", value)
}
