package telemetry

// TypeStats are the aggregate statistics of all measures of one type
type TypeStats struct {
	Type     MeasureType `json:"_id"`
	Count    int64       `json:"count"`
	AvgValue float64     `json:"avgValue"`
	MinValue float64     `json:"minValue"`
	MaxValue float64     `json:"maxValue"`
}

// Counts holds the number of stored records per entity
type Counts struct {
	Users    int64 `json:"users"`
	Sensors  int64 `json:"sensors"`
	Measures int64 `json:"measures"`
}

// LocationCount is the number of sensors installed in one kind of room
type LocationCount struct {
	Location Location `json:"_id"`
	Count    int64    `json:"count"`
}

// AirQuality is the qualitative level of an air quality index
type AirQuality string

// all air quality levels, from best to worst
const (
	AirQualityGood      AirQuality = "good"
	AirQualityModerate  AirQuality = "moderate"
	AirQualityUnhealthy AirQuality = "unhealthy"
	AirQualityDangerous AirQuality = "dangerous"
)

// AirQualityLevels lists all levels from best to worst
var AirQualityLevels = []AirQuality{AirQualityGood, AirQualityModerate, AirQualityUnhealthy, AirQualityDangerous}

// AirQualityLevel buckets an air quality index: 0-25 good, 26-50 moderate,
// 51-75 unhealthy, everything above dangerous
func AirQualityLevel(value float64) AirQuality {
	switch {
	case value <= 25:
		return AirQualityGood
	case value <= 50:
		return AirQualityModerate
	case value <= 75:
		return AirQualityUnhealthy
	}
	return AirQualityDangerous
}
