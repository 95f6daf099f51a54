package telemetry_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/telemetry"
)

func TestEnumerations(t *testing.T) {
	for _, v := range telemetry.MeasureTypes {
		assert.True(t, v.Valid(), v)
	}
	for _, v := range telemetry.Locations {
		assert.True(t, v.Valid(), v)
	}
	for _, v := range telemetry.HouseSizes {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, telemetry.MeasureType("invalidType").Valid())
	assert.False(t, telemetry.Location("kitchen").Valid())
	assert.False(t, telemetry.HouseSize("huge").Valid())

	var m telemetry.Measure
	err := json.Unmarshal([]byte(`{"type":"invalidType","value":1}`), &m)
	assert.Error(t, err)
}

func TestPopulatedJSON(t *testing.T) {
	sensor := telemetry.Sensor{
		SensorID:     uuid.New(),
		CreationDate: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Location:     telemetry.LocationBedroom,
		UserID:       uuid.New(),
	}
	measure := telemetry.Measure{
		MeasureID: uuid.New(),
		Type:      telemetry.MeasureTypeTemperature,
		SensorID:  sensor.SensorID,
		Value:     21.5,
	}

	// a dangling sensor reference expands to null
	data, err := json.Marshal(measure.Populate(nil))
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	v, ok := raw["sensorID"]
	assert.True(t, ok)
	assert.Nil(t, v)

	user := telemetry.User{UserID: sensor.UserID, Location: "Paris", PersonsInHouse: 2, HouseSize: telemetry.HouseSizeSmall}
	ps := sensor.Populate(&user)
	data, err = json.Marshal(measure.Populate(&ps))
	require.NoError(t, err)

	var pm telemetry.PopulatedMeasure
	require.NoError(t, json.Unmarshal(data, &pm))
	require.NotNil(t, pm.Sensor)
	require.NotNil(t, pm.Sensor.User)
	assert.Equal(t, "Paris", pm.Sensor.User.Location)
	assert.Equal(t, telemetry.LocationBedroom, pm.Location())
}

func TestPatch(t *testing.T) {
	u := telemetry.User{Location: "Paris", PersonsInHouse: 2, HouseSize: telemetry.HouseSizeSmall}
	var p telemetry.UserPatch
	require.NoError(t, json.Unmarshal([]byte(`{"personsInHouse":4}`), &p))
	p.Apply(&u)
	assert.Equal(t, "Paris", u.Location)
	assert.Equal(t, 4, u.PersonsInHouse)
	assert.Equal(t, telemetry.HouseSizeSmall, u.HouseSize)

	m := telemetry.Measure{Type: telemetry.MeasureTypeHumidity, Value: 40}
	value := 0.0
	telemetry.MeasurePatch{Value: &value}.Apply(&m)
	assert.Equal(t, 0.0, m.Value)
	assert.Equal(t, telemetry.MeasureTypeHumidity, m.Type)
}

func TestAirQualityLevel(t *testing.T) {
	cases := map[float64]telemetry.AirQuality{
		0:   telemetry.AirQualityGood,
		25:  telemetry.AirQualityGood,
		26:  telemetry.AirQualityModerate,
		50:  telemetry.AirQualityModerate,
		51:  telemetry.AirQualityUnhealthy,
		75:  telemetry.AirQualityUnhealthy,
		76:  telemetry.AirQualityDangerous,
		140: telemetry.AirQualityDangerous,
	}
	for value, expected := range cases {
		assert.Equal(t, expected, telemetry.AirQualityLevel(value), value)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "21.5°C", telemetry.MeasureTypeTemperature.FormatValue(21.5))
	assert.Equal(t, "45%", telemetry.MeasureTypeHumidity.FormatValue(45))
	assert.Equal(t, "AQI: 30", telemetry.MeasureTypeAirPollution.FormatValue(30))
}
