package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/telemetry"
)

type fakeSource struct {
	data       Data
	err        error
	gotLimit   int
	statsCalls int
}

func (f *fakeSource) StatsByType(ctx context.Context) ([]telemetry.TypeStats, error) {
	f.statsCalls++
	return f.data.Stats, f.err
}

func (f *fakeSource) RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error) {
	f.gotLimit = limit
	return f.data.Recent, nil
}

func (f *fakeSource) Counts(ctx context.Context) (telemetry.Counts, error) {
	return f.data.Counts, nil
}

func (f *fakeSource) SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error) {
	return f.data.Locations, nil
}

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func measure(t telemetry.MeasureType, value float64, i int, sensor *telemetry.PopulatedSensor) telemetry.PopulatedMeasure {
	return telemetry.PopulatedMeasure{
		MeasureID:    uuid.New(),
		Type:         t,
		CreationDate: base.Add(-time.Duration(i) * time.Minute),
		Sensor:       sensor,
		Value:        value,
	}
}

func TestLoad(t *testing.T) {
	source := &fakeSource{data: Data{Counts: telemetry.Counts{Users: 2, Sensors: 5}}}
	d, err := Load(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, RecentLimit, source.gotLimit)
	assert.Equal(t, int64(5), d.Counts.Sensors)
	assert.Equal(t, 1, source.statsCalls)

	source.err = errors.New("connection refused")
	_, err = Load(context.Background(), source)
	assert.ErrorIs(t, err, source.err)
}

func TestBuild(t *testing.T) {
	bedroom := &telemetry.PopulatedSensor{SensorID: uuid.New(), Location: telemetry.LocationBedroom}

	var recent []telemetry.PopulatedMeasure
	for i := 0; i < 25; i++ {
		var sensor *telemetry.PopulatedSensor
		if i%2 == 0 {
			sensor = bedroom
		}
		recent = append(recent, measure(telemetry.MeasureTypeTemperature, 20+float64(i)/10, len(recent), sensor))
	}
	for _, v := range []float64{40, 45, 52} {
		recent = append(recent, measure(telemetry.MeasureTypeHumidity, v, len(recent), bedroom))
	}
	for _, v := range []float64{10, 20, 60, 30} {
		recent = append(recent, measure(telemetry.MeasureTypeAirPollution, v, len(recent), nil))
	}

	d := &Data{
		Stats: []telemetry.TypeStats{
			{Type: telemetry.MeasureTypeHumidity, Count: 3, AvgValue: 45.666},
			{Type: telemetry.MeasureTypeTemperature, Count: 25, AvgValue: 21.2},
		},
		Recent:    recent,
		Counts:    telemetry.Counts{Users: 3, Sensors: 7, Measures: 32},
		Locations: []telemetry.LocationCount{{Location: telemetry.LocationBedroom, Count: 4}},
	}
	v := Build(d)

	assert.Equal(t, []Card{
		{Title: "Total Sensors", Value: "7"},
		{Title: "Active Users", Value: "3"},
		{Title: "Avg. Temperature", Value: "21.2°C"},
		{Title: "Avg. Humidity", Value: "45.7%"},
	}, v.Cards)

	require.Len(t, v.Temperature, TemperaturePoints)
	assert.Equal(t, "bedroom", v.Temperature[0].Location)
	assert.Equal(t, "Unknown", v.Temperature[1].Location)
	assert.Equal(t, 20.0, v.Temperature[0].Value)

	assert.Equal(t, HumidityGauge{HasData: true, Average: 46, Status: HumidityOptimal}, v.Humidity)

	assert.True(t, v.AirQuality.HasData)
	assert.Equal(t, 30, v.AirQuality.Average)
	assert.Equal(t, telemetry.AirQualityModerate, v.AirQuality.Level)
	assert.Equal(t, []AirQualitySlice{
		{Level: telemetry.AirQualityGood, Count: 2},
		{Level: telemetry.AirQualityModerate, Count: 1},
		{Level: telemetry.AirQualityUnhealthy, Count: 1},
	}, v.AirQuality.Slices)

	assert.Equal(t, d.Locations, v.SensorMap)

	require.Len(t, v.Timeline, TimelineItems)
	assert.Equal(t, "Temperature reading", v.Timeline[0].Title)
	assert.Equal(t, "20°C", v.Timeline[0].Value)
	assert.Equal(t, "bedroom", v.Timeline[0].Location)
	assert.Equal(t, "Unknown location", v.Timeline[1].Location)
}

func TestBuild_Empty(t *testing.T) {
	v := Build(&Data{})
	assert.Equal(t, "0", v.Cards[0].Value)
	assert.Equal(t, "n/a", v.Cards[2].Value)
	assert.Empty(t, v.Temperature)
	assert.False(t, v.Humidity.HasData)
	assert.False(t, v.AirQuality.HasData)
	assert.Empty(t, v.Timeline)
}

func TestHumidityStatusOf(t *testing.T) {
	assert.Equal(t, HumidityLow, HumidityStatusOf(29))
	assert.Equal(t, HumidityOptimal, HumidityStatusOf(30))
	assert.Equal(t, HumidityOptimal, HumidityStatusOf(59))
	assert.Equal(t, HumidityHigh, HumidityStatusOf(60))
}
