// Package dashboard derives the widgets of the homesense dashboard from the
// statistics routes of the backend.
//
// Load fetches everything once, Build turns it into a View. There is no refresh,
// a new view needs a new Load.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/telemetry"
)

const (
	// RecentLimit is the number of recent measures the dashboard works on
	RecentLimit = 50
	// TemperaturePoints is the maximum length of the temperature series
	TemperaturePoints = 20
	// TimelineItems is the maximum length of the activity timeline
	TimelineItems = 10

	unknownLocation = "Unknown"
)

// Source is the part of the API the dashboard reads. client.Client implements it.
type Source interface {
	StatsByType(ctx context.Context) ([]telemetry.TypeStats, error)
	RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error)
	Counts(ctx context.Context) (telemetry.Counts, error)
	SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error)
}

// Data is the raw data of one dashboard load
type Data struct {
	Stats     []telemetry.TypeStats
	Recent    []telemetry.PopulatedMeasure
	Counts    telemetry.Counts
	Locations []telemetry.LocationCount
}

// Load fetches the data of the dashboard from source
func Load(ctx context.Context, source Source) (*Data, error) {
	rlog := logger.FromContext(ctx)
	var (
		d   Data
		err error
	)
	if d.Stats, err = source.StatsByType(ctx); err != nil {
		return nil, fmt.Errorf("cannot load statistics by type: %w", err)
	}
	if d.Recent, err = source.RecentMeasures(ctx, RecentLimit); err != nil {
		return nil, fmt.Errorf("cannot load recent measures: %w", err)
	}
	if d.Counts, err = source.Counts(ctx); err != nil {
		return nil, fmt.Errorf("cannot load counts: %w", err)
	}
	if d.Locations, err = source.SensorsByLocation(ctx); err != nil {
		return nil, fmt.Errorf("cannot load sensors by location: %w", err)
	}
	rlog.Debugf("dashboard: loaded %d types, %d recent measures", len(d.Stats), len(d.Recent))
	return &d, nil
}

// Card is one summary card
type Card struct {
	Title string
	Value string
}

// TemperaturePoint is one point of the temperature series
type TemperaturePoint struct {
	Date     time.Time
	Value    float64
	Location string
}

// HumidityStatus classifies the mean humidity
type HumidityStatus string

// all humidity statuses
const (
	HumidityLow     HumidityStatus = "Low"
	HumidityOptimal HumidityStatus = "Optimal"
	HumidityHigh    HumidityStatus = "High"
)

// HumidityStatusOf returns Low below 30, Optimal below 60 and High otherwise
func HumidityStatusOf(value int) HumidityStatus {
	switch {
	case value < 30:
		return HumidityLow
	case value < 60:
		return HumidityOptimal
	}
	return HumidityHigh
}

// HumidityGauge is the rounded mean of the recent humidity measures
type HumidityGauge struct {
	// HasData is false if there are no recent humidity measures
	HasData bool
	Average int
	Status  HumidityStatus
}

// AirQualitySlice is one bucket of the air quality donut
type AirQualitySlice struct {
	Level telemetry.AirQuality
	Count int
}

// AirQualityDonut is the distribution of the recent air pollution measures.
// Buckets without measures are omitted.
type AirQualityDonut struct {
	HasData bool
	Slices  []AirQualitySlice
	Average int
	Level   telemetry.AirQuality
}

// TimelineItem is one entry of the activity timeline
type TimelineItem struct {
	Title    string
	Type     telemetry.MeasureType
	Value    string
	Location string
	Date     time.Time
}

// View holds every widget of the dashboard
type View struct {
	Cards       []Card
	Temperature []TemperaturePoint
	Humidity    HumidityGauge
	AirQuality  AirQualityDonut
	SensorMap   []telemetry.LocationCount
	Timeline    []TimelineItem
}

// Build derives the dashboard widgets from d
func Build(d *Data) View {
	byType := map[telemetry.MeasureType][]telemetry.PopulatedMeasure{}
	for _, m := range d.Recent {
		byType[m.Type] = append(byType[m.Type], m)
	}

	v := View{
		Cards:       cards(d),
		Temperature: temperatureSeries(byType[telemetry.MeasureTypeTemperature]),
		Humidity:    humidityGauge(byType[telemetry.MeasureTypeHumidity]),
		AirQuality:  airQualityDonut(byType[telemetry.MeasureTypeAirPollution]),
		SensorMap:   d.Locations,
	}

	n := len(d.Recent)
	if n > TimelineItems {
		n = TimelineItems
	}
	for _, m := range d.Recent[:n] {
		location := string(m.Location())
		if location == "" {
			location = "Unknown location"
		}
		v.Timeline = append(v.Timeline, TimelineItem{
			Title:    readingTitle(m.Type),
			Type:     m.Type,
			Value:    m.Type.FormatValue(m.Value),
			Location: location,
			Date:     m.CreationDate,
		})
	}
	return v
}

func cards(d *Data) []Card {
	averageOf := func(t telemetry.MeasureType) string {
		for _, s := range d.Stats {
			if s.Type == t && s.Count > 0 {
				return t.FormatValue(math.Round(s.AvgValue*10) / 10)
			}
		}
		return "n/a"
	}
	return []Card{
		{Title: "Total Sensors", Value: fmt.Sprint(d.Counts.Sensors)},
		{Title: "Active Users", Value: fmt.Sprint(d.Counts.Users)},
		{Title: "Avg. Temperature", Value: averageOf(telemetry.MeasureTypeTemperature)},
		{Title: "Avg. Humidity", Value: averageOf(telemetry.MeasureTypeHumidity)},
	}
}

func temperatureSeries(measures []telemetry.PopulatedMeasure) []TemperaturePoint {
	if len(measures) > TemperaturePoints {
		measures = measures[:TemperaturePoints]
	}
	points := make([]TemperaturePoint, 0, len(measures))
	for _, m := range measures {
		location := string(m.Location())
		if location == "" {
			location = unknownLocation
		}
		points = append(points, TemperaturePoint{Date: m.CreationDate, Value: m.Value, Location: location})
	}
	return points
}

func roundedMean(measures []telemetry.PopulatedMeasure) int {
	var sum float64
	for _, m := range measures {
		sum += m.Value
	}
	return int(math.Round(sum / float64(len(measures))))
}

func humidityGauge(measures []telemetry.PopulatedMeasure) HumidityGauge {
	if len(measures) == 0 {
		return HumidityGauge{}
	}
	avg := roundedMean(measures)
	return HumidityGauge{HasData: true, Average: avg, Status: HumidityStatusOf(avg)}
}

func airQualityDonut(measures []telemetry.PopulatedMeasure) AirQualityDonut {
	if len(measures) == 0 {
		return AirQualityDonut{}
	}
	counts := map[telemetry.AirQuality]int{}
	for _, m := range measures {
		counts[telemetry.AirQualityLevel(m.Value)]++
	}
	donut := AirQualityDonut{HasData: true, Average: roundedMean(measures)}
	donut.Level = telemetry.AirQualityLevel(float64(donut.Average))
	for _, level := range telemetry.AirQualityLevels {
		if counts[level] > 0 {
			donut.Slices = append(donut.Slices, AirQualitySlice{Level: level, Count: counts[level]})
		}
	}
	return donut
}

// readingTitle returns e.g. "Temperature reading"
func readingTitle(t telemetry.MeasureType) string {
	s := string(t)
	if s == "" {
		return "Reading"
	}
	return strings.ToUpper(s[:1]) + s[1:] + " reading"
}
