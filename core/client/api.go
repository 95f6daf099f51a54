package client

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/relabs-tech/homesense/telemetry"
)

// Message is the response of a delete and of every failed request
type Message struct {
	Message string `json:"message"`
}

func get[T any](ctx context.Context, c Client, path string) (T, error) {
	var result T
	_, err := c.WithContext(ctx).RawGet(path, &result)
	return result, err
}

func post[T any](ctx context.Context, c Client, path string, body interface{}) (T, error) {
	var result T
	_, err := c.WithContext(ctx).RawPost(path, body, &result)
	return result, err
}

func put[T any](ctx context.Context, c Client, path string, body interface{}) (T, error) {
	var result T
	_, err := c.WithContext(ctx).RawPut(path, body, &result)
	return result, err
}

func (c Client) delete(ctx context.Context, path string) error {
	_, err := c.WithContext(ctx).RawDelete(path)
	return err
}

// Users returns all users
func (c Client) Users(ctx context.Context) ([]telemetry.User, error) {
	return get[[]telemetry.User](ctx, c, "/api/users")
}

// User returns the user with id
func (c Client) User(ctx context.Context, id uuid.UUID) (telemetry.User, error) {
	return get[telemetry.User](ctx, c, "/api/users/"+id.String())
}

// CreateUser creates a user. The identifier of user is ignored.
func (c Client) CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error) {
	return post[telemetry.User](ctx, c, "/api/users", struct {
		Location       string              `json:"location"`
		PersonsInHouse int                 `json:"personsInHouse"`
		HouseSize      telemetry.HouseSize `json:"houseSize"`
	}{user.Location, user.PersonsInHouse, user.HouseSize})
}

// UpdateUser applies patch to the user with id
func (c Client) UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error) {
	return put[telemetry.User](ctx, c, "/api/users/"+id.String(), patch)
}

// DeleteUser deletes the user with id. Sensors of the user are kept.
func (c Client) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/users/"+id.String())
}

// Sensors returns all sensors with their users
func (c Client) Sensors(ctx context.Context) ([]telemetry.PopulatedSensor, error) {
	return get[[]telemetry.PopulatedSensor](ctx, c, "/api/sensors")
}

// Sensor returns the sensor with id and its user
func (c Client) Sensor(ctx context.Context, id uuid.UUID) (telemetry.PopulatedSensor, error) {
	return get[telemetry.PopulatedSensor](ctx, c, "/api/sensors/"+id.String())
}

// SensorsOfUser returns the sensors of the user with userID
func (c Client) SensorsOfUser(ctx context.Context, userID uuid.UUID) ([]telemetry.Sensor, error) {
	return get[[]telemetry.Sensor](ctx, c, "/api/sensors/user/"+userID.String())
}

// CreateSensor creates a sensor. A zero creation date is set to now by the backend.
func (c Client) CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error) {
	body := map[string]interface{}{
		"location": sensor.Location,
		"userID":   sensor.UserID,
	}
	if !sensor.CreationDate.IsZero() {
		body["creationDate"] = sensor.CreationDate
	}
	return post[telemetry.Sensor](ctx, c, "/api/sensors", body)
}

// UpdateSensor applies patch to the sensor with id
func (c Client) UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error) {
	return put[telemetry.Sensor](ctx, c, "/api/sensors/"+id.String(), patch)
}

// DeleteSensor deletes the sensor with id. Measures of the sensor are kept.
func (c Client) DeleteSensor(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/sensors/"+id.String())
}

// Measures returns all measures with their sensors and users
func (c Client) Measures(ctx context.Context) ([]telemetry.PopulatedMeasure, error) {
	return get[[]telemetry.PopulatedMeasure](ctx, c, "/api/measures")
}

// Measure returns the measure with id, its sensor and the sensor's user
func (c Client) Measure(ctx context.Context, id uuid.UUID) (telemetry.PopulatedMeasure, error) {
	return get[telemetry.PopulatedMeasure](ctx, c, "/api/measures/"+id.String())
}

// MeasuresOfSensor returns the measures of the sensor with sensorID
func (c Client) MeasuresOfSensor(ctx context.Context, sensorID uuid.UUID) ([]telemetry.Measure, error) {
	return get[[]telemetry.Measure](ctx, c, "/api/measures/sensor/"+sensorID.String())
}

// MeasuresOfType returns the measures of type t
func (c Client) MeasuresOfType(ctx context.Context, t telemetry.MeasureType) ([]telemetry.Measure, error) {
	return get[[]telemetry.Measure](ctx, c, "/api/measures/type/"+string(t))
}

// CreateMeasure creates a measure. A zero creation date is set to now by the backend.
func (c Client) CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error) {
	body := map[string]interface{}{
		"type":     measure.Type,
		"sensorID": measure.SensorID,
		"value":    measure.Value,
	}
	if !measure.CreationDate.IsZero() {
		body["creationDate"] = measure.CreationDate
	}
	return post[telemetry.Measure](ctx, c, "/api/measures", body)
}

// UpdateMeasure applies patch to the measure with id
func (c Client) UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error) {
	return put[telemetry.Measure](ctx, c, "/api/measures/"+id.String(), patch)
}

// DeleteMeasure deletes the measure with id
func (c Client) DeleteMeasure(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/measures/"+id.String())
}

// StatsByType returns count, mean, min and max value per measure type
func (c Client) StatsByType(ctx context.Context) ([]telemetry.TypeStats, error) {
	return get[[]telemetry.TypeStats](ctx, c, "/api/measures/stats/by-type")
}

// RecentMeasures returns the limit newest measures. A limit of 0 uses the backend's default.
func (c Client) RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error) {
	path := "/api/measures/stats/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return get[[]telemetry.PopulatedMeasure](ctx, c, path)
}

// Counts returns the number of users, sensors and measures
func (c Client) Counts(ctx context.Context) (telemetry.Counts, error) {
	return get[telemetry.Counts](ctx, c, "/api/stats/counts")
}

// SensorsByLocation returns the number of sensors per location
func (c Client) SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error) {
	return get[[]telemetry.LocationCount](ctx, c, "/api/sensors/stats/by-location")
}

// Export returns all measures as xlsx workbook
func (c Client) Export(ctx context.Context) ([]byte, error) {
	var data []byte
	_, err := c.WithContext(ctx).RawGet("/api/measures/export", &data)
	return data, err
}

// Version returns the version of the backend
func (c Client) Version(ctx context.Context) (string, error) {
	v, err := get[struct {
		Version string `json:"version"`
	}](ctx, c, "/version")
	return v.Version, err
}
