package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/core/csql"
	"github.com/relabs-tech/homesense/telemetry"
)

var (
	userRowColumns    = []string{"user_id", "location", "persons_in_house", "house_size"}
	sensorRowColumns  = []string{"sensor_id", "creation_date", "location", "user_id"}
	measureRowColumns = []string{"measure_id", "type", "creation_date", "sensor_id", "value"}
	populatedColumns  = []string{
		"measure_id", "type", "creation_date", "sensor_id", "value",
		"sensor_id", "creation_date", "location", "user_id",
		"user_id", "location", "persons_in_house", "house_size",
	}
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Postgres) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	p, err := NewPostgres(context.Background(), &csql.DB{DB: db, Schema: "homesense"}, false)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return db, mock, p
}

func TestNewPostgres_UpdateSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE table IF NOT EXISTS homesense."user"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = NewPostgres(context.Background(), &csql.DB{DB: db, Schema: "homesense"}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO homesense."user"`)).
		WithArgs(sqlmock.AnyArg(), "Paris", 2, "small").
		WillReturnResult(sqlmock.NewResult(1, 1))

	u, err := p.CreateUser(context.Background(), telemetry.User{Location: "Paris", PersonsInHouse: 2, HouseSize: telemetry.HouseSizeSmall})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.UserID)
	assert.Equal(t, "Paris", u.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateSensor_DefaultsCreationDate(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO homesense."sensor"`)).
		WithArgs(sqlmock.AnyArg(), p.now(), "bedroom", userID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s, err := p.CreateSensor(context.Background(), telemetry.Sensor{Location: telemetry.LocationBedroom, UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, p.now(), s.CreationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// utcTime matches a time argument that is want in UTC
type utcTime struct{ want time.Time }

func (u utcTime) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Location() == time.UTC && t.Equal(u.want)
}

func TestPostgres_CreateMeasure_NormalizesCreationDate(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	paris := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2024, 1, 1, 10, 0, 0, 123456789, paris)
	want := time.Date(2024, 1, 1, 8, 0, 0, 123456000, time.UTC)

	sensorID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO homesense."measure"`)).
		WithArgs(sqlmock.AnyArg(), "temperature", utcTime{want}, sensorID, 21.5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO homesense."sensor"`)).
		WithArgs(sqlmock.AnyArg(), utcTime{want}, "bedroom", sensorID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	m, err := p.CreateMeasure(context.Background(), telemetry.Measure{Type: telemetry.MeasureTypeTemperature, SensorID: sensorID, Value: 21.5, CreationDate: at})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, m.CreationDate.Location())
	assert.True(t, want.Equal(m.CreationDate))

	s, err := p.CreateSensor(context.Background(), telemetry.Sensor{Location: telemetry.LocationBedroom, UserID: sensorID, CreationDate: at})
	require.NoError(t, err)
	assert.True(t, want.Equal(s.CreationDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateMeasure_ConstraintViolation(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO homesense."measure"`)).
		WillReturnError(&pq.Error{Code: "23502", Message: "null value in column"})

	_, err := p.CreateMeasure(context.Background(), telemetry.Measure{Type: telemetry.MeasureTypeHumidity, SensorID: uuid.New(), Value: 40})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_User_NotFound(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, location, persons_in_house, house_size FROM homesense."user" WHERE user_id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := p.User(context.Background(), id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Measures_Filter(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	sensorID := uuid.New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(measureRowColumns).
		AddRow(uuid.New().String(), "temperature", created, sensorID.String(), 21.5)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM homesense."measure" WHERE sensor_id = $1 ORDER BY serial`)).
		WithArgs(sensorID).
		WillReturnRows(rows)

	measures, err := p.Measures(context.Background(), Filter{Field: "sensorID", Value: sensorID.String()})
	require.NoError(t, err)
	require.Len(t, measures, 1)
	assert.Equal(t, 21.5, measures[0].Value)
	assert.Equal(t, telemetry.MeasureTypeTemperature, measures[0].Type)
	assert.Equal(t, sensorID, measures[0].SensorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Measures_FilterErrors(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	_, err := p.Measures(context.Background(), Filter{Field: "colour", Value: "red"})
	assert.True(t, errors.Is(err, ErrUnknownField))

	// a malformed identifier cannot match anything and is not sent to the database
	measures, err := p.Measures(context.Background(), Filter{Field: "sensorID", Value: "nope"})
	require.NoError(t, err)
	assert.Empty(t, measures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateUser(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(id.String(), "Paris", 2, "small"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE homesense."user" SET`)).
		WithArgs(id, "Paris", 4, "small").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	persons := 4
	u, err := p.UpdateUser(context.Background(), id, telemetry.UserPatch{PersonsInHouse: &persons})
	require.NoError(t, err)
	assert.Equal(t, 4, u.PersonsInHouse)
	assert.Equal(t, "Paris", u.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateSensor_NotFound(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sensorRowColumns))
	mock.ExpectRollback()

	location := telemetry.LocationBathroom
	_, err := p.UpdateSensor(context.Background(), id, telemetry.SensorPatch{Location: &location})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteSensor(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM homesense."sensor" WHERE sensor_id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, p.DeleteSensor(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentMeasures(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	userID, sensorID := uuid.New(), uuid.New()
	newer := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(populatedColumns).
		AddRow(uuid.New().String(), "humidity", newer, sensorID.String(), 45.0,
			sensorID.String(), older, "bedroom", userID.String(),
			userID.String(), "Paris", 2, "small").
		AddRow(uuid.New().String(), "temperature", older, uuid.New().String(), 21.5,
			nil, nil, nil, nil,
			nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY m.creation_date DESC, m.serial DESC LIMIT $1`)).
		WithArgs(50).
		WillReturnRows(rows)

	recent, err := p.RecentMeasures(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	require.NotNil(t, recent[0].Sensor)
	require.NotNil(t, recent[0].Sensor.User)
	assert.Equal(t, "Paris", recent[0].Sensor.User.Location)
	assert.Equal(t, telemetry.LocationBedroom, recent[0].Location())

	// dangling sensor reference
	assert.Nil(t, recent[1].Sensor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PopulatedSensor_DanglingUser(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN homesense."user" u ON u.user_id = s.user_id WHERE s.sensor_id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, sensorRowColumns...), userRowColumns...)).
			AddRow(id.String(), created, "entrance", uuid.New().String(), nil, nil, nil, nil))

	s, err := p.PopulatedSensor(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, s.SensorID)
	assert.Nil(t, s.User)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StatsByType(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"type", "count", "avg", "min", "max"}).
		AddRow("temperature", 3, 21.0, 19.5, 22.5).
		AddRow("airPollution", 1, 30.0, 30.0, 30.0)
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY type`)).WillReturnRows(rows)

	stats, err := p.StatsByType(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []telemetry.TypeStats{
		{Type: telemetry.MeasureTypeTemperature, Count: 3, AvgValue: 21, MinValue: 19.5, MaxValue: 22.5},
		{Type: telemetry.MeasureTypeAirPollution, Count: 1, AvgValue: 30, MinValue: 30, MaxValue: 30},
	}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountsAndLocations(t *testing.T) {
	db, mock, p := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT (SELECT COUNT(*) FROM homesense."user")`)).
		WillReturnRows(sqlmock.NewRows([]string{"users", "sensors", "measures"}).AddRow(2, 3, 60))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY location`)).
		WillReturnRows(sqlmock.NewRows([]string{"location", "count"}).
			AddRow("entrance", 1).
			AddRow("bedroom", 2))

	counts, err := p.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, telemetry.Counts{Users: 2, Sensors: 3, Measures: 60}, counts)

	locations, err := p.SensorsByLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []telemetry.LocationCount{
		{Location: telemetry.LocationBedroom, Count: 2},
		{Location: telemetry.LocationEntrance, Count: 1},
	}, locations)
	assert.NoError(t, mock.ExpectationsWereMet())
}
