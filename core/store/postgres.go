package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relabs-tech/homesense/core/csql"
	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/telemetry"
)

// Postgres is a Store backed by three tables in the schema of a csql.DB. There are
// no foreign key constraints between the tables, deleting a user or a sensor leaves
// references to it dangling.
type Postgres struct {
	db  *csql.DB
	now func() time.Time

	q queries
}

var _ Store = (*Postgres)(nil)

type queries struct {
	insertUser, readUser, listUsers, updateUser, deleteUser, lockUser                           string
	insertSensor, readSensor, listSensors, updateSensor, deleteSensor, lockSensor               string
	insertMeasure, readMeasure, listMeasures, updateMeasure, deleteMeasure, lockMeasure         string
	populatedSensors, populatedMeasures, recentMeasures, statsByType, counts, sensorsByLocation string
}

// column names per filterable JSON field
var (
	userColumns    = map[string]string{"location": "location", "houseSize": "house_size"}
	sensorColumns  = map[string]string{"location": "location", "userID": "user_id"}
	measureColumns = map[string]string{"type": "type", "sensorID": "sensor_id"}
	uuidColumns    = map[string]bool{"user_id": true, "sensor_id": true}
)

const (
	userSelect    = `user_id, location, persons_in_house, house_size`
	sensorSelect  = `sensor_id, creation_date, location, user_id`
	measureSelect = `measure_id, type, creation_date, sensor_id, value`

	populatedSensorSelect = `s.sensor_id, s.creation_date, s.location, s.user_id,
u.user_id, u.location, u.persons_in_house, u.house_size`
	populatedMeasureSelect = `m.measure_id, m.type, m.creation_date, m.sensor_id, m.value,
s.sensor_id, s.creation_date, s.location, s.user_id,
u.user_id, u.location, u.persons_in_house, u.house_size`
)

// NewPostgres returns a Postgres store on db. If updateSchema is true, the tables
// and indices are created if they do not exist yet.
func NewPostgres(ctx context.Context, db *csql.DB, updateSchema bool) (*Postgres, error) {
	p := &Postgres{db: db, now: now}
	p.q = buildQueries(db)
	if updateSchema {
		if err := p.createTables(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func buildQueries(db *csql.DB) queries {
	user := db.Table("user")
	sensor := db.Table("sensor")
	measure := db.Table("measure")
	sensorJoin := fmt.Sprintf(`FROM %s s LEFT JOIN %s u ON u.user_id = s.user_id`, sensor, user)
	measureJoin := fmt.Sprintf(`FROM %s m LEFT JOIN %s s ON s.sensor_id = m.sensor_id LEFT JOIN %s u ON u.user_id = s.user_id`,
		measure, sensor, user)

	return queries{
		insertUser: fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4);`, user, userSelect),
		readUser:   fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1;`, userSelect, user),
		lockUser:   fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 FOR UPDATE;`, userSelect, user),
		listUsers:  fmt.Sprintf(`SELECT %s FROM %s `, userSelect, user),
		updateUser: fmt.Sprintf(`UPDATE %s SET location = $2, persons_in_house = $3, house_size = $4 WHERE user_id = $1;`, user),
		deleteUser: fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1;`, user),

		insertSensor: fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4);`, sensor, sensorSelect),
		readSensor:   fmt.Sprintf(`SELECT %s FROM %s WHERE sensor_id = $1;`, sensorSelect, sensor),
		lockSensor:   fmt.Sprintf(`SELECT %s FROM %s WHERE sensor_id = $1 FOR UPDATE;`, sensorSelect, sensor),
		listSensors:  fmt.Sprintf(`SELECT %s FROM %s `, sensorSelect, sensor),
		updateSensor: fmt.Sprintf(`UPDATE %s SET creation_date = $2, location = $3, user_id = $4 WHERE sensor_id = $1;`, sensor),
		deleteSensor: fmt.Sprintf(`DELETE FROM %s WHERE sensor_id = $1;`, sensor),

		insertMeasure: fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5);`, measure, measureSelect),
		readMeasure:   fmt.Sprintf(`SELECT %s FROM %s WHERE measure_id = $1;`, measureSelect, measure),
		lockMeasure:   fmt.Sprintf(`SELECT %s FROM %s WHERE measure_id = $1 FOR UPDATE;`, measureSelect, measure),
		listMeasures:  fmt.Sprintf(`SELECT %s FROM %s `, measureSelect, measure),
		updateMeasure: fmt.Sprintf(`UPDATE %s SET type = $2, creation_date = $3, sensor_id = $4, value = $5 WHERE measure_id = $1;`, measure),
		deleteMeasure: fmt.Sprintf(`DELETE FROM %s WHERE measure_id = $1;`, measure),

		populatedSensors:  fmt.Sprintf(`SELECT %s %s `, populatedSensorSelect, sensorJoin),
		populatedMeasures: fmt.Sprintf(`SELECT %s %s `, populatedMeasureSelect, measureJoin),
		recentMeasures: fmt.Sprintf(`SELECT %s %s ORDER BY m.creation_date DESC, m.serial DESC LIMIT $1;`,
			populatedMeasureSelect, measureJoin),
		statsByType: fmt.Sprintf(`SELECT type, COUNT(*), AVG(value), MIN(value), MAX(value) FROM %s GROUP BY type;`, measure),
		counts: fmt.Sprintf(`SELECT (SELECT COUNT(*) FROM %s), (SELECT COUNT(*) FROM %s), (SELECT COUNT(*) FROM %s);`,
			user, sensor, measure),
		sensorsByLocation: fmt.Sprintf(`SELECT location, COUNT(*) FROM %s GROUP BY location;`, sensor),
	}
}

func (p *Postgres) createTables(ctx context.Context) error {
	schema := p.db.Schema
	query := fmt.Sprintf(`CREATE table IF NOT EXISTS %[1]s."user" (
user_id uuid NOT NULL PRIMARY KEY,
serial bigserial NOT NULL,
location varchar NOT NULL,
persons_in_house integer NOT NULL,
house_size varchar NOT NULL);
CREATE table IF NOT EXISTS %[1]s."sensor" (
sensor_id uuid NOT NULL PRIMARY KEY,
serial bigserial NOT NULL,
creation_date timestamp NOT NULL DEFAULT now(),
location varchar NOT NULL,
user_id uuid NOT NULL);
CREATE table IF NOT EXISTS %[1]s."measure" (
measure_id uuid NOT NULL PRIMARY KEY,
serial bigserial NOT NULL,
type varchar NOT NULL,
creation_date timestamp NOT NULL DEFAULT now(),
sensor_id uuid NOT NULL,
value double precision NOT NULL);
CREATE index IF NOT EXISTS sort_index_user_serial ON %[1]s."user"(serial);
CREATE index IF NOT EXISTS sort_index_sensor_serial ON %[1]s."sensor"(serial);
CREATE index IF NOT EXISTS sort_index_measure_serial ON %[1]s."measure"(serial);
CREATE index IF NOT EXISTS searchable_index_sensor_user_id ON %[1]s."sensor"(user_id);
CREATE index IF NOT EXISTS searchable_index_measure_sensor_id ON %[1]s."measure"(sensor_id);
CREATE index IF NOT EXISTS searchable_index_measure_type ON %[1]s."measure"(type);
CREATE index IF NOT EXISTS sort_index_measure_creation_date ON %[1]s."measure"(creation_date DESC, serial DESC);
`, schema)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cannot create tables: %w", err)
	}
	logger.FromContext(ctx).Infoln("schema", schema, "is up to date")
	return nil
}

// whereClause returns the WHERE clause and its parameters for filters. ok is false
// if a filter can never match, e.g. a malformed identifier.
func whereClause(columns map[string]string, filters []Filter) (clause string, params []interface{}, ok bool, err error) {
	var conditions []string
	for _, f := range filters {
		column, found := columns[f.Field]
		if !found {
			return "", nil, false, fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
		}
		var value interface{} = f.Value
		if uuidColumns[column] {
			id, err := uuid.Parse(f.Value)
			if err != nil {
				return "", nil, false, nil
			}
			value = id
		}
		params = append(params, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(params)))
	}
	if len(conditions) > 0 {
		clause = "WHERE " + strings.Join(conditions, " AND ") + " "
	}
	return clause, params, true, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (telemetry.User, error) {
	var u telemetry.User
	var houseSize string
	err := row.Scan(&u.UserID, &u.Location, &u.PersonsInHouse, &houseSize)
	u.HouseSize = telemetry.HouseSize(houseSize)
	return u, err
}

func scanSensor(row scanner) (telemetry.Sensor, error) {
	var s telemetry.Sensor
	var location string
	err := row.Scan(&s.SensorID, &s.CreationDate, &location, &s.UserID)
	s.Location = telemetry.Location(location)
	s.CreationDate = s.CreationDate.UTC()
	return s, err
}

func scanMeasure(row scanner) (telemetry.Measure, error) {
	var m telemetry.Measure
	var measureType string
	err := row.Scan(&m.MeasureID, &measureType, &m.CreationDate, &m.SensorID, &m.Value)
	m.Type = telemetry.MeasureType(measureType)
	m.CreationDate = m.CreationDate.UTC()
	return m, err
}

// nullable columns of a left joined user
type joinedUser struct {
	id             uuid.NullUUID
	location       sql.NullString
	personsInHouse sql.NullInt64
	houseSize      sql.NullString
}

func (j *joinedUser) dest() []interface{} {
	return []interface{}{&j.id, &j.location, &j.personsInHouse, &j.houseSize}
}

func (j *joinedUser) user() *telemetry.User {
	if !j.id.Valid {
		return nil
	}
	return &telemetry.User{
		UserID:         j.id.UUID,
		Location:       j.location.String,
		PersonsInHouse: int(j.personsInHouse.Int64),
		HouseSize:      telemetry.HouseSize(j.houseSize.String),
	}
}

// nullable columns of a left joined sensor
type joinedSensor struct {
	id           uuid.NullUUID
	creationDate sql.NullTime
	location     sql.NullString
	userID       uuid.NullUUID
}

func (j *joinedSensor) dest() []interface{} {
	return []interface{}{&j.id, &j.creationDate, &j.location, &j.userID}
}

func scanPopulatedSensor(row scanner) (telemetry.PopulatedSensor, error) {
	var s telemetry.Sensor
	var location string
	var u joinedUser
	dest := append([]interface{}{&s.SensorID, &s.CreationDate, &location, &s.UserID}, u.dest()...)
	if err := row.Scan(dest...); err != nil {
		return telemetry.PopulatedSensor{}, err
	}
	s.Location = telemetry.Location(location)
	s.CreationDate = s.CreationDate.UTC()
	return s.Populate(u.user()), nil
}

func scanPopulatedMeasure(row scanner) (telemetry.PopulatedMeasure, error) {
	var m telemetry.Measure
	var measureType string
	var s joinedSensor
	var u joinedUser
	dest := []interface{}{&m.MeasureID, &measureType, &m.CreationDate, &m.SensorID, &m.Value}
	dest = append(dest, s.dest()...)
	dest = append(dest, u.dest()...)
	if err := row.Scan(dest...); err != nil {
		return telemetry.PopulatedMeasure{}, err
	}
	m.Type = telemetry.MeasureType(measureType)
	m.CreationDate = m.CreationDate.UTC()
	var sensor *telemetry.PopulatedSensor
	if s.id.Valid {
		ps := telemetry.Sensor{
			SensorID:     s.id.UUID,
			CreationDate: s.creationDate.Time.UTC(),
			Location:     telemetry.Location(s.location.String),
			UserID:       s.userID.UUID,
		}.Populate(u.user())
		sensor = &ps
	}
	return m.Populate(sensor), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// constraintError wraps violations of not-null, unique or foreign key constraints
func constraintError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && (pqErr.Code == "23505" || pqErr.Code == "23502" || pqErr.Code == "23503") {
		return fmt.Errorf("constraint violation: %s: %w", pqErr.Message, err)
	}
	return err
}

// queryList runs query and scans every row with scan
func queryList[T any](ctx context.Context, db *csql.DB, query string, params []interface{}, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, rows.Err()
}

// update reads the record with id for update, lets apply modify it and writes it back
func update[T any](ctx context.Context, db *csql.DB, lockQuery string, id uuid.UUID, scan func(scanner) (T, error),
	apply func(*T), write func(*sql.Tx, T) error) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	record, err := scan(tx.QueryRowContext(ctx, lockQuery, id))
	if err != nil {
		tx.Rollback()
		return zero, notFound(err)
	}
	apply(&record)
	if err = write(tx, record); err != nil {
		tx.Rollback()
		return zero, constraintError(err)
	}
	return record, tx.Commit()
}

// CreateUser stores user under a new identity
func (p *Postgres) CreateUser(ctx context.Context, user telemetry.User) (telemetry.User, error) {
	user.UserID = uuid.New()
	_, err := p.db.ExecContext(ctx, p.q.insertUser, user.UserID, user.Location, user.PersonsInHouse, string(user.HouseSize))
	if err != nil {
		return telemetry.User{}, constraintError(err)
	}
	return user, nil
}

// User returns the user with the given id
func (p *Postgres) User(ctx context.Context, id uuid.UUID) (telemetry.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, p.q.readUser, id))
	return u, notFound(err)
}

// Users returns all users matching filters, in insertion order
func (p *Postgres) Users(ctx context.Context, filters ...Filter) ([]telemetry.User, error) {
	where, params, ok, err := whereClause(userColumns, filters)
	if err != nil || !ok {
		return []telemetry.User{}, err
	}
	return queryList(ctx, p.db, p.q.listUsers+where+"ORDER BY serial;", params, scanUser)
}

// UpdateUser merges patch into the user with the given id
func (p *Postgres) UpdateUser(ctx context.Context, id uuid.UUID, patch telemetry.UserPatch) (telemetry.User, error) {
	return update(ctx, p.db, p.q.lockUser, id, scanUser, patch.Apply, func(tx *sql.Tx, u telemetry.User) error {
		_, err := tx.ExecContext(ctx, p.q.updateUser, u.UserID, u.Location, u.PersonsInHouse, string(u.HouseSize))
		return err
	})
}

// DeleteUser removes the user with the given id. Sensors referring to it are kept.
func (p *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.ExecContext(ctx, p.q.deleteUser, id)
	return err
}

// CreateSensor stores sensor under a new identity. A zero creation date is set to now.
func (p *Postgres) CreateSensor(ctx context.Context, sensor telemetry.Sensor) (telemetry.Sensor, error) {
	sensor.SensorID = uuid.New()
	if sensor.CreationDate.IsZero() {
		sensor.CreationDate = p.now()
	}
	sensor.CreationDate = telemetry.Timestamp(sensor.CreationDate)
	_, err := p.db.ExecContext(ctx, p.q.insertSensor, sensor.SensorID, sensor.CreationDate, string(sensor.Location), sensor.UserID)
	if err != nil {
		return telemetry.Sensor{}, constraintError(err)
	}
	return sensor, nil
}

// Sensor returns the sensor with the given id
func (p *Postgres) Sensor(ctx context.Context, id uuid.UUID) (telemetry.Sensor, error) {
	s, err := scanSensor(p.db.QueryRowContext(ctx, p.q.readSensor, id))
	return s, notFound(err)
}

// Sensors returns all sensors matching filters, in insertion order
func (p *Postgres) Sensors(ctx context.Context, filters ...Filter) ([]telemetry.Sensor, error) {
	where, params, ok, err := whereClause(sensorColumns, filters)
	if err != nil || !ok {
		return []telemetry.Sensor{}, err
	}
	return queryList(ctx, p.db, p.q.listSensors+where+"ORDER BY serial;", params, scanSensor)
}

// UpdateSensor merges patch into the sensor with the given id
func (p *Postgres) UpdateSensor(ctx context.Context, id uuid.UUID, patch telemetry.SensorPatch) (telemetry.Sensor, error) {
	return update(ctx, p.db, p.q.lockSensor, id, scanSensor, patch.Apply, func(tx *sql.Tx, s telemetry.Sensor) error {
		_, err := tx.ExecContext(ctx, p.q.updateSensor, s.SensorID, s.CreationDate, string(s.Location), s.UserID)
		return err
	})
}

// DeleteSensor removes the sensor with the given id. Measures referring to it are kept.
func (p *Postgres) DeleteSensor(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.ExecContext(ctx, p.q.deleteSensor, id)
	return err
}

// PopulatedSensor returns the sensor with the given id and its user
func (p *Postgres) PopulatedSensor(ctx context.Context, id uuid.UUID) (telemetry.PopulatedSensor, error) {
	s, err := scanPopulatedSensor(p.db.QueryRowContext(ctx, p.q.populatedSensors+"WHERE s.sensor_id = $1;", id))
	return s, notFound(err)
}

// PopulatedSensors returns all sensors with their users, in insertion order
func (p *Postgres) PopulatedSensors(ctx context.Context) ([]telemetry.PopulatedSensor, error) {
	return queryList(ctx, p.db, p.q.populatedSensors+"ORDER BY s.serial;", nil, scanPopulatedSensor)
}

// CreateMeasure stores measure under a new identity. A zero creation date is set to now.
func (p *Postgres) CreateMeasure(ctx context.Context, measure telemetry.Measure) (telemetry.Measure, error) {
	measure.MeasureID = uuid.New()
	if measure.CreationDate.IsZero() {
		measure.CreationDate = p.now()
	}
	measure.CreationDate = telemetry.Timestamp(measure.CreationDate)
	_, err := p.db.ExecContext(ctx, p.q.insertMeasure,
		measure.MeasureID, string(measure.Type), measure.CreationDate, measure.SensorID, measure.Value)
	if err != nil {
		return telemetry.Measure{}, constraintError(err)
	}
	return measure, nil
}

// Measure returns the measure with the given id
func (p *Postgres) Measure(ctx context.Context, id uuid.UUID) (telemetry.Measure, error) {
	m, err := scanMeasure(p.db.QueryRowContext(ctx, p.q.readMeasure, id))
	return m, notFound(err)
}

// Measures returns all measures matching filters, in insertion order
func (p *Postgres) Measures(ctx context.Context, filters ...Filter) ([]telemetry.Measure, error) {
	where, params, ok, err := whereClause(measureColumns, filters)
	if err != nil || !ok {
		return []telemetry.Measure{}, err
	}
	return queryList(ctx, p.db, p.q.listMeasures+where+"ORDER BY serial;", params, scanMeasure)
}

// UpdateMeasure merges patch into the measure with the given id
func (p *Postgres) UpdateMeasure(ctx context.Context, id uuid.UUID, patch telemetry.MeasurePatch) (telemetry.Measure, error) {
	return update(ctx, p.db, p.q.lockMeasure, id, scanMeasure, patch.Apply, func(tx *sql.Tx, m telemetry.Measure) error {
		_, err := tx.ExecContext(ctx, p.q.updateMeasure, m.MeasureID, string(m.Type), m.CreationDate, m.SensorID, m.Value)
		return err
	})
}

// DeleteMeasure removes the measure with the given id
func (p *Postgres) DeleteMeasure(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.ExecContext(ctx, p.q.deleteMeasure, id)
	return err
}

// PopulatedMeasure returns the measure with the given id, its sensor and the sensor's user
func (p *Postgres) PopulatedMeasure(ctx context.Context, id uuid.UUID) (telemetry.PopulatedMeasure, error) {
	m, err := scanPopulatedMeasure(p.db.QueryRowContext(ctx, p.q.populatedMeasures+"WHERE m.measure_id = $1;", id))
	return m, notFound(err)
}

// PopulatedMeasures returns all measures populated two levels deep, in insertion order
func (p *Postgres) PopulatedMeasures(ctx context.Context) ([]telemetry.PopulatedMeasure, error) {
	return queryList(ctx, p.db, p.q.populatedMeasures+"ORDER BY m.serial;", nil, scanPopulatedMeasure)
}

// RecentMeasures implements Store.RecentMeasures
func (p *Postgres) RecentMeasures(ctx context.Context, limit int) ([]telemetry.PopulatedMeasure, error) {
	return queryList(ctx, p.db, p.q.recentMeasures, []interface{}{limit}, scanPopulatedMeasure)
}

// StatsByType implements Store.StatsByType
func (p *Postgres) StatsByType(ctx context.Context) ([]telemetry.TypeStats, error) {
	return queryList(ctx, p.db, p.q.statsByType, nil, func(row scanner) (telemetry.TypeStats, error) {
		var s telemetry.TypeStats
		var measureType string
		err := row.Scan(&measureType, &s.Count, &s.AvgValue, &s.MinValue, &s.MaxValue)
		s.Type = telemetry.MeasureType(measureType)
		return s, err
	})
}

// Counts implements Store.Counts
func (p *Postgres) Counts(ctx context.Context) (telemetry.Counts, error) {
	var c telemetry.Counts
	err := p.db.QueryRowContext(ctx, p.q.counts).Scan(&c.Users, &c.Sensors, &c.Measures)
	return c, err
}

// SensorsByLocation implements Store.SensorsByLocation
func (p *Postgres) SensorsByLocation(ctx context.Context) ([]telemetry.LocationCount, error) {
	res, err := queryList(ctx, p.db, p.q.sensorsByLocation, nil, func(row scanner) (telemetry.LocationCount, error) {
		var c telemetry.LocationCount
		var location string
		err := row.Scan(&location, &c.Count)
		c.Location = telemetry.Location(location)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	rank := func(l telemetry.Location) int {
		for i, v := range telemetry.Locations {
			if v == l {
				return i
			}
		}
		return len(telemetry.Locations)
	}
	sort.SliceStable(res, func(i, j int) bool { return rank(res[i].Location) < rank(res[j].Location) })
	return res, nil
}
