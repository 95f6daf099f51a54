package csql

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/relabs-tech/homesense/core/logger"
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

var schemaName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// OpenWithSchema opens a homesense postgres database with a schema.
// The schema gets created if it does not exist yet. The password is
// appended to the data source name when not empty.
func OpenWithSchema(dataSourceName, password, schema string) *DB {
	rlog := logger.Default()
	rlog.Infoln("connecting to postgres database:", dataSourceName)
	if len(password) > 0 {
		dataSourceName += " password=" + password
	}
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		panic(err)
	}
	err = db.Ping()
	if err != nil {
		panic(err)
	}
	cdb, err := WithSchema(db, schema)
	if err != nil {
		panic(err)
	}
	return cdb
}

// WithSchema wraps an already opened database and makes sure schema exists.
// An empty schema selects "public".
func WithSchema(db *sql.DB, schema string) (*DB, error) {
	if len(schema) == 0 {
		return &DB{DB: db, Schema: "public"}, nil
	}
	if !schemaName.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name '%s'", schema)
	}
	logger.Default().Infoln("selected database schema:", schema)
	_, err := db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`)
	if err != nil {
		return nil, fmt.Errorf("cannot create schema %s: %w", schema, err)
	}
	return &DB{DB: db, Schema: schema}, nil
}

// Table returns the fully qualified name of table in the database's schema. The
// table name is quoted, "user" is a reserved word.
func (db *DB) Table(table string) string {
	return db.Schema + `."` + table + `"`
}

// ClearSchema clears all the data contained in the database's schema
// Technically this is done by dropping the schema and then recreating it
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		logger.Default().WithError(err).Errorln("clear schema error:", db.Schema)
	}
}
