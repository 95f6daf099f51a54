package telemetry

import (
	"embed"
	"io/fs"
)

//go:embed schemas
var schemaFS embed.FS

// SchemaBase is the common prefix of all telemetry schema identifiers
const SchemaBase = "https://homesense.relabs.tech/schemas/"

// JSON schema identifiers for create and update payloads
const (
	UserSchemaID         = SchemaBase + "user.json"
	UserPatchSchemaID    = SchemaBase + "user-patch.json"
	SensorSchemaID       = SchemaBase + "sensor.json"
	SensorPatchSchemaID  = SchemaBase + "sensor-patch.json"
	MeasureSchemaID      = SchemaBase + "measure.json"
	MeasurePatchSchemaID = SchemaBase + "measure-patch.json"
)

// SchemaIDs lists the identifiers of all top level schemas
var SchemaIDs = []string{
	UserSchemaID, UserPatchSchemaID,
	SensorSchemaID, SensorPatchSchemaID,
	MeasureSchemaID, MeasurePatchSchemaID,
}

// Schemas returns the embedded JSON schemas. Top level schemas are in the root
// directory, shared definitions in refs/.
func Schemas() fs.FS {
	sub, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}
	return sub
}
