package schema_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/core/schema"
	"github.com/relabs-tech/homesense/telemetry"
)

const (
	ref1 = `{ "type" : "string" ,
		      "$id" : "http://some_host.com/string.json"}`
	ref2 = `{ "$id" : "http://some_host.com/maxlength.json",
	 		  "maxLength" : 5 }`

	topLevel1 = `
	{ "$id" : "http://some_host.com/top1.json",
	  "allOf" : [
		{ "$ref" : "http://some_host.com/string.json" },
		{ "$ref" : "http://some_host.com/maxlength.json" }
		]
	}`
	topLevel2 = `
	{ "$id" : "http://some_host.com/top2.json",
	  "allOf" : [
 		{ "$ref" : "http://some_host.com/string.json" },
 		{ "type": "string", "minlength": 3 }
	  ]
	}`
)

func TestValidateBytes(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{ref1, ref2})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID1 := "http://some_host.com/top1.json"
	schemaID2 := "http://some_host.com/top2.json"
	jsonShortString := `"short"`
	jsonLongString := `"a very long string"`

	// Valid json
	if err := v.ValidateBytes([]byte(jsonShortString), schemaID1); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", jsonShortString, schemaID1, err)
	}

	// Invalid json
	if err := v.ValidateBytes([]byte(jsonLongString), schemaID1); err == nil {
		t.Fatalf("%s is expected to be invalid with schema %s", jsonLongString, schemaID1)
	}

	// Valid json
	if err := v.ValidateBytes([]byte(jsonLongString), schemaID2); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", jsonLongString, schemaID2, err)
	}
}

func TestHasSchema(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{ref1, ref2})
	require.NoError(t, err)

	assert.True(t, v.HasSchema("http://some_host.com/top1.json"))
	assert.True(t, v.HasSchema("http://some_host.com/top2.json"))
	assert.False(t, v.HasSchema("http://some_host.com/unknownschema.json"))
}

func TestNewValidatorFromFS_WithoutRefs(t *testing.T) {
	fsys := fstest.MapFS{
		"plain.json": &fstest.MapFile{Data: []byte(`{"$id":"http://some_host.com/plain.json","type":"integer"}`)},
		"README.md":  &fstest.MapFile{Data: []byte(`ignored`)},
	}
	v, err := schema.NewValidatorFromFS(fsys)
	require.NoError(t, err)
	assert.NoError(t, v.ValidateBytes([]byte(`12`), "http://some_host.com/plain.json"))
	assert.Error(t, v.ValidateBytes([]byte(`"12"`), "http://some_host.com/plain.json"))
}

func TestTelemetrySchemas(t *testing.T) {
	v, err := schema.NewValidatorFromFS(telemetry.Schemas())
	require.NoError(t, err)

	for _, id := range telemetry.SchemaIDs {
		assert.True(t, v.HasSchema(id), id)
	}

	sensorID := "0b5c3c5e-8f3c-4d3b-9a7e-1f2d3c4b5a69"

	valid := []struct{ schemaID, doc string }{
		{telemetry.UserSchemaID, `{"location":"Paris","personsInHouse":2,"houseSize":"small"}`},
		{telemetry.SensorSchemaID, `{"location":"bedroom","userID":"` + sensorID + `"}`},
		{telemetry.SensorSchemaID, `{"location":"entrance","userID":"` + sensorID + `","creationDate":"2024-03-01T12:00:00Z"}`},
		{telemetry.MeasureSchemaID, `{"type":"temperature","value":21.5,"sensorID":"` + sensorID + `"}`},
		{telemetry.MeasurePatchSchemaID, `{"value":22}`},
		{telemetry.UserPatchSchemaID, `{}`},
	}
	for _, c := range valid {
		assert.NoError(t, v.ValidateBytes([]byte(c.doc), c.schemaID), c.doc)
	}

	invalid := []struct{ schemaID, doc string }{
		{telemetry.UserSchemaID, `{"location":"Paris","personsInHouse":0,"houseSize":"small"}`},
		{telemetry.UserSchemaID, `{"location":"Paris","personsInHouse":2.5,"houseSize":"small"}`},
		{telemetry.UserSchemaID, `{"location":"Paris","personsInHouse":2,"houseSize":"huge"}`},
		{telemetry.SensorSchemaID, `{"location":"kitchen","userID":"` + sensorID + `"}`},
		{telemetry.SensorSchemaID, `{"location":"bedroom"}`},
		{telemetry.SensorSchemaID, `{"location":"bedroom","userID":"not-an-id"}`},
		{telemetry.MeasureSchemaID, `{"type":"invalidType","value":21.5,"sensorID":"` + sensorID + `"}`},
		{telemetry.MeasureSchemaID, `{"type":"temperature","value":"hot","sensorID":"` + sensorID + `"}`},
		{telemetry.MeasurePatchSchemaID, `{"type":"invalidType"}`},
	}
	for _, c := range invalid {
		assert.Error(t, v.ValidateBytes([]byte(c.doc), c.schemaID), c.doc)
	}
}

func TestValidationError(t *testing.T) {
	v, err := schema.NewValidatorFromFS(telemetry.Schemas())
	require.NoError(t, err)

	err = v.ValidateBytes([]byte(`{"location":"Paris","personsInHouse":0,"houseSize":"huge"}`), telemetry.UserSchemaID)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, telemetry.UserSchemaID, verr.SchemaID)
	assert.Len(t, verr.Problems, 2)

	err = v.ValidateBytes([]byte(`{"location":`), telemetry.UserSchemaID)
	assert.ErrorAs(t, err, &verr)

	_, err = schema.NewValidator([]string{topLevel1, topLevel1}, []string{ref1, ref2})
	assert.Error(t, err, "duplicate $id accepted")
}
