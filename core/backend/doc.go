/*
Package backend implements the homesense REST backend

A backend manages users, their sensors and the sensors' measures in a store.Store and
provides a RESTful-API for them. References are resolved when reading: listing sensors
returns every sensor with its user, listing measures returns every measure with its sensor
and the sensor's user. Deleting a record never deletes the records referring to it, a
reference to a deleted record reads as null.

The backend creates the following REST routes:

	GET    /api/users
	POST   /api/users
	GET    /api/users/{id}
	PUT    /api/users/{id}
	DELETE /api/users/{id}

	GET    /api/sensors
	POST   /api/sensors
	GET    /api/sensors/{id}
	PUT    /api/sensors/{id}
	DELETE /api/sensors/{id}
	GET    /api/sensors/user/{userId}
	GET    /api/sensors/stats/by-location

	GET    /api/measures
	POST   /api/measures
	GET    /api/measures/{id}
	PUT    /api/measures/{id}
	DELETE /api/measures/{id}
	GET    /api/measures/sensor/{sensorId}
	GET    /api/measures/type/{type}
	GET    /api/measures/stats/by-type
	GET    /api/measures/stats/recent?limit={n}
	GET    /api/measures/export

	GET    /api/stats/counts
	GET    /version

Create and update payloads are validated against the JSON schemas of the telemetry
package. A failed validation, an unknown reference or a malformed identifier is answered
with 400 and a body {"message": "..."}. All GET routes return an Etag and honor If-None-Match.

# Change notifications

If the builder has a Notifier, it is called after every successful create, update and
delete with the resource name ("user", "sensor" or "measure"), the operation and the JSON
of the record. For deletes the payload only contains the identifier.
*/
package backend
