/*
Package telemetry holds the home telemetry domain model

There are three entities. A User describes a household, a Sensor is installed in one
room of a user's home, and a Measure is a single reading taken by a sensor:

	User
	{
		"_id": UUID,
		"location": STRING,
		"personsInHouse": INTEGER > 0,
		"houseSize": "small" | "medium" | "big"
	}

	Sensor
	{
		"_id": UUID,
		"creationDate": TIMESTAMP,
		"location": "bedroom" | "livingroom" | "bathroom" | "entrance",
		"userID": UUID
	}

	Measure
	{
		"_id": UUID,
		"type": "temperature" | "humidity" | "airPollution",
		"creationDate": TIMESTAMP,
		"sensorID": UUID,
		"value": NUMBER
	}

The value of a measure is in degrees Celsius for temperature, in percent for humidity
and an air quality index for airPollution.

References are plain identifiers. Deleting a user does not delete its sensors and
deleting a sensor does not delete its measures. When references are expanded for
reading (see PopulatedSensor and PopulatedMeasure), a reference to a deleted record
expands to null.
*/
package telemetry
