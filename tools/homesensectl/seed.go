package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/homesense/telemetry"
)

var seedCities = []string{"Paris", "Lyon", "Marseille", "Toulouse", "Nice", "Nantes", "Bordeaux", "Lille"}

// sampleValue returns a plausible value of a measure of type t
func sampleValue(r *rand.Rand, t telemetry.MeasureType) float64 {
	switch t {
	case telemetry.MeasureTypeTemperature:
		return float64(150+r.Intn(130)) / 10
	case telemetry.MeasureTypeHumidity:
		return float64(20 + r.Intn(60))
	}
	return float64(r.Intn(101))
}

func newSeedCmd(o *options) *cobra.Command {
	var users, sensorsPerUser, measuresPerSensor int
	var seed int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the backend with sample users, sensors and measures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := o.client()
			r := rand.New(rand.NewSource(seed))
			now := time.Now().UTC()

			var sensors, measures int
			for i := 0; i < users; i++ {
				user, err := c.CreateUser(ctx, telemetry.User{
					Location:       seedCities[r.Intn(len(seedCities))],
					PersonsInHouse: 1 + r.Intn(6),
					HouseSize:      telemetry.HouseSizes[r.Intn(len(telemetry.HouseSizes))],
				})
				if err != nil {
					return fmt.Errorf("cannot create user: %w", err)
				}
				for j := 0; j < sensorsPerUser; j++ {
					sensor, err := c.CreateSensor(ctx, telemetry.Sensor{
						Location:     telemetry.Locations[r.Intn(len(telemetry.Locations))],
						UserID:       user.UserID,
						CreationDate: now.Add(-time.Duration(30+r.Intn(300)) * 24 * time.Hour),
					})
					if err != nil {
						return fmt.Errorf("cannot create sensor: %w", err)
					}
					sensors++
					for k := 0; k < measuresPerSensor; k++ {
						t := telemetry.MeasureTypes[r.Intn(len(telemetry.MeasureTypes))]
						_, err := c.CreateMeasure(ctx, telemetry.Measure{
							Type:         t,
							SensorID:     sensor.SensorID,
							Value:        sampleValue(r, t),
							CreationDate: now.Add(-time.Duration(r.Intn(30*24*60)) * time.Minute),
						})
						if err != nil {
							return fmt.Errorf("cannot create measure: %w", err)
						}
						measures++
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d users, %d sensors, %d measures\n", users, sensors, measures)
			return nil
		},
	}
	cmd.Flags().IntVar(&users, "users", 5, "number of users")
	cmd.Flags().IntVar(&sensorsPerUser, "sensors", 3, "number of sensors per user")
	cmd.Flags().IntVar(&measuresPerSensor, "measures", 10, "number of measures per sensor")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "seed of the random values")
	return cmd
}
