package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/homesense/dashboard"
)

func newDashboardCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"d"},
		Short:   "Show the dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dashboard.Load(cmd.Context(), o.client())
			if err != nil {
				return err
			}
			printDashboard(cmd.OutOrStdout(), dashboard.Build(d))
			return nil
		},
	}
}

func printDashboard(out io.Writer, v dashboard.View) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, c := range v.Cards {
		fmt.Fprintf(w, "%s:\t%s\n", c.Title, c.Value)
	}

	fmt.Fprintln(w, "\nTemperature Trends")
	for _, p := range v.Temperature {
		fmt.Fprintf(w, "  %s\t%g°C\t%s\n", p.Date.Format("Jan 02"), p.Value, p.Location)
	}

	fmt.Fprintln(w, "\nAverage Humidity")
	if v.Humidity.HasData {
		fmt.Fprintf(w, "  %d%%\t%s\n", v.Humidity.Average, v.Humidity.Status)
	} else {
		fmt.Fprintln(w, "  no data")
	}

	fmt.Fprintln(w, "\nAir Quality Index")
	if v.AirQuality.HasData {
		fmt.Fprintf(w, "  AQI: %d\t%s\n", v.AirQuality.Average, v.AirQuality.Level)
		for _, s := range v.AirQuality.Slices {
			fmt.Fprintf(w, "  %s\t%d readings\n", s.Level, s.Count)
		}
	} else {
		fmt.Fprintln(w, "  no data")
	}

	fmt.Fprintln(w, "\nSensors by Room")
	for _, l := range v.SensorMap {
		fmt.Fprintf(w, "  %s\t%d\n", l.Location, l.Count)
	}

	fmt.Fprintln(w, "\nRecent Activity")
	for _, item := range v.Timeline {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", item.Title, item.Value, item.Location, item.Date.Format("Jan 02, 2006 15:04"))
	}
}
