package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/homesense/admin"
)

func parseView(kind string) (admin.View, error) {
	for _, v := range admin.Views {
		if string(v) == kind || string(v) == kind+"s" {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q, expected one of users, sensors, measures", kind)
}

func newListCmd(o *options) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:       "list users|sensors|measures",
		Aliases:   []string{"ls"},
		Short:     "List users, sensors or measures, one page at a time",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"users", "sensors", "measures"},
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := parseView(args[0])
			if err != nil {
				return err
			}
			s := admin.NewSession(o.client())
			if err := s.Show(cmd.Context(), view); err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), s, view, page)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "the page to show")
	return cmd
}

func printPage(out io.Writer, s *admin.Session, view admin.View, page int) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	var pages int
	switch view {
	case admin.ViewUsers:
		pages = s.Users.Pages()
		fmt.Fprintln(w, "ID\tLOCATION\tPERSONS IN HOUSE\tHOUSE SIZE")
		for _, u := range s.Users.Page(page) {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", u.UserID, u.Location, u.PersonsInHouse, u.HouseSize)
		}
	case admin.ViewSensors:
		pages = s.Sensors.Pages()
		fmt.Fprintln(w, "ID\tLOCATION\tUSER\tCREATED")
		for _, sensor := range s.Sensors.Page(page) {
			user := "unknown"
			if sensor.User != nil {
				user = sensor.User.Location
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sensor.SensorID, sensor.Location, user, sensor.CreationDate.Format("2006-01-02 15:04"))
		}
	case admin.ViewMeasures:
		pages = s.Measures.Pages()
		fmt.Fprintln(w, "ID\tTYPE\tVALUE\tSENSOR\tCREATED")
		for _, m := range s.Measures.Page(page) {
			location := string(m.Location())
			if location == "" {
				location = "unknown"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.MeasureID, m.Type, m.Type.FormatValue(m.Value), location, m.CreationDate.Format("2006-01-02 15:04"))
		}
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d\n", page, pages)
}

func newDeleteCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete user|sensor|measure <id>",
		Short: "Delete a user, sensor or measure after confirmation",
		Long: `Delete a user, sensor or measure. Records referring to the deleted one are kept,
their reference reads as unknown afterwards.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := parseView(args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid identifier %q", args[1])
			}

			in := bufio.NewReader(cmd.InOrStdin())
			confirm := func(prompt string) bool {
				if yes {
					return true
				}
				fmt.Fprint(cmd.OutOrStdout(), prompt+" [y/N] ")
				answer, _ := in.ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				return answer == "y" || answer == "yes"
			}

			s := admin.NewSession(o.client())
			var deleted bool
			switch view {
			case admin.ViewUsers:
				deleted, err = s.DeleteUser(cmd.Context(), id, confirm)
			case admin.ViewSensors:
				deleted, err = s.DeleteSensor(cmd.Context(), id, confirm)
			case admin.ViewMeasures:
				deleted, err = s.DeleteMeasure(cmd.Context(), id, confirm)
			}
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
