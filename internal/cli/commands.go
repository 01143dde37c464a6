package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/ranch/internal/domain/models"
)

const dateLayout = "2006-01-02"

func reconcileCmd(open runtimeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Finalize every scheduled sale whose departure date has arrived",
		Long: `Run one reconciliation pass now, the same pass the server runs daily.

The store is pinged with backoff first; the pass is recorded like a scheduled one.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, rt *Runtime) error {
			n, err := rt.Reconciler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d ventas finalizadas\n", color.New(color.FgGreen).Sprint("✓"), n)
			return nil
		}),
	}
}

func salesCmd(open runtimeFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ventas",
		Aliases: []string{"sales"},
		Short:   "Inspect and export sales",
	}
	cmd.AddCommand(salesListCmd(open))
	cmd.AddCommand(salesSummaryCmd(open))
	cmd.AddCommand(salesExportCmd(open))
	return cmd
}

func salesListCmd(open runtimeFunc) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sales, finalizing due ones first",
		Long: `List sales with their lots.

Examples:
  ranchctl ventas list
  ranchctl ventas list --estado Programada`,
		Args: cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, rt *Runtime) error {
			details, err := rt.Sales.ListSales(cmd.Context(), models.SaleStatus(status))
			if err != nil {
				return err
			}
			if len(details) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No hay ventas.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFOLIO\tSALIDA\tTIPO\tESTADO\tLOTES")
			for _, d := range details {
				manifests := make([]string, 0, len(d.Lots))
				for _, lot := range d.Lots {
					manifests = append(manifests, fmt.Sprint(lot.Manifest))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Folio, formatDate(d.DepartureDate, rt.Location), d.Type, colorStatus(d.Status), strings.Join(manifests, ","))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&status, "estado", "", "filter by status (Programada, Completada, Cancelada)")
	return cmd
}

func salesSummaryCmd(open runtimeFunc) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "resumen",
		Short: "Summarize completed sales in a date range",
		Args:  cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, rt *Runtime) error {
			start, end, err := parseRange(from, to, rt.Location)
			if err != nil {
				return err
			}
			summary, err := rt.Reporting.Summarize(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "desde", "", "first departure date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "hasta", "", "last departure date (YYYY-MM-DD)")
	return cmd
}

func salesExportCmd(open runtimeFunc) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "exportar",
		Short: "Append completed sales to the configured Google Sheet",
		Args:  cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, rt *Runtime) error {
			start, end, err := parseRange(from, to, rt.Location)
			if err != nil {
				return err
			}
			rows, err := rt.Reporting.ExportCompletedSales(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d filas exportadas\n", color.New(color.FgGreen).Sprint("✓"), rows)
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "desde", "", "first departure date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "hasta", "", "last departure date (YYYY-MM-DD)")
	return cmd
}

func lotsCmd(open runtimeFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lotes",
		Aliases: []string{"lots"},
		Short:   "Inspect lots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "disponibles",
		Short: "List lots available for a new sale",
		Args:  cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, rt *Runtime) error {
			lots, err := rt.Sales.ListAvailableLots(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREMO\tCOMUNIDAD\tANIMALES")
			for _, lot := range lots {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", lot.ID, lot.Manifest, lot.Community, lot.Animals)
			}
			return w.Flush()
		}),
	})
	return cmd
}

func colorStatus(status models.SaleStatus) string {
	switch status {
	case models.SaleScheduled:
		return color.New(color.FgYellow).Sprint(status)
	case models.SaleCompleted:
		return color.New(color.FgHiGreen).Sprint(status)
	case models.SaleCancelled:
		return color.New(color.FgRed).Sprint(status)
	default:
		return string(status)
	}
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	if loc != nil {
		return t.In(loc).Format(dateLayout)
	}
	return t.Format(dateLayout)
}

func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(dateLayout, from, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --desde %q: expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(dateLayout, to, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --hasta %q: expected YYYY-MM-DD", to)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--hasta %s is before --desde %s", to, from)
	}
	return start, end, nil
}
