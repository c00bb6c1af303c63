package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ukydev/moto-fleet/internal/automation"
	"github.com/ukydev/moto-fleet/internal/exchange"
	"github.com/ukydev/moto-fleet/internal/models"
)

var errNotConfirmed = errors.New("import overwrites all fleet data; pass --yes to confirm")

func newFleetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleets",
		Short: "List or register tenants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			fleets, err := m.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, f := range fleets {
				fmt.Fprintf(tw, "%s\t%s\n", f.ID, f.Name)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Register a tenant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			info, err := m.Add(ctx, models.FleetInfo{Name: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", info.Name, info.ID)
			return nil
		},
	})
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var fleetID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a tenant backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			f, err := m.Fleet(ctx, fleetID)
			if err != nil {
				return err
			}
			now := f.Now()
			env := exchange.Export(f.Info(), f.Snapshot(), now)

			if out == "-" {
				return exchange.Encode(cmd.OutOrStdout(), env)
			}
			if out == "" {
				out = exchange.FileName(f.Info(), now)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := exchange.Encode(file, env); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet", "main", "Tenant id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout (default {fleet}-backup-{date}"+exchange.Extension+")")
	return cmd
}

// readBackup decodes a backup file, - meaning stdin.
func readBackup(cmd *cobra.Command, path string) (exchange.Envelope, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return exchange.Envelope{}, err
		}
		defer file.Close()
		r = file
	}
	return exchange.Decode(r)
}

func newImportCmd(a *app) *cobra.Command {
	var fleetID, in string
	var yes bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace a tenant's records with a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			env, err := readBackup(cmd, in)
			if err != nil {
				return err
			}

			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			f, err := m.Fleet(ctx, fleetID)
			if err != nil {
				return err
			}
			if err := exchange.Import(ctx, f, env); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported backup of %s taken %s\n", env.FleetName, env.Timestamp.Format(models.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet", "main", "Tenant id")
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Backup file, - for stdin")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm overwriting all tenant data")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	var fleetID, in string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge records from a backup that the tenant does not have yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := readBackup(cmd, in)
			if err != nil {
				return err
			}

			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			f, err := m.Fleet(ctx, fleetID)
			if err != nil {
				return err
			}
			counts, err := exchange.Sync(ctx, f, env)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			w := cmd.OutOrStdout()
			for _, k := range keys {
				if counts[k] > 0 {
					fmt.Fprintf(w, "%s: +%d\n", k, counts[k])
				}
			}
			fmt.Fprintf(w, "Added %d records\n", counts.Total())
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet", "main", "Tenant id")
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Backup file, - for stdin")
	return cmd
}

func newCheckArrearsCmd(a *app) *cobra.Command {
	var fleetID string
	var queue bool
	cmd := &cobra.Command{
		Use:   "check-arrears",
		Short: "List drivers whose payments fall below the weekly target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := a.context(cmd)
			defer cancel()

			f, err := m.Fleet(ctx, fleetID)
			if err != nil {
				return err
			}

			var found []models.Notification
			if queue {
				found, err = f.RunAutomation(ctx)
				if err != nil {
					return err
				}
			} else {
				p := f.Snapshot()
				found = automation.CheckArrears(p.Drivers, p.Payments, f.WeeklyTarget(), f.Now(), nil)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DRIVER\tNAME\tDUE")
			for _, n := range found {
				fmt.Fprintf(tw, "%s\t%s\tR%.2f\n", n.DriverID, n.DriverName, n.AmountDue)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if queue {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d notifications\n", len(found))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet", "main", "Tenant id")
	cmd.Flags().Float64Var(&a.target, "target", 0, "Weekly target override (default WEEKLY_TARGET)")
	cmd.Flags().BoolVar(&queue, "queue", false, "Queue the reminders on the tenant instead of only listing them")
	return cmd
}
