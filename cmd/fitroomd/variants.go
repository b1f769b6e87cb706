package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fitroom/internal/variant"
)

func newVariantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Inspect and manage generation variants in the database",
	}

	withTracker := func(fn func(cmd *cobra.Command, t *variant.Tracker, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			t, err := variant.NewTracker(cmd.Context(), db, variant.WithLogger(a.log))
			if err != nil {
				return err
			}
			return fn(cmd, t, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every variant",
		RunE: withTracker(func(cmd *cobra.Command, t *variant.Tracker, _ []string) error {
			printVariants(cmd, t.All())
			return nil
		}),
	}
	enable := &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a variant",
		Args:  cobra.ExactArgs(1),
		RunE: withTracker(func(cmd *cobra.Command, t *variant.Tracker, args []string) error {
			v, err := t.SetEnabled(cmd.Context(), args[0], true)
			if err == nil {
				printVariants(cmd, []variant.Variant{v})
			}
			return err
		}),
	}
	disable := &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a variant",
		Args:  cobra.ExactArgs(1),
		RunE: withTracker(func(cmd *cobra.Command, t *variant.Tracker, args []string) error {
			v, err := t.SetEnabled(cmd.Context(), args[0], false)
			if err == nil {
				printVariants(cmd, []variant.Variant{v})
			}
			return err
		}),
	}
	reinstate := &cobra.Command{
		Use:     "reinstate <name>",
		Short:   "Clear a variant's blacklist",
		Example: "  fitroomd variants reinstate cloud_paid",
		Args:    cobra.ExactArgs(1),
		RunE: withTracker(func(cmd *cobra.Command, t *variant.Tracker, args []string) error {
			v, err := t.Reinstate(cmd.Context(), args[0])
			if err == nil {
				printVariants(cmd, []variant.Variant{v})
			}
			return err
		}),
	}
	cmd.AddCommand(list, enable, disable, reinstate)
	return cmd
}

func printVariants(cmd *cobra.Command, vs []variant.Variant) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY\tPAID\tCOST\tENABLED\tAVG(s)\tMAX(s)\tBLACKLISTED")
	for _, v := range vs {
		bl := "no"
		if v.Blacklisted {
			bl = "yes: " + v.BlacklistReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%.2f\t%t\t%.1f\t%.0f\t%s\n",
			v.Name, v.DisplayName, v.Paid, v.Cost, v.Enabled, v.AvgSeconds, v.MaxSeconds, bl)
	}
	_ = tw.Flush()
}
