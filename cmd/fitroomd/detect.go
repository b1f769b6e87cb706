package main

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fitroom/internal/backend"
)

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the compute backends this host offers, most preferred first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := backend.NewDetector(backend.WithLogger(a.log))
			kinds := d.Detect(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BACKEND\tDESCRIPTION\tPRECISION\tMAX EDGE")
			for _, k := range kinds {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", k, k.Description(), k.Precision(), k.MaxEdge())
			}
			return tw.Flush()
		},
	}
}
