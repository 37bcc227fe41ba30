package main

import (
	"fmt"

	"github.com/skiffbot/skiff/internal/probe"
	"github.com/skiffbot/skiff/internal/sysinfo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe local services and host health once",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			prober := probe.NewProber(probe.ProberOpts{})
			for _, st := range prober.Check() {
				mark := "up"
				if !st.Running {
					mark = "DOWN"
				}
				fmt.Fprintf(out, "%-12s %s\n", st.Name, mark)
			}

			stats, err := sysinfo.Collect()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cpu  %.1f%%\n", stats.CPUPercent)
			fmt.Fprintf(out, "mem  %.1f%%\n", stats.MemPercent)
			fmt.Fprintf(out, "disk %.1f%% (%s / %s)\n",
				stats.DiskPercent,
				sysinfo.FormatBytes(stats.DiskUsed),
				sysinfo.FormatBytes(stats.DiskTotal))
			if stats.DiskWarning {
				fmt.Fprintln(out, "warning: disk almost full")
			}
			return nil
		},
	}
}
