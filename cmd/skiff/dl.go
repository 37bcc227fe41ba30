package main

import (
	"fmt"

	"github.com/skiffbot/skiff/internal/aria2"
	"github.com/spf13/cobra"
)

func newDLCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dl <url>",
		Short: "Queue a download on the aria2 daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := openStore(configPath)
			if err != nil {
				return err
			}
			client, err := aria2.NewClient(aria2.ClientOpts{
				RPCURL: cfg.Aria2.RPCURL,
				Secret: cfg.Aria2.Secret,
			})
			if err != nil {
				return err
			}
			gid, err := client.AddURI(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued download %s\n", gid)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
