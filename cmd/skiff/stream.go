package main

import (
	"fmt"

	"github.com/skiffbot/skiff/internal/dispatch"
	"github.com/spf13/cobra"
)

func newStreamCmd() *cobra.Command {
	var (
		configPath string
		keyName    string
	)

	cmd := &cobra.Command{
		Use:   "stream <path>",
		Short: "Dispatch a streaming job for an index path",
		Long:  "Resolves the file at the given index path and submits a streaming job to the next runner in the pool.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, store, err := openStore(configPath)
			if err != nil {
				return err
			}
			dispatcher, _, err := buildDispatcher(cfg, gormDB)
			if err != nil {
				return err
			}

			rtmp, err := resolveRTMP(cfg.Stream.BaseURL, store, keyName)
			if err != nil {
				return err
			}

			res, err := dispatcher.Dispatch(cmd.Context(), dispatch.Request{
				Mode:       dispatch.ModeStandard,
				Path:       args[0],
				RTMPURL:    rtmp,
				PublicBase: publicBase(cfg),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.OK {
				return fmt.Errorf("dispatch was not accepted")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVarP(&keyName, "key", "k", "", "named stream key (default: first stored key)")
	return cmd
}
