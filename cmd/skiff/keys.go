package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newKeysCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored stream destination keys",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")

	cmd.AddCommand(newKeysListCmd(&configPath))
	cmd.AddCommand(newKeysAddCmd(&configPath))
	cmd.AddCommand(newKeysDelCmd(&configPath))
	return cmd
}

func newKeysListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys (suffixes masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			all, err := store.All()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No keys stored.")
				return nil
			}
			for _, k := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", k.Name, maskKey(k.Suffix))
			}
			return nil
		},
	}
}

func newKeysAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [suffix]",
		Short: "Add or replace a named key",
		Long:  "Stores a stream key suffix under a name. When the suffix is omitted it is read from the terminal without echo.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := openStore(*configPath)
			if err != nil {
				return err
			}

			suffix := ""
			if len(args) == 2 {
				suffix = args[1]
			} else {
				suffix, err = promptSecret(cmd, "Key suffix: ")
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(suffix) == "" {
				return fmt.Errorf("key suffix is empty")
			}

			if err := store.Add(args[0], suffix); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored key %q.\n", args[0])
			return nil
		},
	}
}

func newKeysDelCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "del <name>",
		Short: "Delete a named key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			removed, err := store.Delete(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no key named %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %q.\n", args[0])
			return nil
		},
	}
}

// promptSecret reads a line without echo when stdin is a terminal, and
// falls back to a plain line read when it is piped.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// maskKey hides most of a stored suffix in CLI output.
func maskKey(suffix string) string {
	if len(suffix) <= 4 {
		return "****"
	}
	return suffix[:2] + "***" + suffix[len(suffix)-2:]
}
