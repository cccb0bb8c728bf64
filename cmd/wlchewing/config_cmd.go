package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wlchewing/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if forceInit {
			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return err
			}
		} else {
			_, created, err := config.LoadOrCreate(path)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if _, err := config.NewLoader(path).Load(); err != nil {
			var verrs config.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					fmt.Fprintln(cmd.ErrOrStderr(), "  "+e.Error())
				}
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema configuration files are checked against",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(config.Schema())
		return err
	},
}

func configPath() string {
	if flags.configPath != "" {
		return flags.configPath
	}
	return config.ConfigPath()
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configPathCmd, configCheckCmd, configSchemaCmd)
	rootCmd.AddCommand(configCmd)
}
