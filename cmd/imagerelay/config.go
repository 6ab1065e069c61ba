package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/imagerelay/internal/app"
	"github.com/mattjoyce/imagerelay/internal/config"
	"github.com/mattjoyce/imagerelay/internal/doctor"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and pin configuration",
	}
	cmd.AddCommand(c.configCheckCmd())
	cmd.AddCommand(c.configLockCmd())
	return cmd
}

func (c *cli) configCheckCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.resolveConfigPath(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(cmd.Context(), path, c.newGetter)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			result := doctor.New(cfg, path).Validate()
			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := doctor.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, data)
			} else {
				fmt.Fprint(out, doctor.FormatHuman(result))
			}

			if !result.Valid {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the report as JSON")
	return cmd
}

func (c *cli) configLockCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Record the BLAKE3 hash of the config file in .checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.resolveConfigPath(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if path == "" {
				return errors.New("no config file to lock; pass --config")
			}

			report, err := config.LockConfig(path, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "Would write %s\n", report.ChecksumPath)
			} else {
				fmt.Fprintf(out, "Wrote %s\n", report.ChecksumPath)
			}
			fmt.Fprintf(out, "  %s  %s\n", report.Hash, report.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the hash without writing .checksums")
	return cmd
}
