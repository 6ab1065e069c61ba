package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/imagerelay/internal/contentstore"
	"github.com/mattjoyce/imagerelay/internal/storage"
)

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the upload ledger",
	}
	cmd.AddCommand(c.ledgerListCmd())
	return cmd
}

func (c *cli) ledgerListCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.resolveConfigPath(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := c.loadUnvalidated(path)
			if err != nil {
				return err
			}
			if cfg.Audit.Path == "" {
				return errors.New("audit.path is not configured")
			}

			db, err := storage.OpenSQLite(cmd.Context(), cfg.Audit.Path)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			entries, err := storage.NewLedger(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No uploads recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tUSER\tMESSAGE\tSIZE\tURL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.UserID, e.MessageID, e.Width, e.Height, e.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output entries as JSON")
	return cmd
}

func (c *cli) mirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Maintain the local asset mirror",
	}
	cmd.AddCommand(c.mirrorPruneCmd())
	return cmd
}

func (c *cli) mirrorPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete mirrored files older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.resolveConfigPath(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := c.loadUnvalidated(path)
			if err != nil {
				return err
			}
			if cfg.Store.MirrorDir == "" {
				return errors.New("store.mirror_dir is not configured")
			}

			m, err := contentstore.NewMirror(cfg.Store.MirrorDir)
			if err != nil {
				return err
			}
			report, err := m.Prune(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d file(s), kept %d in %s\n", report.DeletedFiles, report.KeptFiles, m.Dir())
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of files to delete")
	return cmd
}
