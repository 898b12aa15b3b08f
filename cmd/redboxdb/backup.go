package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/redboxdb"
)

func newBackupCmd() *cobra.Command {
	var (
		dim      int
		capacity int
	)

	cmd := &cobra.Command{
		Use:   "backup <db-file> <snapshot-file>",
		Short: "Write a compressed snapshot of a database's live rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := redboxdb.Open(args[0], dim, capacity)
			if err != nil {
				return err
			}
			defer db.Close()

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}

			if err := db.Backup(out); err != nil {
				out.Close()
				os.Remove(args[1])
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			fmt.Printf("backed up %d live rows to %s\n", db.Live(), args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension of the database (required)")
	cmd.Flags().IntVar(&capacity, "capacity", 100000, "capacity used if the database does not exist yet")
	cmd.MarkFlagRequired("dim") //nolint:errcheck

	return cmd
}

func newRestoreCmd() *cobra.Command {
	var capacity int

	cmd := &cobra.Command{
		Use:   "restore <snapshot-file> <db-file>",
		Short: "Create a fresh database from a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			db, err := redboxdb.Restore(in, args[1], capacity)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Printf("restored %d rows into %s\n", db.Count(), args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&capacity, "capacity", 100000, "row capacity of the restored database")

	return cmd
}
