package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jasondb/internal/persistence"
)

func (a *app) backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy every collection into a new backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			bm := persistence.NewBackupManager(a.storage(), a.cfg.DataDir, a.cfg.BackupDir, a.cfg.BackupInterval, a.cfg.BackupRetention)
			path, err := bm.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the available backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			names, err := persistence.ListBackups(a.cfg.BackupDir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})
	return cmd
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace collection files with the copies held by a backup",
		Long: `Replace collection files with the copies held by a backup.

Collections that are not in the backup are left alone. Stop any server using
the data directory first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			names, err := persistence.PerformRestore(cmd.Context(), a.storage(), a.cfg.BackupDir, args[0], a.cfg.DataDir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
