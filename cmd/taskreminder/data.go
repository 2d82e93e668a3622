package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"task-reminder/internal/repository"
)

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all tasks to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			tasks := a.store.List()
			if err := repository.ExportJSON(cmd.Context(), tasks, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tasks to %s\n", len(tasks), args[0])
			return nil
		},
	}
}

func importCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Append tasks from a JSON file with fresh ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			tasks, err := repository.ImportJSON(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			imported, err := a.store.Import(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks\n", len(imported))
			return nil
		},
	}
}

func backupCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped backup of all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if dir == "" {
				dir = a.cfg.Storage.BackupDir
			}
			path, err := a.store.Backup(cmd.Context(), dir, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default storage.backup_dir)")
	return cmd
}
