package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var restoreYes bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
	Long: `Automatic backups are taken before every change made through a tool and
pruned to the newest auto_backup_retention. Manual backups are kept until you
delete them.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.svc.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTAKEN\tKIND\tCOMMENT")
		for _, b := range backups {
			kind := "manual"
			if b.IsAuto {
				kind = "auto"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", b.ID, b.Timestamp.Local().Format(time.DateTime), kind, b.Comment)
		}
		return w.Flush()
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [comment]",
	Short: "Take a manual backup",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.svc.CreateBackup(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup %d created: %s\n", b.ID, b.Comment)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a backup (the current state is backed up first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid backup id %q", args[0])
		}
		if !restoreYes {
			return fmt.Errorf("restoring replaces all current data; run again with --yes to confirm")
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.svc.InvokeTool(cmd.Context(), "", "restore_backup", map[string]interface{}{
			"backup_id": id,
			"confirm":   true,
		})
		return printResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	backupRestoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "confirm the restore")
	backupCmd.AddCommand(backupListCmd, backupCreateCmd, backupRestoreCmd)
}
