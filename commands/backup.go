package commands

import (
	"fmt"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/config"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup-uploads",
	Short: "Copy the local uploads directory into BACKUP_DIR now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogger(cfg)
		if cfg.BackupDir == "" {
			return fmt.Errorf("BACKUP_DIR is not set")
		}

		now := time.Now()
		dest, err := storage.Backup(cfg.UploadsDir, cfg.BackupDir, now)
		if err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Uploads backed up to %s", dest)

		storage.PruneBackups(cfg.BackupDir, cfg.BackupRetention, now)
		info(cmd.OutOrStdout(), "Pruned backups older than %s", cfg.BackupRetention)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
