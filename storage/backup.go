package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunDailyBackup copies srcDir into a timestamped folder under backupDir
// every day at hour:min and prunes backups older than retention.
func RunDailyBackup(ctx context.Context, srcDir, backupDir string, retention time.Duration, hour, min int) error {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		slog.Info("Next image backup scheduled", "at", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if dest, err := Backup(srcDir, backupDir, time.Now()); err != nil {
			slog.Error("Failed to back up images", "error", err)
		} else {
			slog.Info("Images backed up", "dest", dest)
		}
		PruneBackups(backupDir, retention, time.Now())
	}
}

// Backup copies srcDir to backupDir/<timestamp> and returns that path.
func Backup(srcDir, backupDir string, at time.Time) (string, error) {
	dest := filepath.Join(backupDir, at.Format("2006-01-02_15-04-05"))
	return dest, copyDir(srcDir, dest)
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			err = copyDir(srcPath, destPath)
		} else {
			err = copyFile(srcPath, destPath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// PruneBackups removes backup folders last modified before now-retention.
func PruneBackups(backupDir string, retention time.Duration, now time.Time) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		slog.Error("Failed to read backup directory", "dir", backupDir, "error", err)
		return
	}

	cutoff := now.Add(-retention)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(backupDir, entry.Name())
		info, err := os.Stat(folder)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(folder); err != nil {
			slog.Error("Failed to remove old backup", "dir", folder, "error", err)
		} else {
			slog.Info("Removed old backup", "dir", folder)
		}
	}
}
