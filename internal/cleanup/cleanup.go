// Package cleanup prunes old backups from the active cloud provider.
package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harshpatel5940/reelmark/internal/backup"
)

// Remote is the part of cloud.Manager pruning needs.
type Remote interface {
	ListBackups(ctx context.Context) ([]string, error)
	DeleteBackup(ctx context.Context, filename string) bool
}

// Plan splits backup names into the ones to keep and the ones to delete.
// Both lists are newest first.
type Plan struct {
	Keep   []string
	Delete []string
}

// BackupDate parses the date embedded in a default backup name.
func BackupDate(name string) (time.Time, bool) {
	if !backup.IsBackupName(name) {
		return time.Time{}, false
	}
	day := strings.TrimSuffix(strings.TrimPrefix(name, backup.FilenamePrefix), backup.FilenameExt)
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PlanByCount keeps the keepCount newest backups by lexicographic order.
// Names that are not default backup names are never touched.
func PlanByCount(names []string, keepCount int) Plan {
	if keepCount < 0 {
		keepCount = 0
	}
	plan := Plan{Keep: []string{}, Delete: []string{}}
	kept := 0
	for _, name := range backup.SortDescending(names) {
		if !backup.IsBackupName(name) {
			plan.Keep = append(plan.Keep, name)
			continue
		}
		if kept < keepCount {
			plan.Keep = append(plan.Keep, name)
			kept++
			continue
		}
		plan.Delete = append(plan.Delete, name)
	}
	return plan
}

// PlanByAge deletes backups whose embedded date is older than maxAge. The
// newest backup is always kept so a prune never empties the folder.
func PlanByAge(names []string, maxAge time.Duration, now time.Time) Plan {
	cutoff := now.UTC().Add(-maxAge)
	plan := Plan{Keep: []string{}, Delete: []string{}}
	newestKept := false
	for _, name := range backup.SortDescending(names) {
		day, ok := BackupDate(name)
		if !ok {
			plan.Keep = append(plan.Keep, name)
			continue
		}
		if !newestKept || !day.Before(cutoff) {
			plan.Keep = append(plan.Keep, name)
			newestKept = true
			continue
		}
		plan.Delete = append(plan.Delete, name)
	}
	return plan
}

// CleanupManager applies plans against a remote.
type CleanupManager struct {
	remote   Remote
	progress func(done, total int)
}

func NewCleanupManager(remote Remote) *CleanupManager {
	return &CleanupManager{remote: remote}
}

// OnProgress registers a callback invoked after each delete attempt.
func (cm *CleanupManager) OnProgress(fn func(done, total int)) {
	cm.progress = fn
}

// GetBackups lists the remote backups, newest first.
func (cm *CleanupManager) GetBackups(ctx context.Context) ([]string, error) {
	names, err := cm.remote.ListBackups(ctx)
	if err != nil {
		return nil, err
	}
	return backup.SortDescending(names), nil
}

// Result reports what Apply did.
type Result struct {
	Deleted []string
	Failed  []string
}

// Apply deletes every name in plan.Delete. Failures are collected, not fatal.
func (cm *CleanupManager) Apply(ctx context.Context, plan Plan) (*Result, error) {
	res := &Result{Deleted: []string{}, Failed: []string{}}
	for i, name := range plan.Delete {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if cm.remote.DeleteBackup(ctx, name) {
			res.Deleted = append(res.Deleted, name)
		} else {
			res.Failed = append(res.Failed, name)
		}
		if cm.progress != nil {
			cm.progress(i+1, len(plan.Delete))
		}
	}
	return res, nil
}

// Describe renders one line per backup with its age, for `sync list`.
func Describe(names []string, now time.Time) []string {
	var list []string
	for _, name := range backup.SortDescending(names) {
		day, ok := BackupDate(name)
		if !ok {
			list = append(list, name)
			continue
		}
		age := formatDuration(now.UTC().Sub(day))
		if age != "today" {
			age += " ago"
		}
		list = append(list, fmt.Sprintf("%s (%s)", name, age))
	}
	return list
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days <= 0 {
		return "today"
	}
	if days == 1 {
		return "1 day"
	}
	if days < 30 {
		return fmt.Sprintf("%d days", days)
	}
	months := days / 30
	if months == 1 {
		return "1 month"
	}
	if months < 12 {
		return fmt.Sprintf("%d months", months)
	}
	years := months / 12
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}
