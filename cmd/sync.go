package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/cleanup"
	"github.com/harshpatel5940/reelmark/internal/cloud"
	"github.com/harshpatel5940/reelmark/internal/diff"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/syncer"
	"github.com/harshpatel5940/reelmark/internal/tui"
	"github.com/harshpatel5940/reelmark/internal/ui"
)

var (
	syncProvider     string
	syncAccessToken  string
	syncAPIKey       string
	syncClientID     string
	syncClientSecret string
	syncRefreshToken string
	syncBucket       string
	syncRegion       string
	syncEndpoint     string
	syncPrefix       string
	syncTimeout      time.Duration
	syncYes          bool
	pruneKeep        int
	pruneOlderThan   time.Duration
	downFrom         string
	downPick         bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync bookmarks with cloud storage",
	Long: `Back up, restore and merge bookmarks with cloud storage.

Providers: gdrive, dropbox, s3, azure.

Credentials come from flags or the environment:
  REELMARK_ACCESS_TOKEN, REELMARK_API_KEY, REELMARK_CLIENT_ID,
  REELMARK_CLIENT_SECRET, REELMARK_REFRESH_TOKEN

Configure defaults in ~/.reelmark.yaml:
  sync:
    default_provider: s3
  providers:
    s3:
      bucket: my-bookmarks
      region: eu-west-1`,
}

var syncUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Upload local bookmarks to the cloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncAction(cmd, syncer.ActionUpload)
	},
}

var syncDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Download the latest cloud backup",
	Long: `Download the latest cloud backup and, after confirmation, replace the
local bookmarks with it.

Use --from to restore a specific backup, or --pick to choose one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if downFrom != "" || downPick {
			return runSyncDownNamed(cmd)
		}
		return runSyncAction(cmd, syncer.ActionDownload)
	},
}

var syncMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge local and cloud bookmarks, newest wins",
	Long: `Merge the local bookmarks with the latest cloud backup.

Bookmarks present on one side only are kept. Bookmarks present on both keep
whichever copy was modified last. The merged result is stored locally and
uploaded as a new backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncAction(cmd, syncer.ActionSync)
	},
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups in cloud storage",
	RunE:  runSyncList,
}

var syncPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old cloud backups",
	Long: `Delete old cloud backups, keeping the newest ones.

Examples:
  reelmark sync prune --keep 10
  reelmark sync prune --older-than 2160h --yes`,
	RunE: runSyncPrune,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncUpCmd)
	syncCmd.AddCommand(syncDownCmd)
	syncCmd.AddCommand(syncMergeCmd)
	syncCmd.AddCommand(syncListCmd)
	syncCmd.AddCommand(syncPruneCmd)

	pf := syncCmd.PersistentFlags()
	pf.StringVarP(&syncProvider, "provider", "p", "", "Cloud provider: gdrive, dropbox, s3, azure")
	pf.StringVar(&syncAccessToken, "access-token", "", "OAuth access token or Azure SAS token")
	pf.StringVar(&syncAPIKey, "api-key", "", "Azure account key")
	pf.StringVar(&syncClientID, "client-id", "", "OAuth client id or S3 access key id")
	pf.StringVar(&syncClientSecret, "client-secret", "", "OAuth client secret or S3 secret key")
	pf.StringVar(&syncRefreshToken, "refresh-token", "", "OAuth refresh token")
	pf.StringVar(&syncBucket, "bucket", "", "S3 bucket name")
	pf.StringVar(&syncRegion, "region", "", "S3 region")
	pf.StringVar(&syncEndpoint, "endpoint", "", "Custom S3 endpoint")
	pf.StringVar(&syncPrefix, "prefix", "", "Path prefix in bucket")
	pf.DurationVar(&syncTimeout, "timeout", 0, "Give up after this long (default from config)")
	pf.BoolVarP(&syncYes, "yes", "y", false, "Don't ask for confirmation")

	syncDownCmd.Flags().StringVar(&downFrom, "from", "", "Backup filename to restore instead of the latest")
	syncDownCmd.Flags().BoolVar(&downPick, "pick", false, "Choose the backup interactively")

	syncPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "Backups to keep (default from config)")
	syncPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Delete backups older than this instead")
}

func syncCredentials() cloud.Credentials {
	return cloud.Credentials{
		AccessToken:  envOr(syncAccessToken, "REELMARK_ACCESS_TOKEN"),
		APIKey:       envOr(syncAPIKey, "REELMARK_API_KEY"),
		ClientID:     envOr(syncClientID, "REELMARK_CLIENT_ID"),
		ClientSecret: envOr(syncClientSecret, "REELMARK_CLIENT_SECRET"),
		RefreshToken: envOr(syncRefreshToken, "REELMARK_REFRESH_TOKEN"),
	}
}

// applySyncFlags lets flags override the configured provider settings.
func applySyncFlags(a *app) string {
	s3 := &a.cfg.Providers.S3
	if syncBucket != "" {
		s3.Bucket = syncBucket
	}
	if syncRegion != "" {
		s3.Region = syncRegion
	}
	if syncEndpoint != "" {
		s3.Endpoint = syncEndpoint
	}
	if syncPrefix != "" {
		s3.Prefix = syncPrefix
	}
	if syncTimeout > 0 {
		a.cfg.Sync.Timeout = syncTimeout
	}
	if syncProvider != "" {
		return syncProvider
	}
	return a.cfg.Sync.DefaultProvider
}

// consoleTarget keeps the result the handler posts for the CLI to render.
type consoleTarget struct {
	result *syncer.Result
}

func (t *consoleTarget) PostMessage(name string, data any) {
	if r, ok := data.(*syncer.Result); ok && name == syncer.ResultMessage {
		t.result = r
	}
}

func runSyncAction(cmd *cobra.Command, action syncer.Action) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	provider := applySyncFlags(a)
	m, err := a.manager()
	if err != nil {
		return err
	}
	local, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	h := syncer.New(m, a.log, syncer.WithTimeout(a.cfg.Sync.Timeout))
	target := &consoleTarget{}

	spinner := ui.NewSpinner(fmt.Sprintf("%s via %s", actionLabel(action), provider))
	spinner.Start()
	merged := h.HandleSync(ctx, syncer.Payload{Action: action, Provider: provider, Credentials: syncCredentials()}, local, target)

	res := target.result
	if res == nil {
		spinner.Fail()
		return fmt.Errorf("sync finished without a result")
	}
	if !res.Success {
		spinner.Fail()
		ui.PrintErrorWithSolution(actionLabel(action), res.Error, solutionFor(res.Error, provider), "")
		return fmt.Errorf("%s", res.Error)
	}
	spinner.Stop()

	switch action {
	case syncer.ActionUpload:
		ui.PrintSuccess("%s", res.Message)
		ui.PrintVerbose("backup id %s", res.BackupID)

	case syncer.ActionDownload:
		ui.PrintSuccess("%s", res.Message)
		if res.Metadata != nil {
			ui.PrintVerbose("written by %s on %s", res.Metadata.Device, res.Metadata.CreatedAt.Format(time.RFC3339))
		}
		return applyDownload(ctx, a, local, res)

	case syncer.ActionSync:
		if err := a.store.Replace(ctx, merged); err != nil {
			return fmt.Errorf("merged bookmarks uploaded but not saved locally: %w", err)
		}
		ui.PrintSuccess("%s", res.Message)
		if st := res.SyncStats; st != nil {
			ui.PrintSummaryTable([]string{"Added", "Updated", "Total"}, map[string]string{
				"Added":   fmt.Sprint(st.Added),
				"Updated": fmt.Sprint(st.Updated),
				"Total":   fmt.Sprint(st.Total),
			})
		}
	}
	return nil
}

func applyDownload(ctx context.Context, a *app, local []bookmark.Bookmark, res *syncer.Result) error {
	d := diff.Compare(local, res.Bookmarks)
	if !d.HasChanges() {
		ui.PrintInfo("Local bookmarks already match the backup")
		return nil
	}
	ui.PrintChanges(len(d.Added), len(d.Removed), len(d.Changed), d.UnchangedCount)
	ui.PrintVerbose("%s", d.Summary())

	if !syncYes {
		ok, err := tui.ConfirmReplace("the cloud backup", d)
		if err != nil {
			return err
		}
		if !ok {
			ui.PrintInfo("Kept local bookmarks; run 'reelmark sync merge' to combine both")
			return nil
		}
	}

	if err := a.store.Replace(ctx, res.Bookmarks); err != nil {
		return err
	}
	ui.PrintSuccess("Replaced local bookmarks (%d)", len(res.Bookmarks))
	return nil
}

func actionLabel(a syncer.Action) string {
	switch a {
	case syncer.ActionUpload:
		return "Upload"
	case syncer.ActionDownload:
		return "Download"
	default:
		return "Sync"
	}
}

func solutionFor(msg, provider string) string {
	switch {
	case msg == errors.NewInProgressError().Error():
		return "wait for the running sync to finish"
	case msg == "No backups found in cloud storage":
		return "run 'reelmark sync up' first"
	default:
		if _, err := cloud.ParseKind(provider); err != nil {
			return "use one of gdrive, dropbox, s3, azure"
		}
		return fmt.Sprintf("check the %s credentials and run again with --verbose", provider)
	}
}

// authenticated builds a manager and selects the requested provider.
func authenticated(ctx context.Context, a *app) (*cloud.Manager, error) {
	provider := applySyncFlags(a)
	m, err := a.manager()
	if err != nil {
		return nil, err
	}
	ok, err := m.SetProvider(ctx, provider, syncCredentials())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewAuthError(provider, nil)
	}
	return m, nil
}

func printSyncError(operation string, err error) {
	if se, ok := errors.AsSyncError(err); ok {
		ui.PrintErrorWithSolution(operation, se.Error(), se.Suggestion, se.Alternative)
		return
	}
	ui.PrintErrorWithSolution(operation, err.Error(), "", "")
}

func runSyncList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Sync.Timeout)
	defer cancel()

	m, err := authenticated(ctx, a)
	if err != nil {
		printSyncError("List", err)
		return err
	}
	names, err := m.ListBackups(ctx)
	if err != nil {
		printSyncError("List", err)
		return err
	}

	if len(names) == 0 {
		ui.PrintInfo("No backups in cloud storage")
		return nil
	}
	active, _ := m.Active()
	ui.PrintSectionHeader("☁️", fmt.Sprintf("Backups in %s", active.Name()))
	for _, line := range cleanup.Describe(names, now()) {
		fmt.Fprintf(ui.Out, "  %s\n", line)
	}
	return nil
}

// runSyncDownNamed restores one chosen backup. It talks to the manager
// directly since the handler always picks the latest.
func runSyncDownNamed(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Sync.Timeout)
	defer cancel()

	m, err := authenticated(ctx, a)
	if err != nil {
		printSyncError("Download", err)
		return err
	}

	name := downFrom
	if downPick {
		names, err := m.ListBackups(ctx)
		if err != nil {
			printSyncError("Download", err)
			return err
		}
		if name, err = tui.SelectBackup(names); err != nil {
			return err
		}
	}

	b, err := m.DownloadBookmarks(ctx, name)
	if err != nil {
		printSyncError("Download", err)
		return err
	}
	ui.PrintSuccess("Downloaded %s", name)
	for _, line := range strings.Split(strings.TrimSpace(b.Summary()), "\n") {
		ui.PrintVerbose("%s", line)
	}

	local, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	return applyDownload(ctx, a, local, &syncer.Result{
		Success:   true,
		Action:    syncer.ActionDownload,
		Bookmarks: b.Bookmarks,
		Metadata:  &b.Metadata,
	})
}

func runSyncPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Sync.Timeout)
	defer cancel()

	m, err := authenticated(ctx, a)
	if err != nil {
		printSyncError("Prune", err)
		return err
	}
	cm := cleanup.NewCleanupManager(m)
	names, err := cm.GetBackups(ctx)
	if err != nil {
		printSyncError("Prune", err)
		return err
	}

	var plan cleanup.Plan
	if pruneOlderThan > 0 {
		plan = cleanup.PlanByAge(names, pruneOlderThan, now())
	} else {
		keep := pruneKeep
		if keep <= 0 {
			keep = a.cfg.Sync.Keep
		}
		plan = cleanup.PlanByCount(names, keep)
	}

	if len(plan.Delete) == 0 {
		ui.PrintInfo("Nothing to prune (%d backups)", len(names))
		return nil
	}
	for _, name := range plan.Delete {
		ui.PrintVerbose("will delete %s", name)
	}
	if !syncYes {
		ok, err := tui.ConfirmPrune(plan.Delete)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	bar := ui.NewProgressBar(len(plan.Delete), "Deleting backups")
	cm.OnProgress(func(done, total int) { _ = bar.Set(done) })

	res, err := cm.Apply(ctx, plan)
	if err != nil {
		return err
	}
	for _, name := range res.Deleted {
		ui.PrintVerboseSuccess("deleted %s", name)
	}
	ui.PrintSuccess("Deleted %d backups, kept %d", len(res.Deleted), len(plan.Keep))
	for _, name := range res.Failed {
		ui.PrintWarning("Could not delete %s", name)
	}
	return nil
}
