// Package syncer serializes cloud sync requests. A Handler runs at most one
// upload, download or sync at a time, supervises it with a watchdog and
// reports exactly one CLOUD_SYNC_RESULT message per accepted request.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/cloud"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// ResultMessage is the name every result is posted under.
const ResultMessage = "CLOUD_SYNC_RESULT"

// DefaultTimeout is the watchdog window used when none is configured.
const DefaultTimeout = 60 * time.Second

// Action is a requested sync operation.
type Action string

const (
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionSync     Action = "sync"
)

func (a Action) valid() bool {
	switch a {
	case ActionUpload, ActionDownload, ActionSync:
		return true
	}
	return false
}

// State is the handler's position in its two-state machine.
type State int

const (
	StateIdle State = iota
	StateSyncing
)

func (s State) String() string {
	if s == StateSyncing {
		return "syncing"
	}
	return "idle"
}

// Payload is a sync request as sent by the player.
type Payload struct {
	Action      Action            `json:"action"`
	Provider    string            `json:"provider"`
	Credentials cloud.Credentials `json:"credentials"`
}

// SyncStats summarizes a merge for the UI.
type SyncStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
	Total     int `json:"total"`
}

// Result is the CLOUD_SYNC_RESULT payload.
type Result struct {
	Success   bool                `json:"success"`
	Action    Action              `json:"action"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Bookmarks []bookmark.Bookmark `json:"bookmarks,omitempty"`
	BackupID  string              `json:"backupId,omitempty"`
	Metadata  *backup.Metadata    `json:"metadata,omitempty"`
	SyncStats *SyncStats          `json:"syncStats,omitempty"`
}

// Target receives result messages.
type Target interface {
	PostMessage(name string, data any)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(name string, data any)

func (f TargetFunc) PostMessage(name string, data any) { f(name, data) }

// Manager is the part of cloud.Manager the handler drives.
type Manager interface {
	SetProvider(ctx context.Context, id string, creds cloud.Credentials) (bool, error)
	UploadBookmarks(ctx context.Context, bookmarks []bookmark.Bookmark, filename string) (string, error)
	DownloadBookmarks(ctx context.Context, filename string) (*backup.Backup, error)
	ListBackups(ctx context.Context) ([]string, error)
	SyncBookmarks(ctx context.Context, local []bookmark.Bookmark) (*cloud.SyncResult, error)
}

// Recorder observes handler activity. metrics.Recorder implements it.
type Recorder interface {
	SyncStarted(action string)
	SyncFinished(action, outcome string, elapsed time.Duration)
}

// Outcomes reported to the Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
)

// Handler is the single entry point for sync requests. It is safe for
// concurrent use; requests arriving while one is in flight are rejected.
type Handler struct {
	manager Manager
	log     logger.Logger
	timeout time.Duration
	metrics Recorder

	mu    sync.Mutex
	state State
	timer *time.Timer
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout sets the watchdog window.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithRecorder wires a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) { h.metrics = r }
}

// New creates an idle handler.
func New(m Manager, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		manager: m,
		log:     log,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State reports whether a request is in flight.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Timeout returns the watchdog window.
func (h *Handler) Timeout() time.Duration { return h.timeout }

type outcome struct {
	result *Result
	merged []bookmark.Bookmark
	err    error
}

// HandleSync runs one request and posts its result to target. Only a
// successful sync returns bookmarks: the merged list the caller should store.
// Upload and download never replace local state and return nil.
//
// The action runs on its own goroutine; HandleSync waits for whichever comes
// first of completion, the watchdog or ctx. A watchdog or ctx result is final:
// if the action completes later its outcome is only logged.
func (h *Handler) HandleSync(ctx context.Context, p Payload, bookmarks []bookmark.Bookmark, target Target) []bookmark.Bookmark {
	timer, ok := h.acquire()
	if !ok {
		h.log.Warn("sync rejected", logger.String("action", string(p.Action)), logger.String("reason", "in progress"))
		h.record(p.Action, OutcomeRejected, 0)
		target.PostMessage(ResultMessage, failure(p.Action, errors.NewInProgressError()))
		return nil
	}
	defer h.release()

	if !p.Action.valid() {
		h.log.Warn("unknown sync action", logger.String("action", string(p.Action)))
		return nil
	}

	started := time.Now()
	if h.metrics != nil {
		h.metrics.SyncStarted(string(p.Action))
	}
	log := h.log.With(logger.String("action", string(p.Action)), logger.String("provider", p.Provider))
	log.Info("sync started")

	// The action may outlive this call after a timeout, so it gets its own copy.
	local := bookmark.CloneAll(bookmarks)
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("sync panicked: %v", r)}
			}
		}()
		done <- h.run(ctx, p, local)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			log.Error("sync failed", logger.Error(out.err))
			h.record(p.Action, OutcomeError, time.Since(started))
			target.PostMessage(ResultMessage, failure(p.Action, out.err))
			return nil
		}
		log.Info("sync finished", logger.Duration("elapsed", time.Since(started)))
		h.record(p.Action, OutcomeSuccess, time.Since(started))
		target.PostMessage(ResultMessage, out.result)
		return out.merged

	case <-timer.C:
		err := errors.NewTimeoutError(h.timeout)
		log.Error("sync timed out", logger.Duration("timeout", h.timeout))
		h.record(p.Action, OutcomeTimeout, time.Since(started))
		target.PostMessage(ResultMessage, failure(p.Action, err))
		go h.discardLate(log, done)
		return nil

	case <-ctx.Done():
		log.Warn("sync cancelled", logger.Error(ctx.Err()))
		h.record(p.Action, OutcomeCancelled, time.Since(started))
		target.PostMessage(ResultMessage, failure(p.Action, ctx.Err()))
		go h.discardLate(log, done)
		return nil
	}
}

func (h *Handler) run(ctx context.Context, p Payload, bookmarks []bookmark.Bookmark) outcome {
	if err := h.authenticate(ctx, p); err != nil {
		return outcome{err: err}
	}

	switch p.Action {
	case ActionUpload:
		id, err := h.manager.UploadBookmarks(ctx, bookmarks, "")
		if err != nil {
			return outcome{err: err}
		}
		return outcome{result: &Result{
			Success:  true,
			Action:   p.Action,
			Message:  fmt.Sprintf("Uploaded %d bookmarks to %s", len(bookmarks), p.Provider),
			BackupID: id,
		}}

	case ActionDownload:
		names, err := h.manager.ListBackups(ctx)
		if err != nil {
			return outcome{err: err}
		}
		latest, ok := backup.Latest(names)
		if !ok {
			return outcome{err: errors.NewNotFoundError("No backups found in cloud storage")}
		}
		b, err := h.manager.DownloadBookmarks(ctx, latest)
		if err != nil {
			return outcome{err: err}
		}
		meta := b.Metadata
		return outcome{result: &Result{
			Success:   true,
			Action:    p.Action,
			Message:   fmt.Sprintf("Downloaded %d bookmarks from %s", len(b.Bookmarks), latest),
			Bookmarks: b.Bookmarks,
			Metadata:  &meta,
		}}

	case ActionSync:
		res, err := h.manager.SyncBookmarks(ctx, bookmarks)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{
			result: &Result{
				Success: true,
				Action:  p.Action,
				Message: fmt.Sprintf("Sync complete: %d added, %d updated", res.Added, res.Updated),
				SyncStats: &SyncStats{
					Added:     res.Added,
					Updated:   res.Updated,
					Conflicts: len(res.Conflicts),
					Total:     len(res.Merged),
				},
			},
			merged: res.Merged,
		}
	}

	return outcome{err: errors.NewValidationError(fmt.Sprintf("unknown action %q", p.Action))}
}

// authenticate turns a false from SetProvider into an explicit error.
func (h *Handler) authenticate(ctx context.Context, p Payload) error {
	ok, err := h.manager.SetProvider(ctx, p.Provider, p.Credentials)
	if err != nil {
		if errors.IsConfigError(err) {
			return err
		}
		return errors.NewAuthError(p.Provider, err)
	}
	if !ok {
		return errors.NewAuthError(p.Provider, nil)
	}
	return nil
}

func (h *Handler) acquire() (*time.Timer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateSyncing {
		return nil, false
	}
	h.state = StateSyncing
	h.timer = time.NewTimer(h.timeout)
	return h.timer, true
}

// release runs exactly once per accepted request, whichever way it ended.
func (h *Handler) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.state = StateIdle
}

func (h *Handler) discardLate(log logger.Logger, done <-chan outcome) {
	out := <-done
	if out.err != nil {
		log.Warn("late sync completion discarded", logger.Error(out.err))
		return
	}
	log.Warn("late sync completion discarded", logger.Bool("success", true))
}

func (h *Handler) record(a Action, result string, elapsed time.Duration) {
	if h.metrics != nil {
		h.metrics.SyncFinished(string(a), result, elapsed)
	}
}

func failure(a Action, err error) *Result {
	return &Result{Success: false, Action: a, Error: err.Error()}
}
