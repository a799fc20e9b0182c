package autosync

import (
	"errors"

	"github.com/devhub-tools/devhub/internal/types"
)

// Status is the backup sync state shown to the user.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusPending Status = "pending"
	StatusOffline Status = "offline"
)

// Errors returned by manual operations.
var (
	ErrSyncDisabled  = errors.New("backup endpoint is not configured")
	ErrPushFailed    = errors.New("backup push failed")
	ErrRestoreFailed = errors.New("failed to fetch data from backup, check the endpoint URL")
)

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a one-off message for the user, such as the outcome of a restore.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Observer receives status changes and notices. Calls are made with the
// engine lock held, in the order the changes happened; an observer must not
// call back into the engine.
type Observer interface {
	StatusChanged(status Status, cfg types.SyncConfig)
	Notice(n Notice)
}

type nopObserver struct{}

func (nopObserver) StatusChanged(Status, types.SyncConfig) {}
func (nopObserver) Notice(Notice)                          {}

// State is a point-in-time copy of the engine's working set.
type State struct {
	Links      []types.LinkItem
	Categories []types.Category
	Todos      []types.TodoItem
	Status     Status
	Config     types.SyncConfig
	Ready      bool
}
