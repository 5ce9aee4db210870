package auctionerrors

import "errors"

// Lookup errors
var (
	ErrRoomNotFound     = errors.New("auction room not found")
	ErrSnapshotNotFound = errors.New("live auction snapshot not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
)

// Settlement state errors
var (
	// ErrRoomNotActive means the active->ended write matched no row: the room was settled elsewhere.
	ErrRoomNotActive = errors.New("auction room is no longer active")
	// ErrRoomNotPending means the room is not ended-with-a-winner-awaiting-notification.
	ErrRoomNotPending = errors.New("auction room has no pending winner notification")
)

// Notification errors
var (
	ErrMissingContact       = errors.New("winner has no contact for channel")
	ErrPrimaryChannelFailed = errors.New("primary notification channel failed")
	ErrNoPrimaryChannel     = errors.New("no primary notification channel configured")
)

// Scheduler errors
var (
	ErrJobNotFound = errors.New("scheduled job not found")
	ErrJobBusy     = errors.New("scheduled job is already running")

	ErrSchedulerNotInitialized = errors.New("scheduler has no jobs; call Initialize first")
)
