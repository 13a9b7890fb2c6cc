// Package hiveerr defines the sentinel error kinds shared across the store's
// layers, so callers can test with errors.Is regardless of which package
// produced the wrapped error.
package hiveerr

import "errors"

var (
	// ErrCorruptFrame covers CRC mismatch, short reads, and AES padding failures.
	ErrCorruptFrame = errors.New("hivebox: corrupt frame")

	// ErrCorruptBox is returned at open when a recovery offset was found and
	// the box was opened with CrashRecovery disabled.
	ErrCorruptBox = errors.New("hivebox: corrupt box")

	// ErrUnknownType is returned on read when a value tag names a user type
	// with no registered adapter.
	ErrUnknownType = errors.New("hivebox: unknown type")

	// ErrAlreadyRegistered is returned by Registry.Register on a duplicate typeId.
	ErrAlreadyRegistered = errors.New("hivebox: type already registered")

	// ErrBoxLocked is returned when another process already holds the box's lock file.
	ErrBoxLocked = errors.New("hivebox: box locked by another process")

	// ErrBoxClosed is returned by any operation attempted after Close.
	ErrBoxClosed = errors.New("hivebox: box closed")

	// ErrUnsupportedOperation is returned by Values/ToMap on a lazy box,
	// which would otherwise have to re-read and decode its entire on-disk
	// log on every call.
	ErrUnsupportedOperation = errors.New("hivebox: unsupported operation")

	// ErrIO wraps an underlying file-system failure that isn't itself a corruption signal.
	ErrIO = errors.New("hivebox: io error")
)
