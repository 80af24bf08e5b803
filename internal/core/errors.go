package core

import "errors"

var (
	// ErrStoreUnreadable reports a store file that exists but cannot be
	// read or parsed. It is never treated as an empty store.
	ErrStoreUnreadable = errors.New("reminder store is unreadable")
	// ErrStoreUnwritable reports a failed save. The previous file is intact.
	ErrStoreUnwritable = errors.New("reminder store is unwritable")
	// ErrMalformedRule reports a recurrence rule that cannot be parsed.
	ErrMalformedRule = errors.New("malformed recurrence rule")
	// ErrReminderNotFound reports an unknown reminder id.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrNoChange lets an update function skip the save.
	ErrNoChange = errors.New("no change")
	// ErrInvalidPriority reports an unknown priority name.
	ErrInvalidPriority = errors.New("invalid priority")
)
