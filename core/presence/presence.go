// Package presence defines the contract of the ephemeral presence-signal
// store. A signal means "this device was seen near this in-session lesson";
// signals are written by the unauthenticated ingestion endpoint and read back
// during attendance reconciliation. Keys are structured (lesson, device)
// pairs; implementations decide the physical encoding.
package presence

import "context"

// Store holds presence signals keyed by (lessonID, deviceID).
// Writes are idempotent overwrites; deleting an absent key is not an error.
type Store interface {
	// Put records a presence signal for the device against the lesson.
	Put(ctx context.Context, lessonID, deviceID string) error
	// ListDevices returns the device IDs with a signal for the lesson.
	ListDevices(ctx context.Context, lessonID string) ([]string, error)
	// PurgeLesson removes every signal recorded for the lesson.
	PurgeLesson(ctx context.Context, lessonID string) error
}
