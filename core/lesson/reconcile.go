package lesson

import (
	"context"

	"github.com/pkg/errors"
)

// reconcile computes and commits the attendance delta for one lesson:
// enrolled students still Pending whose device has a presence signal.
//
// The returned slice is the set of students the conditional update actually
// flipped to Present, not a recomputation. Callers key notifications on it,
// so when two triggers race over the same delta only the writer whose update
// landed reports the students; the loser gets an empty (or partial) result
// and notifies nobody twice.
func (svc *Service) reconcile(ctx context.Context, lessonID string) ([]string, error) {
	roster, err := svc.repo.ListEnrollments(ctx, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}

	deviceIDs, err := svc.signals.ListDevices(ctx, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing presence signals")
	}

	attendances, err := svc.repo.ListAttendances(ctx, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendances")
	}

	pending := make(map[string]bool, len(attendances))
	for _, att := range attendances {
		if att.Status == AttendancePending {
			pending[att.StudentID] = true
		}
	}

	seen := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		seen[id] = true
	}

	// Signals for devices outside the roster match nothing and are ignored.
	// Students already Present are excluded up front; repeating the call
	// with no new signals yields an empty delta.
	delta := make([]string, 0, len(pending))
	for _, enrollee := range roster {
		if pending[enrollee.StudentID] && seen[enrollee.DeviceID] {
			delta = append(delta, enrollee.StudentID)
		}
	}
	if len(delta) == 0 {
		return nil, nil
	}

	updated, err := svc.repo.MarkPresentIfPending(ctx, lessonID, delta)
	if err != nil {
		return nil, errors.Wrap(err, "marking students present")
	}
	return updated, nil
}
