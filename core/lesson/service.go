package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/presence"
)

var (
	// errors
	ErrNotFound        = errors.New("lesson not found")
	ErrStudentEnrolled = errors.New("student is already enrolled in this lesson")
	ErrNotOwner        = errors.New("lesson belongs to another teacher")
	ErrNotScheduled    = errors.New("lesson is no longer scheduled")
	ErrNotInSession    = errors.New("lesson is not in session")
	ErrNoneInSession   = errors.New("no lesson is in session")

	// ErrStatusChanged is returned by Repository.SetLessonStatus when the
	// lesson's status no longer matches the expected current value.
	ErrStatusChanged = errors.New("lesson status changed concurrently")
)

type (
	Repository interface {
		// BeginTx opens a transaction that can be injected into the other
		// methods through their exec argument, so related writes commit or
		// roll back together.
		BeginTx(ctx context.Context) (core.DBTransactor, error)

		CreateLesson(ctx context.Context, lsn Lesson, exec ...core.DBExecutor) (Lesson, error)
		QueryAllLessons(ctx context.Context, exec ...core.DBExecutor) ([]Lesson, error)
		GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		QueryLessonsByStatus(ctx context.Context, status Status, exec ...core.DBExecutor) ([]Lesson, error)
		QueryLessonsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Lesson, error)
		// SetLessonStatus advances the lesson's status from `from` to `to`.
		// The update is conditional on the current value still being `from`;
		// ErrStatusChanged is returned otherwise.
		SetLessonStatus(ctx context.Context, id string, from, to Status, exec ...core.DBExecutor) error

		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// ListEnrollments returns the lesson's roster with each enrolled
		// student's device ID.
		ListEnrollments(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]Enrollee, error)

		// SeedAttendances bulk-inserts one Pending attendance row per student.
		SeedAttendances(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) error
		ListAttendances(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]Attendance, error)
		ListStudentAttendances(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Attendance, error)
		// MarkPresentIfPending flips the given students' attendance for the
		// lesson to Present, but only rows still Pending, and reports the
		// students actually updated. This conditional guard is what makes
		// concurrent reconciliation safe.
		MarkPresentIfPending(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) ([]string, error)
		// MarkAbsentIfPending flips every still-Pending attendance for the
		// lesson to Absent and reports the students updated.
		MarkAbsentIfPending(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]string, error)
	}

	// Notifier delivers "you are marked present" notices. Best effort:
	// implementations log failures and never propagate them; attendance
	// state does not depend on notification outcome.
	Notifier interface {
		NotifyPresent(lsn Lesson, studentIDs ...string)
	}

	ServiceInterface interface {
		Create(ctx context.Context, teacherID string, nl NewLesson) (Lesson, error)
		QueryAll(ctx context.Context) ([]Lesson, error)
		GetByID(ctx context.Context, id string) (Lesson, error)
		QueryByStudent(ctx context.Context, studentID string) ([]Lesson, error)
		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Attendances(ctx context.Context, lessonID string) ([]Attendance, error)
		StudentAttendances(ctx context.Context, studentID string) ([]Attendance, error)
		Start(ctx context.Context, lessonID, actorID string) (Lesson, error)
		End(ctx context.Context, lessonID, actorID string) (Lesson, error)
		Reconcile(ctx context.Context, lessonID string) ([]string, error)
		RecordHeartbeats(ctx context.Context, deviceIDs []string) error
		SweepInSession(ctx context.Context) error
	}

	Service struct {
		repo     Repository
		signals  presence.Store
		notifier Notifier
		logger   core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, signals presence.Store, notifier Notifier, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		signals:  signals,
		notifier: notifier,
		logger:   logger,
	}
}

func (svc *Service) Create(ctx context.Context, teacherID string, nl NewLesson) (Lesson, error) {
	now := time.Now().UTC()
	lsn := Lesson{
		Name:      nl.Name,
		TeacherID: teacherID,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Lesson, error) {
	return svc.repo.QueryAllLessons(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByStudent(ctx, studentID)
}

// Enroll registers a student to a lesson. Only Scheduled lessons accept new
// enrollments; the roster is frozen the moment the session starts.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	lsn, err := svc.repo.GetLesson(ctx, ne.LessonID)
	if err != nil {
		return Enrollment{}, err
	}
	if lsn.Status != StatusScheduled {
		return Enrollment{}, core.NewConflictError(ErrNotScheduled)
	}

	enr := Enrollment{
		StudentID: ne.StudentID,
		LessonID:  ne.LessonID,
		CreatedAt: time.Now().UTC(),
	}
	enr, err = svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		if errors.Cause(err) == ErrStudentEnrolled {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_uuid", Error: err.Error()})
		}
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) Attendances(ctx context.Context, lessonID string) ([]Attendance, error) {
	if _, err := svc.repo.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	return svc.repo.ListAttendances(ctx, lessonID)
}

func (svc *Service) StudentAttendances(ctx context.Context, studentID string) ([]Attendance, error) {
	return svc.repo.ListStudentAttendances(ctx, studentID)
}

// getOwned fetches the lesson and checks the acting teacher owns it.
func (svc *Service) getOwned(ctx context.Context, lessonID, actorID string) (Lesson, error) {
	lsn, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if lsn.TeacherID != actorID {
		return Lesson{}, core.NewPermissionError(ErrNotOwner)
	}
	return lsn, nil
}

// Start transitions a Scheduled lesson to InSession and seeds one Pending
// attendance row per enrollment existing at this instant. An empty roster is
// not an error; nothing is seeded.
func (svc *Service) Start(ctx context.Context, lessonID, actorID string) (Lesson, error) {
	lsn, err := svc.getOwned(ctx, lessonID, actorID)
	if err != nil {
		return Lesson{}, err
	}
	if !lsn.Status.CanTransitionTo(StatusInSession) {
		return Lesson{}, core.NewConflictError(ErrNotScheduled)
	}

	// The status flip and the roster seeding commit together; a failed seed
	// must not leave an InSession lesson with no attendance rows.
	tx, err := svc.repo.BeginTx(ctx)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "beginning transaction")
	}

	if err = svc.repo.SetLessonStatus(ctx, lsn.ID, StatusScheduled, StatusInSession, tx); err != nil {
		_ = tx.Rollback()
		if errors.Cause(err) == ErrStatusChanged {
			return Lesson{}, core.NewConflictError(ErrNotScheduled)
		}
		return Lesson{}, errors.Wrap(err, "starting lesson")
	}
	lsn.Status = StatusInSession

	roster, err := svc.repo.ListEnrollments(ctx, lsn.ID, tx)
	if err != nil {
		_ = tx.Rollback()
		return Lesson{}, errors.Wrap(err, "listing enrollments")
	}
	if len(roster) > 0 {
		studentIDs := make([]string, 0, len(roster))
		for _, enr := range roster {
			studentIDs = append(studentIDs, enr.StudentID)
		}
		if err = svc.repo.SeedAttendances(ctx, lsn.ID, studentIDs, tx); err != nil {
			_ = tx.Rollback()
			return Lesson{}, errors.Wrap(err, "seeding attendances")
		}
	}
	if err = tx.Commit(); err != nil {
		return Lesson{}, errors.Wrap(err, "starting lesson")
	}
	return lsn, nil
}

// End runs a final reconciliation pass, marks every still-Pending student
// Absent, purges the lesson's presence signals and transitions the lesson to
// Ended. Presence notices go out for the final delta only; signals are purged
// only after the final reconciliation read so a racing sweep never loses one.
func (svc *Service) End(ctx context.Context, lessonID, actorID string) (Lesson, error) {
	lsn, err := svc.getOwned(ctx, lessonID, actorID)
	if err != nil {
		return Lesson{}, err
	}
	if !lsn.Status.CanTransitionTo(StatusEnded) {
		return Lesson{}, core.NewConflictError(ErrNotInSession)
	}

	delta, err := svc.reconcile(ctx, lsn.ID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "final reconciliation")
	}

	if _, err = svc.repo.MarkAbsentIfPending(ctx, lsn.ID); err != nil {
		return Lesson{}, errors.Wrap(err, "marking absentees")
	}

	if err = svc.signals.PurgeLesson(ctx, lsn.ID); err != nil {
		return Lesson{}, errors.Wrap(err, "purging presence signals")
	}

	if err = svc.repo.SetLessonStatus(ctx, lsn.ID, StatusInSession, StatusEnded); err != nil {
		if errors.Cause(err) == ErrStatusChanged {
			return Lesson{}, core.NewConflictError(ErrNotInSession)
		}
		return Lesson{}, errors.Wrap(err, "ending lesson")
	}
	lsn.Status = StatusEnded

	if len(delta) > 0 {
		svc.notifier.NotifyPresent(lsn, delta...)
	}
	return lsn, nil
}

// Reconcile matches the lesson's presence signals against its roster and
// commits newly present students. Only valid while the lesson is InSession;
// End runs its own final pass internally.
func (svc *Service) Reconcile(ctx context.Context, lessonID string) ([]string, error) {
	lsn, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lsn.Status != StatusInSession {
		return nil, core.NewConflictError(ErrNotInSession)
	}
	return svc.reconcile(ctx, lsn.ID)
}

// RecordHeartbeats writes a presence signal for each device against every
// lesson currently in session. The ingestion path is unauthenticated and the
// device IDs are trusted as-is; reconciliation decides what they mean.
// Delivery is best effort with the same per-lesson isolation as the sweep; a
// store failure for one lesson is logged and the rest still get their signals.
func (svc *Service) RecordHeartbeats(ctx context.Context, deviceIDs []string) error {
	lessons, err := svc.repo.QueryLessonsByStatus(ctx, StatusInSession)
	if err != nil {
		return errors.Wrap(err, "querying in-session lessons")
	}
	if len(lessons) == 0 {
		return ErrNoneInSession
	}

	for _, lsn := range lessons {
		for _, deviceID := range deviceIDs {
			if err = svc.signals.Put(ctx, lsn.ID, deviceID); err != nil {
				svc.logger.Error("recording presence signal failed", errors.Wrapf(err, "lesson %s", lsn.ID))
				break
			}
		}
	}
	return nil
}

// SweepInSession reconciles every in-session lesson and sends presence
// notices for non-empty deltas. It never transitions lesson state and never
// purges signals; a failing lesson is logged and skipped, the rest of the
// sweep continues.
func (svc *Service) SweepInSession(ctx context.Context) error {
	lessons, err := svc.repo.QueryLessonsByStatus(ctx, StatusInSession)
	if err != nil {
		return errors.Wrap(err, "querying in-session lessons")
	}

	for _, lsn := range lessons {
		delta, err := svc.reconcile(ctx, lsn.ID)
		if err != nil {
			svc.logger.Error("sweep: reconciliation failed", errors.Wrapf(err, "lesson %s", lsn.ID))
			continue
		}
		if len(delta) > 0 {
			svc.notifier.NotifyPresent(lsn, delta...)
		}
	}
	return nil
}
