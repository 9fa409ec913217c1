package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db}
}

// tx satisfies core.DBTransactor for the in-memory store. Writes land
// immediately so Commit and Rollback have nothing to do; the embedded
// executor is never consulted since the repositories ignore injected execs.
type tx struct{ core.DBExecutor }

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

func (repo *lessonRepository) BeginTx(ctx context.Context) (core.DBTransactor, error) {
	return tx{}, nil
}

func (repo *lessonRepository) query(match func(*lesson.Lesson) bool) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.lesson.table))
	for _, lsn := range repo.db.lesson.table {
		if match == nil || match(lsn) {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].CreatedAt.Before(lessons[j].CreatedAt) })
	return lessons
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.lesson.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) QueryAllLessons(ctx context.Context, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()
	return repo.query(nil), nil
}

func (repo *lessonRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()

	if lsn, ok := repo.db.lesson.table[id]; ok {
		return *lsn, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryLessonsByStatus(ctx context.Context, status lesson.Status, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()
	return repo.query(func(lsn *lesson.Lesson) bool { return lsn.Status == status }), nil
}

func (repo *lessonRepository) QueryLessonsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()

	enrolled := make(map[string]bool)
	for lessonID, enrs := range repo.db.lesson.enrollments {
		for _, enr := range enrs {
			if enr.StudentID == studentID {
				enrolled[lessonID] = true
				break
			}
		}
	}
	return repo.query(func(lsn *lesson.Lesson) bool { return enrolled[lsn.ID] }), nil
}

func (repo *lessonRepository) SetLessonStatus(ctx context.Context, id string, from, to lesson.Status, exec ...core.DBExecutor) error {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	lsn, ok := repo.db.lesson.table[id]
	if !ok {
		return lesson.ErrNotFound
	}
	if lsn.Status != from {
		return lesson.ErrStatusChanged
	}
	lsn.Status = to
	lsn.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *lessonRepository) CreateEnrollment(ctx context.Context, enr lesson.Enrollment, exec ...core.DBExecutor) (lesson.Enrollment, error) {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	for _, existing := range repo.db.lesson.enrollments[enr.LessonID] {
		if existing.StudentID == enr.StudentID {
			return lesson.Enrollment{}, lesson.ErrStudentEnrolled
		}
	}
	enr.ID = uuid.New().String()
	repo.db.lesson.enrollments[enr.LessonID] = append(repo.db.lesson.enrollments[enr.LessonID], &enr)
	return enr, nil
}

func (repo *lessonRepository) ListEnrollments(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]lesson.Enrollee, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	enrs := repo.db.lesson.enrollments[lessonID]
	roster := make([]lesson.Enrollee, 0, len(enrs))
	for _, enr := range enrs {
		std, ok := repo.db.student.table[enr.StudentID]
		if !ok {
			continue
		}
		roster = append(roster, lesson.Enrollee{StudentID: enr.StudentID, DeviceID: std.DeviceID})
	}
	return roster, nil
}

func (repo *lessonRepository) SeedAttendances(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) error {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	rows, ok := repo.db.lesson.attendances[lessonID]
	if !ok {
		rows = make(map[string]*lesson.Attendance, len(studentIDs))
		repo.db.lesson.attendances[lessonID] = rows
	}
	for _, studentID := range studentIDs {
		if _, exists := rows[studentID]; exists {
			continue
		}
		rows[studentID] = &lesson.Attendance{
			ID:        uuid.New().String(),
			StudentID: studentID,
			LessonID:  lessonID,
			Status:    lesson.AttendancePending,
		}
	}
	return nil
}

func (repo *lessonRepository) ListAttendances(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]lesson.Attendance, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()

	rows := repo.db.lesson.attendances[lessonID]
	attendances := make([]lesson.Attendance, 0, len(rows))
	for _, att := range rows {
		attendances = append(attendances, *att)
	}
	sort.Slice(attendances, func(i, j int) bool { return attendances[i].StudentID < attendances[j].StudentID })
	return attendances, nil
}

func (repo *lessonRepository) ListStudentAttendances(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]lesson.Attendance, error) {
	repo.db.lesson.RLock()
	defer repo.db.lesson.RUnlock()

	var attendances []lesson.Attendance
	for _, rows := range repo.db.lesson.attendances {
		if att, ok := rows[studentID]; ok {
			attendances = append(attendances, *att)
		}
	}
	sort.Slice(attendances, func(i, j int) bool { return attendances[i].LessonID < attendances[j].LessonID })
	return attendances, nil
}

func (repo *lessonRepository) MarkPresentIfPending(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	rows := repo.db.lesson.attendances[lessonID]
	updated := make([]string, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		if att, ok := rows[studentID]; ok && att.Status == lesson.AttendancePending {
			att.Status = lesson.AttendancePresent
			updated = append(updated, studentID)
		}
	}
	return updated, nil
}

func (repo *lessonRepository) MarkAbsentIfPending(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	var updated []string
	for studentID, att := range repo.db.lesson.attendances[lessonID] {
		if att.Status == lesson.AttendancePending {
			att.Status = lesson.AttendanceAbsent
			updated = append(updated, studentID)
		}
	}
	sort.Strings(updated)
	return updated, nil
}
