package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
)

const uniqueViolation = "23505"

// insertion order is the natural listing order for every table
var defaultOrdering = core.DBOrdering{Field: "created_at", Ascending: true}

type lessonRow struct {
	ID        string    `db:"lesson_uuid"`
	Name      string    `db:"name"`
	TeacherID string    `db:"teacher_uuid"`
	Status    int       `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r lessonRow) model() lesson.Lesson {
	return lesson.Lesson{
		ID:        r.ID,
		Name:      r.Name,
		TeacherID: r.TeacherID,
		Status:    lesson.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func lessonModels(rows []lessonRow) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.model())
	}
	return lessons
}

type attendanceRow struct {
	ID        string `db:"attendance_uuid"`
	StudentID string `db:"student_uuid"`
	LessonID  string `db:"lesson_uuid"`
	Status    int    `db:"status"`
}

func (r attendanceRow) model() lesson.Attendance {
	return lesson.Attendance{
		ID:        r.ID,
		StudentID: r.StudentID,
		LessonID:  r.LessonID,
		Status:    lesson.AttendanceStatus(r.Status),
	}
}

func attendanceModels(rows []attendanceRow) []lesson.Attendance {
	attendances := make([]lesson.Attendance, 0, len(rows))
	for _, r := range rows {
		attendances = append(attendances, r.model())
	}
	return attendances
}

type lessonRepository struct {
	db core.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db core.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo lessonRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo lessonRepository) BeginTx(ctx context.Context) (core.DBTransactor, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	return tx, nil
}

func (repo lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	lsn.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO lesson (lesson_uuid, name, teacher_uuid, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		lsn.ID, lsn.Name, lsn.TeacherID, int(lsn.Status), lsn.CreatedAt.UTC(), lsn.UpdatedAt.UTC(),
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo lessonRepository) QueryAllLessons(ctx context.Context, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	var rows []lessonRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, "SELECT * FROM lesson ORDER BY "+defaultOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessonModels(rows), nil
}

func (repo lessonRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lesson.Lesson{}, lesson.ErrNotFound
	}

	var row lessonRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT * FROM lesson WHERE lesson_uuid = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return lesson.Lesson{}, lesson.ErrNotFound
		}
		return lesson.Lesson{}, errors.Wrap(err, "finding lesson by ID")
	}
	return row.model(), nil
}

func (repo lessonRepository) QueryLessonsByStatus(ctx context.Context, status lesson.Status, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	var rows []lessonRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		"SELECT * FROM lesson WHERE status = $1 ORDER BY "+defaultOrdering.String(), int(status))
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons by status")
	}
	return lessonModels(rows), nil
}

func (repo lessonRepository) QueryLessonsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	var rows []lessonRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT l.* FROM lesson l
		 JOIN join_lesson jl ON jl.lesson_uuid = l.lesson_uuid
		 WHERE jl.student_uuid = $1
		 ORDER BY l.created_at`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons by student")
	}
	return lessonModels(rows), nil
}

// SetLessonStatus performs a conditional update: the row is only touched if
// its status still equals `from`. Losing that race is reported as
// lesson.ErrStatusChanged, never as a blind overwrite.
func (repo lessonRepository) SetLessonStatus(ctx context.Context, id string, from, to lesson.Status, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE lesson SET status = $3, updated_at = $4 WHERE lesson_uuid = $1 AND status = $2",
		id, int(from), int(to), time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "updating lesson status")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating lesson status")
	}
	if cnt == 0 {
		if _, err = repo.GetLesson(ctx, id, exec...); err != nil {
			return err
		}
		return lesson.ErrStatusChanged
	}
	return nil
}

func (repo lessonRepository) CreateEnrollment(ctx context.Context, enr lesson.Enrollment, exec ...core.DBExecutor) (lesson.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO join_lesson (join_lesson_uuid, student_uuid, lesson_uuid, created_at)
		 VALUES ($1, $2, $3, $4)`,
		enr.ID, enr.StudentID, enr.LessonID, enr.CreatedAt.UTC(),
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return lesson.Enrollment{}, lesson.ErrStudentEnrolled
		}
		return lesson.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo lessonRepository) ListEnrollments(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]lesson.Enrollee, error) {
	var rows []struct {
		StudentID string `db:"student_uuid"`
		DeviceID  string `db:"device_id"`
	}
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT jl.student_uuid, s.device_id FROM join_lesson jl
		 JOIN student s ON s.student_uuid = jl.student_uuid
		 WHERE jl.lesson_uuid = $1
		 ORDER BY jl.created_at`,
		lessonID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}

	roster := make([]lesson.Enrollee, 0, len(rows))
	for _, r := range rows {
		roster = append(roster, lesson.Enrollee{StudentID: r.StudentID, DeviceID: r.DeviceID})
	}
	return roster, nil
}

func (repo lessonRepository) SeedAttendances(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(studentIDs))
	for range studentIDs {
		ids = append(ids, uuid.New().String())
	}

	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO attendance (attendance_uuid, student_uuid, lesson_uuid, status)
		 SELECT u.id, u.student_uuid, $3, 0
		 FROM unnest($1::uuid[], $2::uuid[]) AS u(id, student_uuid)
		 ON CONFLICT DO NOTHING`,
		pq.Array(ids), pq.Array(studentIDs), lessonID,
	)
	if err != nil {
		return errors.Wrap(err, "seeding attendances")
	}
	return nil
}

func (repo lessonRepository) ListAttendances(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]lesson.Attendance, error) {
	var rows []attendanceRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		"SELECT * FROM attendance WHERE lesson_uuid = $1 ORDER BY student_uuid", lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendances")
	}
	return attendanceModels(rows), nil
}

func (repo lessonRepository) ListStudentAttendances(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]lesson.Attendance, error) {
	var rows []attendanceRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		"SELECT * FROM attendance WHERE student_uuid = $1 ORDER BY lesson_uuid", studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing student attendances")
	}
	return attendanceModels(rows), nil
}

// MarkPresentIfPending is the compare-and-swap at the heart of concurrent
// reconciliation: only rows still Pending are flipped, and RETURNING reports
// exactly the rows this statement changed.
func (repo lessonRepository) MarkPresentIfPending(ctx context.Context, lessonID string, studentIDs []string, exec ...core.DBExecutor) ([]string, error) {
	var updated []string
	err := repo.getExec(exec).SelectContext(ctx, &updated,
		`UPDATE attendance SET status = 1
		 WHERE lesson_uuid = $1 AND student_uuid = ANY($2) AND status = 0
		 RETURNING student_uuid`,
		lessonID, pq.Array(studentIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "marking students present")
	}
	return updated, nil
}

func (repo lessonRepository) MarkAbsentIfPending(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]string, error) {
	var updated []string
	err := repo.getExec(exec).SelectContext(ctx, &updated,
		`UPDATE attendance SET status = -1
		 WHERE lesson_uuid = $1 AND status = 0
		 RETURNING student_uuid`,
		lessonID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "marking students absent")
	}
	return updated, nil
}
