package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/student"
)

type studentRow struct {
	ID        string    `db:"student_uuid"`
	Name      string    `db:"name"`
	StudentNo int       `db:"student_id"`
	DeviceID  string    `db:"device_id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r studentRow) model() student.Student {
	return student.Student{
		ID:        r.ID,
		Name:      r.Name,
		StudentNo: r.StudentNo,
		DeviceID:  r.DeviceID,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func studentModels(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.model())
	}
	return students
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo studentRepository) CheckDeviceIDUniqueness(ctx context.Context, deviceID string, exec ...core.DBExecutor) error {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM student WHERE device_id = $1)", deviceID)
	if err != nil {
		return errors.Wrap(err, "checking device ID uniqueness")
	}
	if exists {
		return student.ErrDeviceExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	std.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO student (student_uuid, name, student_id, device_id, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		std.ID, std.Name, std.StudentNo, std.DeviceID, std.Email, std.CreatedAt.UTC(), std.UpdatedAt.UTC(),
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) QueryAllStudents(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error) {
	var rows []studentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, "SELECT * FROM student ORDER BY "+defaultOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentModels(rows), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT * FROM student WHERE student_uuid = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	return row.model(), nil
}

func (repo studentRepository) GetStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]student.Student, error) {
	var rows []studentRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		"SELECT * FROM student WHERE student_uuid = ANY($1) ORDER BY "+defaultOrdering.String(), pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "querying students by ID")
	}
	return studentModels(rows), nil
}
