package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/teacher"
)

type teacherRow struct {
	ID           string    `db:"teacher_uuid"`
	Name         string    `db:"name"`
	TeacherNo    int       `db:"teacher_id"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r teacherRow) model() teacher.Teacher {
	return teacher.Teacher{
		ID:           r.ID,
		Name:         r.Name,
		TeacherNo:    r.TeacherNo,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type teacherRepository struct {
	db core.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db core.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo teacherRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded []teacher.Teacher, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excluded))
	for _, tch := range excluded {
		ids = append(ids, tch.ID)
	}

	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM teacher WHERE email = $1 AND NOT (teacher_uuid = ANY($2)))",
		email, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return teacher.ErrEmailExists
	}
	return nil
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, tch teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	tch.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO teacher (teacher_uuid, name, teacher_id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tch.ID, tch.Name, tch.TeacherNo, tch.Email, tch.PasswordHash, tch.CreatedAt.UTC(), tch.UpdatedAt.UTC(),
	)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo teacherRepository) QueryAllTeachers(ctx context.Context, exec ...core.DBExecutor) ([]teacher.Teacher, error) {
	var rows []teacherRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, "SELECT * FROM teacher ORDER BY "+defaultOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, r.model())
	}
	return teachers, nil
}

func (repo teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var row teacherRow
	var err error

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		err = repo.getExec(exec).GetContext(ctx, &row, "SELECT * FROM teacher WHERE teacher_uuid = $1", filter.ID)
	} else if filter.Email != "" {
		err = repo.getExec(exec).GetContext(ctx, &row, "SELECT * FROM teacher WHERE email = $1", filter.Email)
	} else {
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		return teacher.Teacher{}, errors.Wrap(err, "finding teacher")
	}
	return row.model(), nil
}

func (repo teacherRepository) UpdateOrCreateTeacher(ctx context.Context, tch teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	if tch.ID == "" {
		return repo.CreateTeacher(ctx, tch, exec...)
	}

	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE teacher SET name = $2, teacher_id = $3, email = $4, password_hash = $5, updated_at = $6
		 WHERE teacher_uuid = $1`,
		tch.ID, tch.Name, tch.TeacherNo, tch.Email, tch.PasswordHash, time.Now().UTC(),
	)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return tch, nil
}
