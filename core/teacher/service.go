package teacher

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

var (
	// errors
	ErrNotFound    = errors.New("teacher not found")
	ErrEmailExists = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded []Teacher, exec ...core.DBExecutor) error
		CreateTeacher(ctx context.Context, tch Teacher, exec ...core.DBExecutor) (Teacher, error)
		QueryAllTeachers(ctx context.Context, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacher(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Teacher, error)
		UpdateOrCreateTeacher(ctx context.Context, tch Teacher, exec ...core.DBExecutor) (Teacher, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excluded ...Teacher) error
		Create(ctx context.Context, nt NewTeacher) (Teacher, error)
		QueryAll(ctx context.Context) ([]Teacher, error)
		GetByID(ctx context.Context, id string) (Teacher, error)
		GetByEmail(ctx context.Context, email string) (Teacher, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckEmailUniqueness(email string, excluded ...Teacher) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excluded); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	tch := Teacher{
		Name:      nt.Name,
		TeacherNo: nt.TeacherNo,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tch.SetPassword(nt.Password); err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, tch)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryAllTeachers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
