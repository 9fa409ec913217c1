package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrDeviceExists = errors.New("a student with this device ID already exists")
)

type (
	Repository interface {
		CheckDeviceIDUniqueness(ctx context.Context, deviceID string, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		QueryAllStudents(ctx context.Context, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Student, error)
	}

	ServiceInterface interface {
		CheckDeviceIDUniqueness(deviceID string) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		QueryAll(ctx context.Context) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByIDs(ctx context.Context, ids []string) ([]Student, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckDeviceIDUniqueness(deviceID string) error {
	if err := svc.repo.CheckDeviceIDUniqueness(context.Background(), deviceID); err != nil {
		if errors.Cause(err) == ErrDeviceExists {
			return core.NewValidationError(err, core.FieldError{Field: "device_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		Name:      ns.Name,
		StudentNo: ns.StudentNo,
		DeviceID:  ns.DeviceID,
		Email:     ns.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) GetByIDs(ctx context.Context, ids []string) ([]Student, error) {
	return svc.repo.GetStudentsByID(ctx, ids)
}
