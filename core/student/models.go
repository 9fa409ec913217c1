package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rollcall/core"
)

type Student struct {
	ID        string    `json:"student_uuid"`
	Name      string    `json:"name"`
	StudentNo int       `json:"student_id"`
	DeviceID  string    `json:"device_id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name      string `json:"name" validate:"required"`
	StudentNo int    `json:"student_id" validate:"required"`
	DeviceID  string `json:"device_id" validate:"required,deviceid"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.DeviceID = core.CleanString(ns.DeviceID)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckDeviceIDUniqueness(ns.DeviceID)
}
