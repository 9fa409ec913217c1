package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/core/student"
)

type studentApi struct {
	svc       student.ServiceInterface
	lessonSvc lesson.ServiceInterface
	validate  *validator.Validate
}

func registerStudentAPI(g *echo.Group, svc student.ServiceInterface, lessonSvc lesson.ServiceInterface, validate *validator.Validate) {
	api := studentApi{svc: svc, lessonSvc: lessonSvc, validate: validate}

	sg := g.Group("/students")
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/lessons", api.lessons)
	sg.GET("/:id/attendances", api.attendances)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) lessons(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	lessons, err := api.lessonSvc.QueryByStudent(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "querying student lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *studentApi) attendances(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	attendances, err := api.lessonSvc.StudentAttendances(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "querying student attendances")
	}
	if attendances == nil {
		attendances = []lesson.Attendance{}
	}
	return ctx.JSON(http.StatusOK, attendances)
}

func (api *studentApi) getStudent(ctx echo.Context) (student.Student, error) {
	std, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	return std, nil
}
