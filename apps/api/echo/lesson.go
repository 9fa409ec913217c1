package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core/lesson"
)

type lessonApi struct {
	svc      lesson.ServiceInterface
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc lesson.ServiceInterface, validate *validator.Validate) {
	api := lessonApi{svc: svc, validate: validate}

	lg := g.Group("/lessons")
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)
	lg.GET("/:id/attendances", api.attendances)

	// teacher-only endpoints
	lg.POST("", api.create, jwt, teacherMiddleware())
	lg.POST("/:id/start", api.start, jwt, teacherMiddleware())
	lg.POST("/:id/end", api.end, jwt, teacherMiddleware())
	lg.POST("/:id/reconcile", api.reconcile, jwt, teacherMiddleware())

	g.POST("/enrollments", api.enroll)
}

// Handlers

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	lsn, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *lessonApi) query(ctx echo.Context) error {
	lessons, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	lsn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) attendances(ctx echo.Context) error {
	attendances, err := api.svc.Attendances(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying lesson attendances")
	}
	if attendances == nil {
		attendances = []lesson.Attendance{}
	}
	return ctx.JSON(http.StatusOK, attendances)
}

func (api *lessonApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	lsn, err := api.svc.Start(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "starting lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) end(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	lsn, err := api.svc.End(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "ending lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) reconcile(ctx echo.Context) error {
	delta, err := api.svc.Reconcile(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reconciling lesson")
	}
	if delta == nil {
		delta = []string{}
	}
	return ctx.JSON(http.StatusOK, ReconcileResponse{MarkedPresent: delta})
}

func (api *lessonApi) enroll(ctx echo.Context) error {
	var data lesson.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

type ReconcileResponse struct {
	MarkedPresent []string `json:"marked_present"`
}
