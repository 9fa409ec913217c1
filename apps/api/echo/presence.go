package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
)

type presenceApi struct {
	svc      lesson.ServiceInterface
	validate *validator.Validate
}

func registerPresenceAPI(g *echo.Group, svc lesson.ServiceInterface, validate *validator.Validate) {
	api := presenceApi{svc: svc, validate: validate}

	// un-authed: devices report themselves, reconciliation decides what it means
	g.POST("/presence", api.record)
}

func (api *presenceApi) record(ctx echo.Context) error {
	var data PresenceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PresenceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RecordHeartbeats(ctx.Request().Context(), data.DeviceIDs); err != nil {
		if errors.Cause(err) == lesson.ErrNoneInSession {
			return echo.NewHTTPError(http.StatusNotFound, lesson.ErrNoneInSession.Error())
		}
		return errors.Wrap(err, "recording heartbeats")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "presence recorded"})
}

type (
	PresenceRequest struct {
		DeviceIDs []string `json:"device_ids" validate:"required,min=1,dive,required,deviceid"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (pr *PresenceRequest) Validate(validate *validator.Validate) error {
	for i, id := range pr.DeviceIDs {
		pr.DeviceIDs[i] = core.CleanString(id)
	}
	return validate.Struct(pr)
}
