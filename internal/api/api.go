package api

import (
	"errors"
	"net/http"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/internal/ports"
	"github.com/jetbridge/checkin/internal/utils"
	"github.com/jetbridge/checkin/internal/validator"
	"github.com/jetbridge/checkin/pkg/logger"
)

func ScheduleCheckinHandler(service ports.CheckinService, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			scheduleCheckin(service, log, w, r)
		}
	}
}

func scheduleCheckin(service ports.CheckinService, log logger.Logger, w http.ResponseWriter, r *http.Request) {
	var request models.ScheduleCheckinRequest
	if err := utils.JsonDecodeBody(r, &request); err != nil {
		ae := utils.NewUnprocessableEntity("Invalid parameters", "invalid_parameters")
		utils.RenderResponse(w, ae.StatusCode, ae)
		return
	}

	v := validator.NewCustomValidator()
	if err := v.Validate(request); err != nil {
		ae := utils.NewUnprocessableEntity("Invalid parameters", "invalid_parameters")
		utils.RenderResponse(w, ae.StatusCode, ae)
		return
	}

	response, err := service.ScheduleCheckin(r.Context(), &request)
	if err != nil {
		ae := getApiError(err)
		// Full detail stays server-side; the 500 body is generic.
		log.Error("schedule checkin failed",
			"confirmation_number", request.Data.ConfirmationNumber,
			"status", ae.StatusCode,
			"error", err)
		utils.RenderResponse(w, ae.StatusCode, ae)
		return
	}

	utils.RenderResponse(w, http.StatusOK, response)
}

func getApiError(err error) utils.ApiError {
	if errors.Is(err, models.ErrNoFutureLegs) {
		return utils.NewUnprocessableEntity("No future legs found", "no_future_legs")
	}
	return utils.NewInternalServerError()
}
