package triage

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitaltriage/intake/internal/domain/admin"
	"github.com/hospitaltriage/intake/internal/domain/visit"
	"github.com/hospitaltriage/intake/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	nurse := api.Group("", auth.RequireRole(auth.RoleNurse))
	nurse.POST("/visits/:id/triage", h.Triage)
	nurse.GET("/symptom-rules/suggest", h.Suggest)
}

// Suggest answers where the rule engine would route the given symptoms,
// without creating or changing a visit.
func (h *Handler) Suggest(c echo.Context) error {
	suggestion, err := h.svc.SuggestDepartment(c.Request().Context(), c.QueryParam("symptoms"))
	if err != nil {
		if errors.Is(err, ErrNoDestination) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, suggestion)
}

type triageRequest struct {
	Symptoms     string     `json:"symptoms"`
	DepartmentID *uuid.UUID `json:"department_id"`
	DoctorID     *uuid.UUID `json:"doctor_id"`
}

func (h *Handler) Triage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}

	var req triageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.TriageVisit(c.Request().Context(), id, req.Symptoms, req.DepartmentID, req.DoctorID)
	if err != nil {
		var invalid *visit.InvalidTransitionError
		switch {
		case errors.Is(err, visit.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		case errors.Is(err, admin.ErrDepartmentNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "department not found")
		case errors.Is(err, admin.ErrDoctorNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "doctor not found")
		case errors.Is(err, ErrInactiveDoctor):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoDestination):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &invalid):
			return echo.NewHTTPError(http.StatusConflict, invalid.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}
