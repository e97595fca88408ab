package intake

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

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
	desk := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	desk.POST("/intake", h.Register)
}

type registerRequest struct {
	FullName       string  `json:"full_name"`
	IdentityNumber *string `json:"identity_number"`
	DateOfBirth    string  `json:"date_of_birth"`
	Phone          *string `json:"phone"`
	VisitDate      string  `json:"visit_date"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := PatientInput{
		FullName:       req.FullName,
		IdentityNumber: req.IdentityNumber,
		Phone:          req.Phone,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
		}
		in.DateOfBirth = &dob
	}

	date := time.Now()
	if req.VisitDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.VisitDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid visit_date, expected YYYY-MM-DD")
		}
	}

	result, err := h.svc.Register(c.Request().Context(), in, date)
	if err != nil {
		if errors.Is(err, visit.ErrQueueConflict) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}
