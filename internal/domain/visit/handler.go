package visit

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitaltriage/intake/internal/platform/auth"
	"github.com/hospitaltriage/intake/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RoleDoctor))
	read.GET("/visits", h.List)
	read.GET("/visits/waiting", h.WaitingList)
	read.GET("/visits/:id", h.Get)
	read.GET("/visits/:id/detail", h.GetDetail)
	read.GET("/visits/:id/history", h.GetHistory)

	write := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor))
	write.PATCH("/visits/:id/status", h.ChangeStatus)

	desk := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	desk.POST("/visits", h.Register)
}

type registerVisitRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	VisitDate string    `json:"visit_date"`
}

// Register creates a visit for an existing patient and allocates its
// queue number. New walk-ins usually go through POST /intake instead,
// which also deduplicates the patient record.
func (h *Handler) Register(c echo.Context) error {
	var req registerVisitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	date := time.Now()
	if req.VisitDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.VisitDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid visit_date, expected YYYY-MM-DD")
		}
	}

	v, err := h.svc.RegisterVisit(c.Request().Context(), req.PatientID, date)
	if err != nil {
		switch {
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrQueueConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}

	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get visit")
	}
	return c.JSON(http.StatusOK, v)
}

// GetDetail serves the visit with patient, department and doctor names
// resolved, for screens that show the queue entry in full.
func (h *Handler) GetDetail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}

	d, err := h.svc.GetVisitDetail(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get visit detail")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}

	history, err := h.svc.History(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get visit history")
	}
	return c.JSON(http.StatusOK, history)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}

	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	err = h.svc.ChangeStatus(c.Request().Context(), id, status)
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		case errors.As(err, &invalid):
			return echo.NewHTTPError(http.StatusConflict, invalid.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to change visit status")
		}
	}

	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get visit")
	}
	return c.JSON(http.StatusOK, v)
}

// WaitingList serves the call-order queue, optionally narrowed to one
// status or department. Visits still waiting from earlier days are
// included ahead of today's.
func (h *Handler) WaitingList(c echo.Context) error {
	var status *Status
	if s := c.QueryParam("status"); s != "" {
		st, ok := ParseStatus(s)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		status = &st
	}

	var departmentID *uuid.UUID
	if s := c.QueryParam("department_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		departmentID = &id
	}

	visits, err := h.svc.WaitingList(c.Request().Context(), status, departmentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list waiting visits")
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)

	var date *time.Time
	if s := c.QueryParam("date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		date = &d
	}
	var status *Status
	if s := c.QueryParam("status"); s != "" {
		st, ok := ParseStatus(s)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		status = &st
	}

	var (
		visits []*Visit
		total  int
		err    error
	)
	if s := c.QueryParam("patient_id"); s != "" {
		patientID, perr := uuid.Parse(s)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		visits, total, err = h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	} else {
		visits, total, err = h.svc.ListVisits(c.Request().Context(), date, status, p.Limit, p.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list visits")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, p.Limit, p.Offset))
}
