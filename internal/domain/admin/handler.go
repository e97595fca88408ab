package admin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitaltriage/intake/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Staff need departments and doctors to triage with; rule management
	// stays admin-only.
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RoleDoctor))
	read.GET("/departments", h.ListDepartments)
	read.GET("/departments/:id", h.GetDepartment)
	read.GET("/doctors", h.ListDoctors)
	read.GET("/doctors/:id", h.GetDoctor)

	adm := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adm.POST("/departments", h.CreateDepartment)
	adm.PUT("/departments/:id", h.UpdateDepartment)
	adm.DELETE("/departments/:id", h.DeleteDepartment)
	adm.PUT("/departments/:id/general", h.SetGeneralDepartment)

	adm.POST("/doctors", h.CreateDoctor)
	adm.PUT("/doctors/:id", h.UpdateDoctor)
	adm.DELETE("/doctors/:id", h.DeleteDoctor)

	adm.GET("/rules", h.ListRules)
	adm.GET("/rules/:id", h.GetRule)
	adm.POST("/rules", h.CreateRule)
	adm.PUT("/rules/:id", h.UpdateRule)
	adm.DELETE("/rules/:id", h.DeleteRule)
}

type departmentRequest struct {
	Code      *string `json:"code"`
	Name      string  `json:"name"`
	IsGeneral bool    `json:"is_general"`
	IsActive  *bool   `json:"is_active"`
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d := &Department{Code: req.Code, Name: req.Name, IsGeneral: req.IsGeneral, IsActive: true}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := h.svc.CreateDepartment(c.Request().Context(), d); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	d, err := h.svc.GetDepartment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "department not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get department")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	depts, err := h.svc.ListDepartments(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list departments")
	}
	return c.JSON(http.StatusOK, depts)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d := &Department{ID: id, Code: req.Code, Name: req.Name, IsActive: true}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := h.svc.UpdateDepartment(c.Request().Context(), d); err != nil {
		switch {
		case errors.Is(err, ErrDepartmentNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "department not found")
		case errors.Is(err, ErrDuplicateName):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteDepartment deactivates the department; the row stays so visit
// history keeps resolving.
func (h *Handler) DeleteDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	if err := h.svc.DeactivateDepartment(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "department not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to deactivate department")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetGeneralDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	if err := h.svc.SetGeneralDepartment(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "department not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to set general department")
	}
	return c.NoContent(http.StatusNoContent)
}

type doctorRequest struct {
	Code         *string   `json:"code"`
	FullName     string    `json:"full_name"`
	DepartmentID uuid.UUID `json:"department_id"`
	Active       *bool     `json:"active"`
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req doctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d := &Doctor{Code: req.Code, FullName: req.FullName, DepartmentID: req.DepartmentID, Active: true}
	if req.Active != nil {
		d.Active = *req.Active
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), d); err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "department not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get doctor")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	var departmentID *uuid.UUID
	if s := c.QueryParam("department_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		departmentID = &id
	}
	activeOnly := c.QueryParam("active") == "true"

	doctors, err := h.svc.ListDoctors(c.Request().Context(), departmentID, activeOnly)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list doctors")
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	var req doctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d := &Doctor{ID: id, Code: req.Code, FullName: req.FullName, DepartmentID: req.DepartmentID, Active: true}
	if req.Active != nil {
		d.Active = *req.Active
	}
	if err := h.svc.UpdateDoctor(c.Request().Context(), d); err != nil {
		switch {
		case errors.Is(err, ErrDoctorNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		case errors.Is(err, ErrDepartmentNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "department not found")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete doctor")
	}
	return c.NoContent(http.StatusNoContent)
}

type ruleRequest struct {
	Keyword      string    `json:"keyword"`
	DepartmentID uuid.UUID `json:"department_id"`
	Active       *bool     `json:"is_active"`
}

func (h *Handler) CreateRule(c echo.Context) error {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	r := &SymptomRule{Keyword: req.Keyword, DepartmentID: req.DepartmentID, Active: true}
	if req.Active != nil {
		r.Active = *req.Active
	}
	if err := h.svc.CreateRule(c.Request().Context(), r); err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "department not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}

	r, err := h.svc.GetRule(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "symptom rule not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get symptom rule")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRules(c echo.Context) error {
	var (
		rules []*SymptomRule
		err   error
	)
	if c.QueryParam("active") == "true" {
		rules, err = h.svc.ListActiveRules(c.Request().Context())
	} else {
		rules, err = h.svc.ListRules(c.Request().Context())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list symptom rules")
	}
	return c.JSON(http.StatusOK, rules)
}

func (h *Handler) UpdateRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}

	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	r := &SymptomRule{ID: id, Keyword: req.Keyword, DepartmentID: req.DepartmentID, Active: true}
	if req.Active != nil {
		r.Active = *req.Active
	}
	if err := h.svc.UpdateRule(c.Request().Context(), r); err != nil {
		switch {
		case errors.Is(err, ErrRuleNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "symptom rule not found")
		case errors.Is(err, ErrDepartmentNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "department not found")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}

	if err := h.svc.DeleteRule(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "symptom rule not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete symptom rule")
	}
	return c.NoContent(http.StatusNoContent)
}
