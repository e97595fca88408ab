package reporting

import (
	"bytes"
	"net/http"
	"time"

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
	staff := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RoleDoctor))
	staff.GET("/dashboard", h.Dashboard)

	adm := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adm.GET("/reports/daily", h.DailyReport)
	adm.GET("/reports/daily/export", h.ExportDailyReport)
}

// departmentFilter parses the optional department_id query parameter.
func departmentFilter(c echo.Context) (*uuid.UUID, error) {
	s := c.QueryParam("department_id")
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
	}
	return &id, nil
}

func (h *Handler) Dashboard(c echo.Context) error {
	deptID, err := departmentFilter(c)
	if err != nil {
		return err
	}

	board, err := h.svc.Dashboard(c.Request().Context(), deptID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build dashboard")
	}
	return c.JSON(http.StatusOK, board)
}

// reportRange parses the mandatory from/to bounds of a report request.
func (h *Handler) reportRange(c echo.Context) (time.Time, time.Time, error) {
	fromParam := c.QueryParam("from")
	toParam := c.QueryParam("to")
	if fromParam == "" || toParam == "" {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "from and to dates are required")
	}

	from, err := time.Parse("2006-01-02", fromParam)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toParam)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}
	return from, to, nil
}

func (h *Handler) DailyReport(c echo.Context) error {
	from, to, err := h.reportRange(c)
	if err != nil {
		return err
	}
	deptID, err := departmentFilter(c)
	if err != nil {
		return err
	}

	report, err := h.svc.Report(c.Request().Context(), from, to, deptID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ExportDailyReport(c echo.Context) error {
	from, to, err := h.reportRange(c)
	if err != nil {
		return err
	}
	deptID, err := departmentFilter(c)
	if err != nil {
		return err
	}

	report, err := h.svc.Report(c.Request().Context(), from, to, deptID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report.Days); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render csv")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="daily_report.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
