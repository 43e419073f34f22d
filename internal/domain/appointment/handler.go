package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/voidsystems/appointment-service/internal/platform/auth"
	"github.com/voidsystems/appointment-service/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/check", h.CheckSlot)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PUT("/appointments/:id/status/:status", h.UpdateAppointmentStatus)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
}

func actorFrom(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	var f Filter
	if f.ClientID, err = optionalUUID(c, "client_id"); err != nil {
		return err
	}
	if f.ProviderID, err = optionalUUID(c, "provider_id"); err != nil {
		return err
	}
	if f.ServiceID, err = optionalUUID(c, "service_id"); err != nil {
		return err
	}
	if p := c.QueryParam("status"); p != "" {
		status, ok := ParseStatus(p)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = &status
	}
	if p := c.QueryParam("date"); p != "" {
		date, err := time.Parse("2006-01-02", p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
		f.Date = &date
	}
	if f.From, err = optionalTime(c, "from"); err != nil {
		return err
	}
	if f.To, err = optionalTime(c, "to"); err != nil {
		return err
	}
	f.Upcoming = c.QueryParam("upcoming") == "true"

	items, total, err := h.svc.List(c.Request().Context(), actor, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status, ok := ParseStatus(c.Param("status"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	appt, err := h.svc.UpdateStatus(c.Request().Context(), actor, id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CheckSlot(c echo.Context) error {
	providerID, err := uuid.Parse(c.QueryParam("provider_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be RFC 3339")
	}

	available, err := h.svc.CheckSlot(c.Request().Context(), providerID, start, end)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": available})
}

func optionalUUID(c echo.Context, name string) (*uuid.UUID, error) {
	p := c.QueryParam(name)
	if p == "" {
		return nil, nil
	}
	id, err := uuid.Parse(p)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func optionalTime(c echo.Context, name string) (*time.Time, error) {
	p := c.QueryParam(name)
	if p == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, p)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be RFC 3339")
	}
	return &t, nil
}
