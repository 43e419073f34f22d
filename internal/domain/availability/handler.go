package availability

import (
	"net/http"
	"strconv"

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
	api.GET("/availabilities", h.ListAvailabilities)
	api.GET("/availabilities/:id", h.GetAvailability)
	api.GET("/availabilities/provider/:providerID", h.ListByProvider)

	write := api.Group("", auth.RequireRole(auth.RoleProvider))
	write.POST("/availabilities/provider/:providerID", h.CreateAvailability)
	write.PUT("/availabilities/:id", h.UpdateAvailability)
	write.DELETE("/availabilities/:id", h.DeleteAvailability)
}

func actorFrom(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func (h *Handler) CreateAvailability(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Create(c.Request().Context(), actor, providerID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAvailabilities(c echo.Context) error {
	p := c.QueryParam("provider_id")
	if p == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider_id is required")
	}
	providerID, err := uuid.Parse(p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
	}
	return h.list(c, providerID)
}

func (h *Handler) ListByProvider(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	return h.list(c, providerID)
}

func (h *Handler) list(c echo.Context, providerID uuid.UUID) error {
	pg := pagination.FromContext(c)

	var recurring *bool
	if p := c.QueryParam("recurring"); p != "" {
		r, err := strconv.ParseBool(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid recurring filter")
		}
		recurring = &r
	}

	items, total, err := h.svc.ListByProvider(c.Request().Context(), providerID, recurring, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAvailability(c echo.Context) error {
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
	a, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAvailability(c echo.Context) error {
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
