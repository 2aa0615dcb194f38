package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

// Handler exposes the compliance-review read surface. Journey events are
// written by the Recorder, never over HTTP.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "super_admin", "compliance"))
	g.GET("/audit-events", h.SearchEvents)
}

func (h *Handler) SearchEvents(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"action", "entity-type", "entity", "category", "forced", "facility"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	events, total, err := h.repo.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit search failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}
