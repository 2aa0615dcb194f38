package visit

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "cashier", "finance"))
	read.GET("/visits/active", h.ListActive)
	read.GET("/visits/:id", h.GetVisit)
	read.GET("/visits/:id/timeline", h.GetTimeline)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "cashier", "finance"))
	write.POST("/visits", h.CreateVisit)
	write.POST("/visits/:id/route", h.RouteVisit)
	write.POST("/visits/:id/stage", h.AppendStage)
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var body struct {
		PatientID uuid.UUID `json:"patient_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.CreateVisit(c.Request().Context(), body.PatientID, actorFromContext(c))
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id, actorFromContext(c))
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetTimeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.Timeline(c.Request().Context(), id, actorFromContext(c))
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListActive(c echo.Context) error {
	pg := pagination.FromContext(c)
	visits, total, err := h.svc.ListActive(c.Request().Context(), actorFromContext(c), pg.Limit, pg.Offset)
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
}

func (h *Handler) RouteVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		DestinationStage string `json:"destination_stage"`
		Force            bool   `json:"force"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Route(c.Request().Context(), id, body.DestinationStage, body.Force, actorFromContext(c))
	if err != nil {
		return journeyError(err)
	}

	resp := map[string]interface{}{
		"success":        true,
		"stage":          result.Stage,
		"routing_status": result.RoutingStatus,
	}
	if result.Forced {
		resp["forced"] = true
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) AppendStage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Stage string `json:"stage"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.AppendMilestone(c.Request().Context(), id, body.Stage, actorFromContext(c))
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"stage":          result.Stage,
		"routing_status": result.RoutingStatus,
	})
}

// journeyError maps the journey error taxonomy onto HTTP statuses. Audit
// durability failures get their own status body so operators can tell a lost
// audit trail apart from a generic failure.
func journeyError(err error) error {
	var durability *audit.DurabilityError
	switch {
	case errors.Is(err, ErrInvalidStage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrPaymentGateBlocked),
		errors.Is(err, ErrClinicalGateBlocked),
		errors.Is(err, ErrStageConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &durability):
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
			"error": "audit_durability_failure",
			"detail": "the stage change committed but its audit record could not be persisted; " +
				"the audit trail requires reconciliation",
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// actorFromContext resolves the acting staff member from the request's
// identity claims. Every read and write downstream is scoped by the actor's
// facility.
func actorFromContext(c echo.Context) Actor {
	ctx := c.Request().Context()
	actor := Actor{
		FacilityID: auth.FacilityFromContext(ctx),
		Roles:      auth.RolesFromContext(ctx),
	}
	if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
		actor.ID = id
	}
	return actor
}
