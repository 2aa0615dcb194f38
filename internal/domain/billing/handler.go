package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "cashier", "finance"))
	read.GET("/visits/:id/payment-status", h.GetPaymentStatus)
	read.GET("/visits/:id/charges", h.ListCharges)

	write := api.Group("", auth.RequireRole("admin", "cashier", "finance"))
	write.POST("/visits/:id/charges", h.RecordCharge)
	write.POST("/charges/:id/settle", h.SettleCharge)
}

func (h *Handler) GetPaymentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	status, err := h.svc.PaymentStatus(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "payment status unavailable")
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) ListCharges(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	charges, err := h.svc.ListCharges(c.Request().Context(), id, auth.FacilityFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "charges unavailable")
	}
	return c.JSON(http.StatusOK, charges)
}

func (h *Handler) RecordCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var ch Charge
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ch.VisitID = id
	ch.FacilityID = auth.FacilityFromContext(c.Request().Context())
	if err := h.svc.RecordCharge(c.Request().Context(), &ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ch)
}

func (h *Handler) SettleCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid charge id")
	}
	if err := h.svc.SettleCharge(c.Request().Context(), id, auth.FacilityFromContext(c.Request().Context())); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"settled": true})
}
