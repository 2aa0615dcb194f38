package clinical

import (
	"errors"
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
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/visits/:id/discharge-summary", h.GetSummary)

	write := api.Group("", auth.RequireRole("admin", "physician"))
	write.POST("/visits/:id/discharge-summary", h.CreateSummary)
	write.POST("/discharge-summaries/:id/sign", h.SignSummary)
}

func (h *Handler) GetSummary(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	ds, err := h.svc.GetByVisit(c.Request().Context(), visitID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "discharge summary not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "discharge summary unavailable")
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *Handler) CreateSummary(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var authorID *uuid.UUID
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		authorID = &uid
	}

	ds, err := h.svc.CreateSummary(c.Request().Context(), visitID, authorID, req.Body)
	if errors.Is(err, ErrEmptyBody) {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyBody.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create discharge summary")
	}
	return c.JSON(http.StatusCreated, ds)
}

func (h *Handler) SignSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid summary id")
	}
	authorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "unknown signer")
	}

	switch err := h.svc.SignSummary(c.Request().Context(), id, authorID); {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "discharge summary not found")
	case errors.Is(err, ErrAlreadySigned):
		return echo.NewHTTPError(http.StatusConflict, "discharge summary already signed")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not sign discharge summary")
	}
	return c.JSON(http.StatusOK, map[string]bool{"signed": true})
}
