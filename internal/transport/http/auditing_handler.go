package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/service"
	"github.com/dvizioon/oxypass/internal/util"
)

type AuditingHandler struct {
	auditing *service.AuditingService
}

func RegisterAuditing(e *echo.Echo, auth *service.AuthService, auditing *service.AuditingService) {
	handler := &AuditingHandler{auditing: auditing}

	admin := e.Group("/api/v1/auditing", RequireAuth(auth), RequireAdmin())
	admin.GET("", handler.list)
	admin.GET("/:id", handler.get)
	admin.PATCH("/:id", handler.update)
	admin.DELETE("/:id", handler.remove)
}

func (h *AuditingHandler) list(c echo.Context) error {
	limit, offset := parsePagination(c, 20, 0)
	items, total, err := h.auditing.List(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list auditing records"))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":  true,
		"auditing": items,
		"total":    total,
	})
}

func (h *AuditingHandler) get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	record, err := h.auditing.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAuditingMissing) {
			return c.JSON(http.StatusNotFound, util.Error("auditing record not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to load auditing record"))
	}
	return c.JSON(http.StatusOK, util.Data("auditing", record))
}

func (h *AuditingHandler) update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req struct {
		Status      *string `json:"status"`
		Description *string `json:"description"`
		EmailSent   *bool   `json:"email_sent"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	record, err := h.auditing.Update(c.Request().Context(), id, domain.AuditingPatch{
		Status:      req.Status,
		Description: req.Description,
		EmailSent:   req.EmailSent,
	})
	if err != nil {
		if errors.Is(err, service.ErrAuditingMissing) {
			return c.JSON(http.StatusNotFound, util.Error("auditing record not found"))
		}
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	return c.JSON(http.StatusOK, util.Data("auditing", record))
}

func (h *AuditingHandler) remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	if err := h.auditing.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrAuditingMissing) {
			return c.JSON(http.StatusNotFound, util.Error("auditing record not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to delete auditing record"))
	}
	return c.JSON(http.StatusOK, util.Message("auditing record deleted"))
}
