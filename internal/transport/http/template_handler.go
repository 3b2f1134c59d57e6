package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/service"
	"github.com/dvizioon/oxypass/internal/util"
)

type TemplateHandler struct {
	templates *service.TemplateService
}

func RegisterTemplates(e *echo.Echo, auth *service.AuthService, templates *service.TemplateService) {
	handler := &TemplateHandler{templates: templates}

	admin := e.Group("/api/v1/templates", RequireAuth(auth), RequireAdmin())
	admin.POST("", handler.create)
	admin.GET("", handler.list)
	admin.GET("/variables", handler.variables)
	admin.GET("/:id", handler.get)
	admin.PUT("/:id", handler.update)
	admin.PATCH("/:id/default", handler.setDefault)
	admin.PATCH("/:id/toggle", handler.toggleActive)
	admin.DELETE("/:id", handler.remove)
}

func (h *TemplateHandler) create(c echo.Context) error {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Subject     string  `json:"subject"`
		Content     string  `json:"content"`
		Type        string  `json:"type"`
		IsActive    *bool   `json:"isActive"`
		IsDefault   bool    `json:"isDefault"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	input := ports.EmailTemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Subject:     req.Subject,
		Content:     req.Content,
		Type:        req.Type,
		IsActive:    true,
		IsDefault:   req.IsDefault,
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}

	tmpl, err := h.templates.Create(c.Request().Context(), input)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	return c.JSON(http.StatusCreated, util.Data("template", tmpl))
}

func (h *TemplateHandler) list(c echo.Context) error {
	limit, offset := parsePagination(c, 20, 0)
	items, total, err := h.templates.List(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list templates"))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":   true,
		"templates": items,
		"total":     total,
	})
}

func (h *TemplateHandler) variables(c echo.Context) error {
	return c.JSON(http.StatusOK, util.Data("variables", h.templates.Variables()))
}

func (h *TemplateHandler) get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	tmpl, err := h.templates.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateMissing) {
			return c.JSON(http.StatusNotFound, util.Error("template not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to load template"))
	}
	return c.JSON(http.StatusOK, util.Data("template", tmpl))
}

func (h *TemplateHandler) update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Subject     *string `json:"subject"`
		Content     *string `json:"content"`
		Type        *string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	tmpl, err := h.templates.Update(c.Request().Context(), id, ports.EmailTemplateUpdate{
		Name:        req.Name,
		Description: req.Description,
		Subject:     req.Subject,
		Content:     req.Content,
		Type:        req.Type,
	})
	if err != nil {
		if errors.Is(err, service.ErrTemplateMissing) {
			return c.JSON(http.StatusNotFound, util.Error("template not found"))
		}
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	return c.JSON(http.StatusOK, util.Data("template", tmpl))
}

func (h *TemplateHandler) setDefault(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	tmpl, err := h.templates.SetDefault(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateMissing) {
			return c.JSON(http.StatusNotFound, util.Error("template not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to set default template"))
	}
	return c.JSON(http.StatusOK, util.Data("template", tmpl))
}

func (h *TemplateHandler) toggleActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	tmpl, err := h.templates.ToggleActive(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateMissing) {
			return c.JSON(http.StatusNotFound, util.Error("template not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to toggle template"))
	}
	return c.JSON(http.StatusOK, util.Data("template", tmpl))
}

func (h *TemplateHandler) remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	if err := h.templates.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrTemplateMissing) {
			return c.JSON(http.StatusNotFound, util.Error("template not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to delete template"))
	}
	return c.JSON(http.StatusOK, util.Message("template deleted"))
}
