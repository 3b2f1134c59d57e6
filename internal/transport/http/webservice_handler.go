package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/service"
	"github.com/dvizioon/oxypass/internal/util"
)

type WebServiceHandler struct {
	webservices *service.WebServiceService
}

type webServiceRequest struct {
	Protocol       string  `json:"protocol"`
	URL            string  `json:"url"`
	Token          string  `json:"token"`
	Route          string  `json:"route"`
	ServiceName    string  `json:"serviceName"`
	MoodleUser     *string `json:"moodleUser"`
	MoodlePassword *string `json:"moodlePassword"`
	IsActive       *bool   `json:"isActive"`
}

func RegisterWebServices(e *echo.Echo, auth *service.AuthService, webservices *service.WebServiceService) {
	handler := &WebServiceHandler{webservices: webservices}

	admin := e.Group("/api/v1/webservices", RequireAuth(auth), RequireAdmin())
	admin.POST("", handler.create)
	admin.GET("", handler.list)
	admin.GET("/:id", handler.get)
	admin.PUT("/:id", handler.update)
	admin.PATCH("/:id/toggle", handler.toggleActive)
	admin.DELETE("/:id", handler.remove)
}

func (h *WebServiceHandler) create(c echo.Context) error {
	var req webServiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	input := ports.WebServiceInput{
		Protocol:       req.Protocol,
		URL:            req.URL,
		Token:          req.Token,
		Route:          req.Route,
		ServiceName:    req.ServiceName,
		MoodleUser:     req.MoodleUser,
		MoodlePassword: req.MoodlePassword,
		IsActive:       true,
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}

	ws, err := h.webservices.Create(c.Request().Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebServiceExists):
			return c.JSON(http.StatusConflict, util.Error(err.Error()))
		case errors.Is(err, service.ErrInvalidProtocol):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		default:
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
	}
	return c.JSON(http.StatusCreated, util.Data("webservice", ws))
}

func (h *WebServiceHandler) list(c echo.Context) error {
	limit, offset := parsePagination(c, 20, 0)
	items, total, err := h.webservices.List(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list web services"))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":     true,
		"webservices": items,
		"total":       total,
	})
}

func (h *WebServiceHandler) get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	ws, err := h.webservices.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWebServiceMissing) {
			return c.JSON(http.StatusNotFound, util.Error("web service not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to load web service"))
	}
	return c.JSON(http.StatusOK, util.Data("webservice", ws))
}

func (h *WebServiceHandler) update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	var req struct {
		Protocol       *string `json:"protocol"`
		URL            *string `json:"url"`
		Token          *string `json:"token"`
		Route          *string `json:"route"`
		ServiceName    *string `json:"serviceName"`
		MoodleUser     *string `json:"moodleUser"`
		MoodlePassword *string `json:"moodlePassword"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	ws, err := h.webservices.Update(c.Request().Context(), id, ports.WebServiceUpdate{
		Protocol:       req.Protocol,
		URL:            req.URL,
		Token:          req.Token,
		Route:          req.Route,
		ServiceName:    req.ServiceName,
		MoodleUser:     req.MoodleUser,
		MoodlePassword: req.MoodlePassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebServiceMissing):
			return c.JSON(http.StatusNotFound, util.Error("web service not found"))
		case errors.Is(err, service.ErrWebServiceExists):
			return c.JSON(http.StatusConflict, util.Error(err.Error()))
		default:
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
	}
	return c.JSON(http.StatusOK, util.Data("webservice", ws))
}

func (h *WebServiceHandler) toggleActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	ws, err := h.webservices.ToggleActive(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWebServiceMissing) {
			return c.JSON(http.StatusNotFound, util.Error("web service not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to toggle web service"))
	}
	return c.JSON(http.StatusOK, util.Data("webservice", ws))
}

func (h *WebServiceHandler) remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	if err := h.webservices.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrWebServiceMissing) {
			return c.JSON(http.StatusNotFound, util.Error("web service not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to delete web service"))
	}
	return c.JSON(http.StatusOK, util.Message("web service deleted"))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Param("id")))
}

func parsePagination(c echo.Context, defaultLimit, defaultOffset int) (int, int) {
	limit := defaultLimit
	offset := defaultOffset
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := strings.TrimSpace(c.QueryParam("offset")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
