package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/service"
	"github.com/dvizioon/oxypass/internal/util"
)

// MoodleHandler exposes the password-reset flow and the lookup endpoints
// that talk to the registered Moodle instances.
type MoodleHandler struct {
	reset       *service.ResetService
	webservices *service.WebServiceService
}

func RegisterMoodle(e *echo.Echo, auth *service.AuthService, reset *service.ResetService, webservices *service.WebServiceService) {
	handler := &MoodleHandler{reset: reset, webservices: webservices}

	public := e.Group("/api/v1/moodle")
	public.POST("/reset-password", handler.resetPassword, ResetRateLimiter())
	public.POST("/validate-reset-token", handler.validateResetToken)
	public.POST("/change-password", handler.changePassword)
	public.GET("/urls", handler.listURLs)

	admin := e.Group("/api/v1/moodle", RequireAuth(auth), RequireAdmin())
	admin.POST("/find-user", handler.findUser)
}

func (h *MoodleHandler) resetPassword(c echo.Context) error {
	var req struct {
		MoodleURL string `json:"moodleUrl"`
		Email     string `json:"email"`
		Username  string `json:"username"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.reset.RequestPasswordReset(c.Request().Context(), req.MoodleURL, req.Email, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMoodleURLRequired),
			errors.Is(err, service.ErrIdentifierRequired),
			errors.Is(err, service.ErrIdentifierConflict):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrUserSuspended):
			return c.JSON(http.StatusForbidden, util.Error("account is suspended, contact the administrator"))
		case errors.Is(err, service.ErrTemplateNotConfigured):
			return c.JSON(http.StatusInternalServerError, util.Error("email template not configured"))
		case errors.Is(err, service.ErrEmailSendFailed):
			return c.JSON(http.StatusInternalServerError, util.Error("could not send the reset email"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not process the reset request"))
		}
	}

	response := util.Message(result.Message)
	if result.User != nil {
		response["user"] = result.User
		response["expiresIn"] = result.ExpiresIn
	}
	return c.JSON(http.StatusOK, response)
}

func (h *MoodleHandler) validateResetToken(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("token is required"))
	}

	claims, _, err := h.reset.ValidateResetToken(c.Request().Context(), req.Token)
	if err != nil {
		return tokenErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"success": true,
		"valid":   true,
		"user": util.Envelope{
			"username":  claims.Username,
			"email":     claims.Email,
			"moodleUrl": claims.MoodleURL,
		},
	})
}

func (h *MoodleHandler) changePassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("token is required"))
	}

	if err := h.reset.ChangePassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, util.ErrPasswordTooShort), errors.Is(err, util.ErrPasswordTooLong):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrWebServiceNotFound):
			return c.JSON(http.StatusNotFound, util.Error("web service not found"))
		case errors.Is(err, service.ErrTokenNotFound),
			errors.Is(err, service.ErrTokenConsumed),
			errors.Is(err, service.ErrTokenExpired),
			errors.Is(err, service.ErrTokenInvalid):
			return tokenErrorResponse(c, err)
		case errors.Is(err, ports.ErrMoodleUpdateRejected):
			return c.JSON(http.StatusBadGateway, util.Error("moodle rejected the password change"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not change the password"))
		}
	}

	return c.JSON(http.StatusOK, util.Message("password changed successfully"))
}

func (h *MoodleHandler) listURLs(c echo.Context) error {
	base := strings.ToLower(strings.TrimSpace(c.QueryParam("base")))
	if base == "" {
		base = "simple"
	}
	if base != "simple" && base != "full" {
		return c.JSON(http.StatusBadRequest, util.Error("base must be simple or full"))
	}

	urls, err := h.webservices.ListURLs(c.Request().Context(), base)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list urls"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true, "urls": urls})
}

func (h *MoodleHandler) findUser(c echo.Context) error {
	var req struct {
		MoodleURL string `json:"moodleUrl"`
		Email     string `json:"email"`
		Username  string `json:"username"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	field := ports.MoodleSearchByEmail
	value := strings.TrimSpace(req.Email)
	if value == "" {
		field = ports.MoodleSearchByUsername
		value = strings.TrimSpace(req.Username)
	}

	user, err := h.reset.FindUser(c.Request().Context(), req.MoodleURL, field, value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMoodleURLRequired), errors.Is(err, service.ErrIdentifierRequired):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrWebServiceNotFound):
			return c.JSON(http.StatusNotFound, util.Error("no active web service for this moodle url"))
		case errors.Is(err, ports.ErrMoodleUserNotFound):
			return c.JSON(http.StatusNotFound, util.Error("user not found"))
		default:
			return c.JSON(http.StatusBadGateway, util.Error("could not query the moodle instance"))
		}
	}

	return c.JSON(http.StatusOK, util.Data("user", user))
}

func tokenErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		return c.JSON(http.StatusNotFound, util.Error("token not found"))
	case errors.Is(err, service.ErrTokenConsumed):
		return c.JSON(http.StatusGone, util.Error("token already used or expired"))
	case errors.Is(err, service.ErrTokenExpired):
		return c.JSON(http.StatusGone, util.Error("token expired"))
	case errors.Is(err, service.ErrTokenInvalid):
		return c.JSON(http.StatusBadRequest, util.Error("token invalid"))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("could not validate the token"))
	}
}
