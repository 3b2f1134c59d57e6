package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dvizioon/oxypass/internal/service"
	"github.com/dvizioon/oxypass/internal/util"
)

type AuthHandler struct {
	auth *service.AuthService
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	handler := &AuthHandler{auth: auth}

	public := e.Group("/api/v1/auth")
	public.POST("/login", handler.login)
	public.POST("/google", handler.loginWithGoogle)

	protected := e.Group("/api/v1/auth", RequireAuth(auth))
	protected.GET("/me", handler.me)

	admin := e.Group("/api/v1/users", RequireAuth(auth), RequireAdmin())
	admin.POST("", handler.createUser)
	admin.GET("", handler.listUsers)
	admin.DELETE("/:id", handler.deleteUser)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, util.Error("invalid email or password"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to authenticate"))
	}
	return c.JSON(http.StatusOK, util.Data("session", session))
}

func (h *AuthHandler) loginWithGoogle(c echo.Context) error {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	session, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, util.Error("google token rejected"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to authenticate"))
	}
	return c.JSON(http.StatusOK, util.Data("session", session))
}

func (h *AuthHandler) me(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return c.JSON(http.StatusOK, util.Data("user", user))
}

func (h *AuthHandler) createUser(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	user, err := h.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, util.Error("email already registered"))
		}
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	return c.JSON(http.StatusCreated, util.Data("user", user))
}

func (h *AuthHandler) listUsers(c echo.Context) error {
	limit, offset := parsePagination(c, 20, 0)
	users, err := h.auth.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list users"))
	}
	return c.JSON(http.StatusOK, util.Data("users", users))
}

func (h *AuthHandler) deleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}
	if err := h.auth.DeleteUser(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("user not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("unable to delete user"))
	}
	return c.JSON(http.StatusOK, util.Message("user deleted"))
}
