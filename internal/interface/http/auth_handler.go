package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/application"
	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/interface/middleware"
	"github.com/collabhub/collabhub/pkg/helpers"
	"github.com/collabhub/collabhub/pkg/response"
	"github.com/collabhub/collabhub/pkg/validation"
)

type AuthService interface {
	GitHubLoginURL(ctx context.Context) (string, error)
	GitHubCallback(ctx context.Context, state, code string) (*application.SignInResult, error)
	SignUp(ctx context.Context, email, password, username string) (*application.SignInResult, error)
	SignIn(ctx context.Context, email, password string) (*application.SignInResult, error)
	Refresh(ctx context.Context, refreshToken string) (application.TokenPair, string, error)
	Logout(ctx context.Context, userID string) error
}

type AuthHandler struct {
	Svc         AuthService
	Logger      *logrus.Logger
	Cookies     *helpers.Manager
	FrontendURL string
}

func NewAuthHandler(svc AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool, frontendURL string) *AuthHandler {
	return &AuthHandler{
		Svc:         svc,
		Logger:      logger,
		Cookies:     helpers.NewCookie(cookieDomain, cookieSecure),
		FrontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Username string `json:"username" binding:"required,handle"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type accountResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsNew    bool   `json:"is_new"`
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	}
}

// GitHubLogin GET /api/auth/github/login
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	u, err := h.Svc.GitHubLoginURL(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}

// GitHubCallback GET /api/auth/github/callback?state=&code=
// The browser is sent back to the frontend either way; failures carry the
// public message in the error query parameter.
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.Redirect(http.StatusFound, h.FrontendURL+"/login?error="+url.QueryEscape("github sign-in was cancelled"))
		return
	}
	res, err := h.Svc.GitHubCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		if kind := apperror.KindOf(err); kind == apperror.KindTechnical || kind == apperror.KindProvider {
			orStandard(h.Logger).WithError(err).WithField("request_id", c.GetString("request_id")).Error("github callback failed")
		}
		c.Redirect(http.StatusFound, h.FrontendURL+"/login?error="+url.QueryEscape(apperror.PublicMessage(err)))
		return
	}
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	dest := h.FrontendURL + "/"
	if res.IsNew {
		dest = h.FrontendURL + "/welcome"
	}
	c.Redirect(http.StatusFound, dest)
}

// SignUp POST /api/auth/signup {email, password, username}
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	response.Success(c, http.StatusCreated, toAccount(res), "account created", tokenMeta(res.Tokens))
}

// SignIn POST /api/auth/signin {email, password}
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, toAccount(res), "login successful", tokenMeta(res.Tokens))
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", tokenMeta(pair))
}

// Logout POST /api/auth/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		orStandard(h.Logger).WithError(err).Warn("session revoke failed")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

func toAccount(res *application.SignInResult) accountResponse {
	return accountResponse{
		UserID:   res.User.ID(),
		Username: res.User.Username().String(),
		Email:    res.User.Email().String(),
		IsNew:    res.IsNew,
	}
}
