package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/application"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/internal/interface/middleware"
	"github.com/collabhub/collabhub/pkg/helpers"
	"github.com/collabhub/collabhub/pkg/response"
	"github.com/collabhub/collabhub/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type ProfileService interface {
	Get(ctx context.Context, userID string) (*application.ProfileView, error)
	GetByUsername(ctx context.Context, username string) (*application.ProfileView, error)
	Update(ctx context.Context, userID string, in application.UpdateProfileInput) (*application.ProfileView, error)
	ChangeUsername(ctx context.Context, userID, username string) (*entity.User, error)
	ChangeEmail(ctx context.Context, userID, email string) (*entity.User, error)
	UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error)
	Search(ctx context.Context, q string, size int) ([]gateway.ProfileDocument, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type ProfileHandler struct {
	Svc     ProfileService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewProfileHandler(svc ProfileService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type socialLinkDTO struct {
	Type string `json:"type" binding:"required,oneof=github twitter linkedin website gitlab"`
	URL  string `json:"url" binding:"required,http_url"`
}

type experienceDTO struct {
	Company   string     `json:"company" binding:"required,max=100"`
	Position  string     `json:"position" binding:"required,max=100"`
	StartDate time.Time  `json:"start_date" binding:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type projectDTO struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"required,max=500"`
	URL         string `json:"url" binding:"required,http_url"`
}

type updateProfileRequest struct {
	Name        string          `json:"name" binding:"max=100"`
	Bio         string          `json:"bio"`
	Location    string          `json:"location" binding:"max=100"`
	Company     string          `json:"company" binding:"max=100"`
	SocialLinks []socialLinkDTO `json:"social_links" binding:"max=5,dive"`
	Experiences []experienceDTO `json:"experiences" binding:"dive"`
	Projects    []projectDTO    `json:"projects" binding:"dive"`
}

type profileResponse struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Email       string          `json:"email,omitempty"`
	Name        string          `json:"name"`
	AvatarURL   string          `json:"avatar_url"`
	Bio         string          `json:"bio"`
	Location    string          `json:"location"`
	Company     string          `json:"company"`
	SocialLinks []socialLinkDTO `json:"social_links"`
	Experiences []experienceDTO `json:"experiences"`
	Projects    []projectDTO    `json:"projects"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// toProfile renders a view. The email is only shown to its owner.
func toProfile(v *application.ProfileView, owner bool) profileResponse {
	p := v.Profile
	out := profileResponse{
		UserID:      v.User.ID(),
		Username:    v.User.Username().String(),
		Name:        p.Name(),
		AvatarURL:   p.AvatarURL(),
		Bio:         p.Bio(),
		Location:    p.Location(),
		Company:     p.Company(),
		SocialLinks: []socialLinkDTO{},
		Experiences: []experienceDTO{},
		Projects:    []projectDTO{},
		CreatedAt:   v.User.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
	if owner {
		out.Email = v.User.Email().String()
	}
	for _, l := range p.SocialLinks() {
		out.SocialLinks = append(out.SocialLinks, socialLinkDTO{Type: string(l.Type), URL: l.URL})
	}
	for _, e := range p.Experiences() {
		out.Experiences = append(out.Experiences, experienceDTO(e))
	}
	for _, pr := range p.Projects() {
		out.Projects = append(out.Projects, projectDTO(pr))
	}
	return out
}

func (r updateProfileRequest) input() application.UpdateProfileInput {
	in := application.UpdateProfileInput{
		Name:     r.Name,
		Bio:      r.Bio,
		Location: r.Location,
		Company:  r.Company,
	}
	for _, l := range r.SocialLinks {
		in.SocialLinks = append(in.SocialLinks, entity.SocialLink{Type: entity.SocialLinkType(l.Type), URL: l.URL})
	}
	for _, e := range r.Experiences {
		in.Experiences = append(in.Experiences, entity.Experience(e))
	}
	for _, p := range r.Projects {
		in.Projects = append(in.Projects, entity.ProjectShowcase(p))
	}
	return in
}

// Me GET /api/profile/me
func (h *ProfileHandler) Me(c *gin.Context) {
	v, err := h.Svc.Get(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfile(v, true), "profile", nil)
}

// Public GET /api/profiles/:username
func (h *ProfileHandler) Public(c *gin.Context) {
	v, err := h.Svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfile(v, false), "profile", nil)
}

// Update PUT /api/profile/me
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	v, err := h.Svc.Update(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.input())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfile(v, true), "profile updated", nil)
}

// ChangeUsername PATCH /api/profile/me/username {username}
func (h *ProfileHandler) ChangeUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,handle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.ChangeUsername(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.Username)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"username": u.Username().String()}, "username updated", nil)
}

// ChangeEmail PATCH /api/profile/me/email {email}
func (h *ProfileHandler) ChangeEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.ChangeEmail(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.Email)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"email": u.Email().String()}, "email updated", nil)
}

// UploadAvatar POST /api/profile/me/avatar (multipart field "avatar")
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is unreadable", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}

// Search GET /api/profiles/search?q=&size=
func (h *ProfileHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	docs, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, docs, "profiles", map[string]any{"count": len(docs)})
}

// DeleteAccount DELETE /api/profile/me
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "account deleted", nil)
}
