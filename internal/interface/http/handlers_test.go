package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabhub/collabhub/internal/application"
	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	handlers "github.com/collabhub/collabhub/internal/interface/http"
	"github.com/collabhub/collabhub/internal/interface/middleware"
	"github.com/collabhub/collabhub/pkg/response"
	"github.com/collabhub/collabhub/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type fakeAuth struct {
	result *application.SignInResult
	err    error
	logout []string
}

func (f *fakeAuth) GitHubLoginURL(context.Context) (string, error) {
	return "https://github.com/login/oauth/authorize?state=s1", f.err
}

func (f *fakeAuth) GitHubCallback(context.Context, string, string) (*application.SignInResult, error) {
	return f.result, f.err
}

func (f *fakeAuth) SignUp(context.Context, string, string, string) (*application.SignInResult, error) {
	return f.result, f.err
}

func (f *fakeAuth) SignIn(context.Context, string, string) (*application.SignInResult, error) {
	return f.result, f.err
}

func (f *fakeAuth) Refresh(context.Context, string) (application.TokenPair, string, error) {
	if f.err != nil {
		return application.TokenPair{}, "", f.err
	}
	return f.result.Tokens, f.result.User.ID(), nil
}

func (f *fakeAuth) Logout(_ context.Context, userID string) error {
	f.logout = append(f.logout, userID)
	return nil
}

func signedIn(t *testing.T, isNew bool) *application.SignInResult {
	t.Helper()
	now := time.Now().UTC()
	u, err := entity.ReconstituteUser("gh_1", "alice", "a@x.com", now, now)
	require.NoError(t, err)
	return &application.SignInResult{
		User:  u,
		IsNew: isNew,
		Tokens: application.TokenPair{
			AccessToken: "access", AccessTokenExpiry: now.Add(time.Hour),
			RefreshToken: "refresh", RefreshTokenExpiry: now.Add(24 * time.Hour),
		},
	}
}

// asUser stands in for the auth middleware.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, id)
		c.Next()
	}
}

func authRouter(svc handlers.AuthService) *gin.Engine {
	h := handlers.NewAuthHandler(svc, nil, "localhost", false, "http://app.test/")
	r := gin.New()
	r.GET("/github/login", h.GitHubLogin)
	r.GET("/github/callback", h.GitHubCallback)
	r.POST("/signup", h.SignUp)
	r.POST("/signin", h.SignIn)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", asUser("gh_1"), h.Logout)
	return r
}

func do(r http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse[map[string]any] {
	t.Helper()
	var out response.APIResponse[map[string]any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func cookieNames(w *httptest.ResponseRecorder) []string {
	var names []string
	for _, ck := range w.Result().Cookies() {
		names = append(names, ck.Name)
	}
	return names
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "created",
			body:     `{"email":"a@x.com","password":"password1","username":"alice"}`,
			wantCode: http.StatusCreated,
			wantMsg:  "account created",
		},
		{
			name:     "bad payload",
			body:     `{"email":"nope","password":"short","username":"al"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid payload",
		},
		{
			name:     "email taken",
			body:     `{"email":"a@x.com","password":"password1","username":"alice"}`,
			svcErr:   apperror.Conflict("onboarding.duplicate_check", "email already registered", nil),
			wantCode: http.StatusConflict,
			wantMsg:  "email already registered",
		},
		{
			name:     "store down",
			body:     `{"email":"a@x.com","password":"password1","username":"alice"}`,
			svcErr:   apperror.Technical("onboarding.create_user", errors.New("dial tcp: refused")),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "sign-in failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuth{result: signedIn(t, true), err: tt.svcErr}
			w := do(authRouter(svc), http.MethodPost, "/signup", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			out := decode(t, w)
			assert.Equal(t, tt.wantMsg, out.Message)
			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, "gh_1", out.Data["user_id"])
				assert.Equal(t, true, out.Data["is_new"])
				assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, cookieNames(w))
			} else {
				assert.Empty(t, cookieNames(w))
			}
		})
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	svc := &fakeAuth{err: apperror.Unauthorized("password.sign_in", "invalid email or password")}
	w := do(authRouter(svc), http.MethodPost, "/signin", `{"email":"a@x.com","password":"whatever"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decode(t, w).Message)
}

func TestGitHubFlow(t *testing.T) {
	t.Run("login redirects to github", func(t *testing.T) {
		w := do(authRouter(&fakeAuth{}), http.MethodGet, "/github/login", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "github.com/login/oauth/authorize")
	})

	t.Run("new account lands on welcome", func(t *testing.T) {
		w := do(authRouter(&fakeAuth{result: signedIn(t, true)}), http.MethodGet, "/github/callback?state=s&code=c", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/welcome", w.Header().Get("Location"))
		assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, cookieNames(w))
	})

	t.Run("returning account lands on home", func(t *testing.T) {
		w := do(authRouter(&fakeAuth{result: signedIn(t, false)}), http.MethodGet, "/github/callback?state=s&code=c", "")
		assert.Equal(t, "http://app.test/", w.Header().Get("Location"))
	})

	t.Run("failure carries public message", func(t *testing.T) {
		svc := &fakeAuth{err: apperror.Conflict("onboarding.duplicate_check", "username already taken", nil)}
		w := do(authRouter(svc), http.MethodGet, "/github/callback?state=s&code=c", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/login?error=username+already+taken", w.Header().Get("Location"))
		assert.Empty(t, cookieNames(w))
	})

	t.Run("user cancelled on github", func(t *testing.T) {
		w := do(authRouter(&fakeAuth{}), http.MethodGet, "/github/callback?error=access_denied", "")
		assert.Contains(t, w.Header().Get("Location"), "/login?error=")
	})
}

func TestRefresh(t *testing.T) {
	w := do(authRouter(&fakeAuth{}), http.MethodPost, "/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc := &fakeAuth{result: signedIn(t, false)}
	w = do(authRouter(svc), http.MethodPost, "/refresh", "", &http.Cookie{Name: "refresh_token", Value: "r"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, cookieNames(w))
}

func TestLogout(t *testing.T) {
	svc := &fakeAuth{}
	w := do(authRouter(svc), http.MethodPost, "/logout", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"gh_1"}, svc.logout)
	for _, ck := range w.Result().Cookies() {
		assert.Empty(t, ck.Value)
	}
}

type fakeProfiles struct {
	view    *application.ProfileView
	err     error
	update  application.UpdateProfileInput
	deleted []string
	docs    []gateway.ProfileDocument
}

func (f *fakeProfiles) Get(context.Context, string) (*application.ProfileView, error) {
	return f.view, f.err
}

func (f *fakeProfiles) GetByUsername(context.Context, string) (*application.ProfileView, error) {
	return f.view, f.err
}

func (f *fakeProfiles) Update(_ context.Context, _ string, in application.UpdateProfileInput) (*application.ProfileView, error) {
	f.update = in
	return f.view, f.err
}

func (f *fakeProfiles) ChangeUsername(context.Context, string, string) (*entity.User, error) {
	return f.view.User, f.err
}

func (f *fakeProfiles) ChangeEmail(context.Context, string, string) (*entity.User, error) {
	return f.view.User, f.err
}

func (f *fakeProfiles) UploadAvatar(_ context.Context, _ string, r io.Reader, filename, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://cdn.test/avatars/gh_1/" + filename, f.err
}

func (f *fakeProfiles) Search(context.Context, string, int) ([]gateway.ProfileDocument, error) {
	return f.docs, f.err
}

func (f *fakeProfiles) DeleteAccount(_ context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return f.err
}

func aliceView(t *testing.T) *application.ProfileView {
	t.Helper()
	now := time.Now().UTC()
	u, err := entity.ReconstituteUser("gh_1", "alice", "a@x.com", now, now)
	require.NoError(t, err)
	p, err := entity.NewProfile(entity.ProfileData{
		UserID:      "gh_1",
		Name:        "Alice",
		SocialLinks: []entity.SocialLink{{Type: entity.SocialGitHub, URL: "https://github.com/alice"}},
	})
	require.NoError(t, err)
	return &application.ProfileView{User: u, Profile: p}
}

func profileRouter(svc handlers.ProfileService) *gin.Engine {
	h := handlers.NewProfileHandler(svc, nil, "localhost", false)
	r := gin.New()
	me := r.Group("/me", asUser("gh_1"))
	me.GET("", h.Me)
	me.PUT("", h.Update)
	me.PATCH("/username", h.ChangeUsername)
	me.POST("/avatar", h.UploadAvatar)
	me.DELETE("", h.DeleteAccount)
	r.GET("/profiles/search", h.Search)
	r.GET("/profiles/:username", h.Public)
	return r
}

func TestProfile_MeShowsEmailPublicDoesNot(t *testing.T) {
	r := profileRouter(&fakeProfiles{view: aliceView(t)})

	me := decode(t, do(r, http.MethodGet, "/me", ""))
	assert.Equal(t, "a@x.com", me.Data["email"])
	assert.Equal(t, "alice", me.Data["username"])
	links := me.Data["social_links"].([]any)
	require.Len(t, links, 1)

	public := decode(t, do(r, http.MethodGet, "/profiles/alice", ""))
	_, hasEmail := public.Data["email"]
	assert.False(t, hasEmail)
}

func TestProfile_NotFound(t *testing.T) {
	r := profileRouter(&fakeProfiles{err: apperror.NotFound("user.find", "user not found")})
	w := do(r, http.MethodGet, "/profiles/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", decode(t, w).Message)
}

func TestProfile_UpdateMapsPayload(t *testing.T) {
	svc := &fakeProfiles{view: aliceView(t)}
	body := `{
		"name": "Alice",
		"bio": "Go developer",
		"social_links": [{"type": "website", "url": "https://alice.dev"}],
		"experiences": [{"company": "Acme", "position": "Engineer", "start_date": "2020-01-01T00:00:00Z"}],
		"projects": [{"name": "saga", "description": "onboarding", "url": "https://github.com/alice/saga"}]
	}`

	w := do(profileRouter(svc), http.MethodPut, "/me", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go developer", svc.update.Bio)
	require.Len(t, svc.update.SocialLinks, 1)
	assert.Equal(t, entity.SocialWebsite, svc.update.SocialLinks[0].Type)
	require.Len(t, svc.update.Experiences, 1)
	assert.Equal(t, "Acme", svc.update.Experiences[0].Company)
	require.Len(t, svc.update.Projects, 1)
}

func TestProfile_UpdateRejectsUnknownLinkType(t *testing.T) {
	w := do(profileRouter(&fakeProfiles{view: aliceView(t)}), http.MethodPut, "/me",
		`{"social_links": [{"type": "myspace", "url": "https://myspace.com/alice"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfile_UsernameConflict(t *testing.T) {
	svc := &fakeProfiles{view: aliceView(t), err: apperror.Conflict("profile.change", "username already taken", nil)}
	w := do(profileRouter(svc), http.MethodPatch, "/me/username", `{"username":"bob"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProfile_UploadAvatar(t *testing.T) {
	var body strings.Builder
	body.WriteString("--b\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"avatar\"; filename=\"me.png\"\r\n")
	body.WriteString("Content-Type: image/png\r\n\r\n")
	body.WriteString("\x89PNG\r\n")
	body.WriteString("--b--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/me/avatar", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	w := httptest.NewRecorder()
	profileRouter(&fakeProfiles{view: aliceView(t)}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.test/avatars/gh_1/me.png", decode(t, w).Data["avatar_url"])
}

func TestProfile_Search(t *testing.T) {
	svc := &fakeProfiles{docs: []gateway.ProfileDocument{{UserID: "gh_1", Username: "alice"}}}
	w := do(profileRouter(svc), http.MethodGet, "/profiles/search?q=go", "")

	require.Equal(t, http.StatusOK, w.Code)
	var out response.APIResponse[[]gateway.ProfileDocument]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "alice", out.Data[0].Username)
}

func TestProfile_DeleteAccount(t *testing.T) {
	svc := &fakeProfiles{}
	w := do(profileRouter(svc), http.MethodDelete, "/me", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"gh_1"}, svc.deleted)
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, cookieNames(w))
}
