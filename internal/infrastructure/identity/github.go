package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubAPI            = "https://api.github.com"
	defaultGitHubTimeout = 10 * time.Second
)

// GitHubAccount is what a completed GitHub code exchange yields.
type GitHubAccount struct {
	ID              int64
	Login           string
	Name            string
	AvatarURL       string
	HTMLURL         string
	Bio             string
	Company         string
	Location        string
	Blog            string
	TwitterUsername string
	// Emails are verified addresses, primary first.
	Emails      []string
	AccessToken string
}

type githubUser struct {
	ID              int64  `json:"id"`
	Login           string `json:"login"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	AvatarURL       string `json:"avatar_url"`
	HTMLURL         string `json:"html_url"`
	Bio             string `json:"bio"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Blog            string `json:"blog"`
	TwitterUsername string `json:"twitter_username"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type GitHubClient struct {
	config  *oauth2.Config
	apiBase string
	http    *http.Client
}

func NewGitHubClient(clientID, clientSecret, redirectURL string, scopes []string) *GitHubClient {
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &GitHubClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		apiBase: githubAPI,
		http:    &http.Client{Timeout: defaultGitHubTimeout},
	}
}

// WithTimeout bounds every GitHub call and the exchange as a whole.
// Non-positive values keep the default.
func (c *GitHubClient) WithTimeout(d time.Duration) *GitHubClient {
	if d > 0 {
		c.http.Timeout = d
	}
	return c
}

// WithEndpoints points the client at another GitHub host, such as GitHub
// Enterprise.
func (c *GitHubClient) WithEndpoints(authURL, tokenURL, apiBase string) *GitHubClient {
	c.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	c.apiBase = apiBase
	return c
}

func (c *GitHubClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "true"))
}

// Exchange trades an authorization code for a token and loads the account
// behind it.
func (c *GitHubClient) Exchange(ctx context.Context, code string) (*GitHubAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.http.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	client := c.config.Client(ctx, tok)
	client.Timeout = c.http.Timeout

	var u githubUser
	if err := getJSON(ctx, client, c.apiBase+"/user", &u); err != nil {
		return nil, err
	}

	var emails []githubEmail
	if err := getJSON(ctx, client, c.apiBase+"/user/emails", &emails); err != nil {
		// Without the user:email scope only the public address is known.
		emails = nil
	}

	return &GitHubAccount{
		ID:              u.ID,
		Login:           u.Login,
		Name:            u.Name,
		AvatarURL:       u.AvatarURL,
		HTMLURL:         u.HTMLURL,
		Bio:             u.Bio,
		Company:         u.Company,
		Location:        u.Location,
		Blog:            u.Blog,
		TwitterUsername: u.TwitterUsername,
		Emails:          orderEmails(emails, u.Email),
		AccessToken:     tok.AccessToken,
	}, nil
}

// orderEmails keeps verified addresses, primary first. The public profile
// email is used when no verified address is listed.
func orderEmails(emails []githubEmail, public string) []string {
	var out []string
	for _, e := range emails {
		if e.Primary && e.Verified {
			out = append(out, e.Email)
		}
	}
	for _, e := range emails {
		if !e.Primary && e.Verified {
			out = append(out, e.Email)
		}
	}
	if len(out) == 0 && public != "" {
		out = append(out, public)
	}
	return out
}

func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github api %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github api %s: status %d: %s", url, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("github api %s: decode: %w", url, err)
	}
	return nil
}
