package onboarding

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/collabhub/collabhub/internal/domain/entity"
)

const maxShortField = 100

var urlCheck = validator.New()

// profileFromIdentity pre-populates a profile from what the identity
// provider told us. Anything that would not pass profile validation is
// dropped rather than failing the run.
func profileFromIdentity(ident entity.ExternalIdentity) entity.ProfileData {
	attrs := ident.Profile
	login := strings.TrimSpace(attrs.LoginHandle)

	name := strings.TrimSpace(attrs.DisplayName)
	if name == "" {
		name = login
	}

	data := entity.ProfileData{
		UserID:   ident.ID,
		Name:     clip(name, maxShortField),
		Bio:      clip(strings.TrimSpace(attrs.Bio), entity.MaxBioLength),
		Location: clip(strings.TrimSpace(attrs.Location), maxShortField),
		Company:  clip(strings.TrimSpace(attrs.Company), maxShortField),
	}
	if isHTTPURL(attrs.AvatarURL) {
		data.AvatarURL = attrs.AvatarURL
	}

	if ident.Provider == entity.ProviderGitHub {
		switch {
		case isHTTPURL(attrs.HTMLURL):
			data.SocialLinks = append(data.SocialLinks, entity.SocialLink{Type: entity.SocialGitHub, URL: attrs.HTMLURL})
		case login != "":
			data.SocialLinks = append(data.SocialLinks, entity.SocialLink{Type: entity.SocialGitHub, URL: "https://github.com/" + login})
		}
	}
	if handle := strings.TrimPrefix(strings.TrimSpace(attrs.TwitterHandle), "@"); handle != "" {
		if u := "https://x.com/" + handle; isHTTPURL(u) {
			data.SocialLinks = append(data.SocialLinks, entity.SocialLink{Type: entity.SocialTwitter, URL: u})
		}
	}
	if blog := normalizeBlog(attrs.Blog); blog != "" {
		data.SocialLinks = append(data.SocialLinks, entity.SocialLink{Type: entity.SocialWebsite, URL: blog})
	}
	return data
}

// normalizeBlog accepts bare hosts ("example.dev") as GitHub returns them.
func normalizeBlog(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if !isHTTPURL(raw) {
		return ""
	}
	return raw
}

func isHTTPURL(s string) bool {
	return s != "" && urlCheck.Var(s, "http_url") == nil
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
