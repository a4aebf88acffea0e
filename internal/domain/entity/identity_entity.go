package entity

// Identity providers known to the platform.
const (
	ProviderGitHub   = "github"
	ProviderPassword = "password"
)

// ProfileAttributes are the public attributes an identity provider exposed
// about the person.
type ProfileAttributes struct {
	DisplayName   string
	LoginHandle   string
	AvatarURL     string
	Bio           string
	HTMLURL       string
	Company       string
	Location      string
	TwitterHandle string
	Blog          string
}

// ExternalIdentity is the outcome of a completed sign-in at the identity
// provider. By the time one exists the provider has already minted ID.
type ExternalIdentity struct {
	ID             string
	Provider       string
	ExternalUserID int64
	Emails         []string
	IsNewIdentity  bool
	AccessToken    string
	Profile        ProfileAttributes
}

// PrimaryEmail is the first email the provider reported.
func (i ExternalIdentity) PrimaryEmail() string {
	if len(i.Emails) == 0 {
		return ""
	}
	return i.Emails[0]
}

func (i ExternalIdentity) HasAccessToken() bool { return i.AccessToken != "" }
