package valueobject

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

const (
	minUsernameLength = 1
	maxUsernameLength = 39
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// reserved names collide with routes or system accounts.
var reservedUsernames = map[string]struct{}{
	"admin": {}, "api": {}, "root": {}, "login": {}, "logout": {},
	"signup": {}, "signin": {}, "settings": {}, "support": {}, "help": {},
	"system": {}, "me": {}, "null": {}, "undefined": {}, "new": {},
	"projects": {},
}

// Username is a lower-cased public handle.
type Username struct {
	value string
}

// NewUsername parses raw into a Username.
func NewUsername(raw string) (Username, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Username{}, apperror.Validation("username.new", "username is required")
	}
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return Username{}, apperror.Validation("username.new", "username must not contain whitespace")
	}
	v = strings.ToLower(v)
	if n := len(v); n < minUsernameLength || n > maxUsernameLength {
		return Username{}, apperror.Validation("username.new", "username must be 1 to 39 characters")
	}
	if !usernamePattern.MatchString(v) {
		return Username{}, apperror.Validation("username.new",
			"username may only contain letters, digits and single inner '-' or '_'")
	}
	if _, ok := reservedUsernames[v]; ok {
		return Username{}, apperror.Validation("username.new", "username is reserved")
	}
	return Username{value: v}, nil
}

func (u Username) String() string { return u.value }

func (u Username) Equals(other Username) bool { return u.value == other.value }

func (u Username) IsZero() bool { return u.value == "" }
