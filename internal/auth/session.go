package auth

import (
	"context"
	"strconv"
	"strings"

	"tenurix/internal/apperror"
)

// Session is the authenticated caller for one request. It is built once from
// verified token claims and never mutated. Permissions are a snapshot taken at
// login; revocations take effect only after the caller authenticates again.
type Session struct {
	userID int64
	hasID  bool
	email  string
	role   string
	perms  PermissionSet
}

// NewSession builds a session from identity claim candidates. The first
// candidate that parses as a positive integer becomes the user id.
func NewSession(idCandidates []string, email, role string, perms []string) Session {
	s := Session{
		email: email,
		role:  role,
		perms: NewPermissionSet(perms...),
	}
	for _, c := range idCandidates {
		id, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err == nil && id > 0 {
			s.userID = id
			s.hasID = true
			break
		}
	}
	return s
}

// UserID returns the caller's id or an Unauthenticated error when the token
// carried no usable identity claim. Callers must abort on error.
func (s Session) UserID() (int64, error) {
	if !s.hasID {
		return 0, apperror.Unauthenticated("missing user id in token")
	}
	return s.userID, nil
}

func (s Session) Email() string { return s.email }

func (s Session) Role() string { return s.role }

func (s Session) HasPermission(key string) bool { return s.perms.Has(key) }

func (s Session) HasAnyPermission(keys ...string) bool { return s.perms.HasAny(keys...) }

// Permissions returns a copy of the permission keys.
func (s Session) Permissions() []string { return s.perms.Keys() }

type sessionKey struct{}

// WithSession stores the session on ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored on ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
