// Package auth implements signup, login, and bearer-token verification for
// the analytics API. Passwords are bcrypt-hashed; tokens are HS256 JWTs.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
)

type contextKey string

const userKey contextKey = "auth.user"

// Claims is the JWT payload issued at login.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies credentials against the user store.
type Service struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
}

// NewService builds an auth service. Secret must be non-empty.
func NewService(st store.Store, secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, eris.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: st, secret: []byte(secret), ttl: ttl}, nil
}

// Signup registers a new account. Duplicate emails surface as
// ErrInvalidArgument from the store.
func (s *Service) Signup(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return apperr.InvalidArgumentf("invalid email: %q", email)
	}
	if len(password) < 8 {
		return apperr.InvalidArgument("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return eris.Wrap(err, "auth: hash password")
	}
	return s.store.CreateUser(ctx, model.User{Email: email, PasswordHash: string(hash)})
}

// Login verifies credentials and returns a signed token. Unknown emails and
// wrong passwords produce the same error so callers cannot probe accounts.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Upstream(err, "auth: load user")
	}
	if user == nil {
		return "", apperr.Unauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperr.Unauthenticated("invalid email or password")
	}
	return s.issueToken(user)
}

func (s *Service) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return token, nil
}

// ParseToken verifies a bearer token and returns its claims.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	return &claims, nil
}

// Middleware rejects requests without a valid Bearer token and stores the
// claims in the request context.
func (s *Service) Middleware(reject func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				reject(w, r, apperr.Unauthenticated("missing bearer token"))
				return
			}
			claims, err := s.ParseToken(raw)
			if err != nil {
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns ctx carrying the verified claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userKey, claims)
}

// ClaimsFrom extracts verified claims placed by Middleware; nil when absent.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(userKey).(*Claims)
	return claims
}
