package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	logger *zap.SugaredLogger
}

// NewVerifier returns nil when secret is empty; a nil Verifier lets every request through.
func NewVerifier(secret, issuer string, logger *zap.SugaredLogger) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, logger: logger}
}

// Issue mints a token for subject valid for ttl.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid Authorization: Bearer token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var sub string
			sub, err = v.Verify(token)
			if err == nil {
				v.logger.Debugw("authorized request", "sub", sub, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}
		}
		v.logger.Debugw("unauthorized request", "path", r.URL.Path, "err", err)
		w.Header().Set("WWW-Authenticate", `Bearer realm="subscriber"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(h[len("bearer "):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
