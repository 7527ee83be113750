package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ServiceKeyHeader carries the shared key used by internal callers instead of a JWT.
const ServiceKeyHeader = "X-Service-Key"

const (
	ContextKeyToken   = "auth_token"
	ContextKeySubject = "auth_subject"
)

type Config struct {
	Enabled         bool
	JWKSURL         string
	Issuer          string
	Audience        string
	RefreshInterval time.Duration
	ServiceKey      string
}

// Validator validates JWTs using JWKS, or the internal service key.
type Validator struct {
	cfg     Config
	log     zerolog.Logger
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.Enabled || cfg.JWKSURL == "" {
		return &Validator{cfg: cfg, log: log}, nil
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:     cfg,
		log:     log,
		keyfunc: jwks.Keyfunc,
		jwks:    jwks,
	}, nil
}

// NewValidatorWithKeyfunc builds a validator around a fixed key source.
func NewValidatorWithKeyfunc(cfg Config, kf jwt.Keyfunc, log zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, log: log, keyfunc: kf}
}

// Middleware enforces auth when enabled.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if v.validServiceKey(c.GetHeader(ServiceKeyHeader)) {
			c.Set(ContextKeySubject, "service")
			c.Next()
			return
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		if v.keyfunc == nil {
			abortUnauthorized(c, "token validation unavailable")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
		if issuer := strings.TrimSpace(v.cfg.Issuer); issuer != "" {
			opts = append(opts, jwt.WithIssuer(issuer))
		}
		if audience := strings.TrimSpace(v.cfg.Audience); audience != "" {
			opts = append(opts, jwt.WithAudience(audience))
		}

		token, err := jwt.Parse(tokenString, v.keyfunc, opts...)
		if err != nil || !token.Valid {
			v.log.Debug().Err(err).Msg("token rejected")
			abortUnauthorized(c, "invalid token")
			return
		}

		subject, _ := token.Claims.GetSubject()
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.Enabled {
		return true
	}
	return v.keyfunc != nil || v.cfg.ServiceKey != ""
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func (v *Validator) validServiceKey(got string) bool {
	want := strings.TrimSpace(v.cfg.ServiceKey)
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(got))) == 1
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
