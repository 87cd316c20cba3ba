package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

// Aliases of the built-in plugins.
const (
	UserAgentAlias      = "user_agent"
	ForwardedForAlias   = "forwarded_for"
	BasicAuthAlias      = "basic_auth"
	JWTAuthAlias        = "jwt_auth"
	DefaultHeadersAlias = "default_headers"
)

const (
	// DefaultUserAgent is sent by the user agent plugin when none is configured.
	DefaultUserAgent = "httpwatch"
	// APISecretHeaderName carries the token signed by the JWT auth plugin.
	APISecretHeaderName = "Httpwatch-Api-Request" // #nosec G101

	jwtTTL    = time.Minute
	jwtIssuer = "httpwatch"
)

// OriginalRemoteIPContextKey is used as the key in a Context to set an X-Forwarded-For header in a request
type OriginalRemoteIPContextKey struct{}

func headerStage(prepare func(req *http.Request) error) pipeline.Middleware {
	return pipeline.MiddlewareFunc(func(next pipeline.Handler) pipeline.Handler {
		return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
			req = req.Clone(req.Context())
			if err := prepare(req); err != nil {
				return nil, err
			}

			return next.Handle(req, opts)
		})
	})
}

// UserAgent sets the User-Agent header of requests that have none.
func UserAgent(userAgent string) pipeline.Middleware {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return headerStage(func(req *http.Request) error {
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", userAgent)
		}
		return nil
	})
}

// ForwardedFor adds the remote address stored under OriginalRemoteIPContextKey as X-Forwarded-For.
func ForwardedFor() pipeline.Middleware {
	return headerStage(func(req *http.Request) error {
		originalRemoteIP, ok := req.Context().Value(OriginalRemoteIPContextKey{}).(string)
		if ok && originalRemoteIP != "" {
			req.Header.Add("X-Forwarded-For", originalRemoteIP)
		}
		return nil
	})
}

// BasicAuth authenticates requests with user and password.
func BasicAuth(user, password string) pipeline.Middleware {
	return headerStage(func(req *http.Request) error {
		if user != "" && password != "" {
			req.SetBasicAuth(user, password)
		}
		return nil
	})
}

// JWTAuth signs a short lived token with secret and sends it in the APISecretHeaderName header.
func JWTAuth(secret string) pipeline.Middleware {
	secretBytes := []byte(strings.TrimSpace(secret))

	return headerStage(func(req *http.Request) error {
		now := time.Now()
		claims := jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtTTL)),
		}

		tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretBytes)
		if err != nil {
			return fmt.Errorf("sign api request token: %w", err)
		}
		req.Header.Set(APISecretHeaderName, tokenString)

		return nil
	})
}

// DefaultHeaders sets every header in headers that the request does not carry yet.
func DefaultHeaders(headers map[string]string) pipeline.Middleware {
	return headerStage(func(req *http.Request) error {
		for name, value := range headers {
			if req.Header.Get(name) == "" {
				req.Header.Set(name, value)
			}
		}
		return nil
	})
}
