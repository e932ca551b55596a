package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"motobooking/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single username/password pair accepted by BasicAuth.
// When PasswordHash is set it is a bcrypt hash and Password is ignored.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}

	return userOK && passOK
}

// BasicAuth rejects every request that does not carry the configured
// credentials with 401 and a Basic challenge for realm.
func BasicAuth(creds Credentials, realm string, log *logger.Logger) func(http.Handler) http.Handler {
	challenge := fmt.Sprintf("Basic realm=%q", realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, err := parseBasicAuth(r.Header.Get("Authorization"))
			if err != nil {
				rejectUnauthorized(w, log, r, challenge, err.Error())
				return
			}

			if !creds.Verify(username, password) {
				rejectUnauthorized(w, log, r, challenge, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseBasicAuth(header string) (string, string, error) {
	if header == "" {
		return "", "", errors.New("missing Authorization header")
	}

	encoded, found := strings.CutPrefix(header, "Basic ")
	if !found {
		return "", "", errors.New("unsupported authorization scheme")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errors.New("malformed credentials encoding")
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", errors.New("malformed credentials")
	}

	return username, password, nil
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, challenge, reason string) {
	log.Warn("Authentication failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("WWW-Authenticate", challenge)
	writeJSONError(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
}
