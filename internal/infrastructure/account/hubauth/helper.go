package hubauth

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"net/http"
	"strings"
)

func isHubAuthCircuitFailure(err error) bool {
	return stderrors.Is(err, errHubAuthTransient)
}

func isHubAuthRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

// hashToken keys the principal cache without holding raw bearer tokens in
// process memory longer than the request that carried them.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
