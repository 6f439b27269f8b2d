package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of the raw body, keyed by the app secret.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// SignatureMiddleware rejects requests whose X-Hub-Signature-256 does not
// match the body. An empty secret disables the check.
func SignatureMiddleware(appSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if appSecret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readDelivery(w, r)
			if err != nil {
				logger.ErrorContext(r.Context(), "Failed to read body for signature check", "error", err)
				w.WriteHeader(readErrorStatus(err))
				return
			}

			if !ValidSignature(appSecret, body, r.Header.Get(SignatureHeader)) {
				logger.WarnContext(r.Context(), "Rejected delivery with invalid signature")
				http.Error(w, "Invalid signature", http.StatusForbidden)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidSignature reports whether header is "sha256=<hex hmac of body>".
func ValidSignature(appSecret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(appSecret, body))
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(appSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return mac.Sum(nil)
}
