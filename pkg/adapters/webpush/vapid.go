package webpush

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const vapidExpiration = 12 * time.Hour

// subjectClaim returns the contact URI signed into the VAPID token. Bare
// addresses are treated as e-mail.
func subjectClaim(subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(subject, "https:") || strings.HasPrefix(subject, "mailto:") {
		return subject
	}
	return "mailto:" + subject
}

// librarySubscriber returns the subject in the form webpush-go expects: it
// prefixes anything that is not an https URL with mailto: itself.
func librarySubscriber(subject string) string {
	return strings.TrimPrefix(subjectClaim(subject), "mailto:")
}

// vapidAuthorization builds the `vapid t=<jwt>, k=<public key>` header for endpoint.
func vapidAuthorization(endpoint, subject, publicKey, privateKey string, now time.Time) (string, error) {
	target, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("webpush: parse endpoint: %w", err)
	}

	rawPrivate, err := decodeKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("webpush: decode vapid private key: %w", err)
	}
	rawPublic, err := decodeKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("webpush: decode vapid public key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": target.Scheme + "://" + target.Host,
		"exp": now.Add(vapidExpiration).Unix(),
		"sub": subjectClaim(subject),
	})
	signed, err := token.SignedString(signingKey(rawPrivate))
	if err != nil {
		return "", fmt.Errorf("webpush: sign vapid token: %w", err)
	}
	return "vapid t=" + signed + ", k=" + base64.RawURLEncoding.EncodeToString(rawPublic), nil
}

func signingKey(d []byte) *ecdsa.PrivateKey {
	curve := elliptic.P256()
	x, y := curve.ScalarBaseMult(d)
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         new(big.Int).SetBytes(d),
	}
}

func decodeKey(key string) ([]byte, error) {
	if raw, err := base64.URLEncoding.DecodeString(key); err == nil {
		return raw, nil
	}
	return base64.RawURLEncoding.DecodeString(key)
}

// sendBodiless posts a push message without payload. The request carries no
// content coding, so subscription keys are not used.
func (a *Adapter) sendBodiless(ctx context.Context, endpoint string) (*http.Response, error) {
	authorization, err := vapidAuthorization(endpoint, a.cfg.Subject, a.cfg.VAPIDPublicKey, a.cfg.VAPIDPrivateKey, time.Now())
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("TTL", strconv.Itoa(a.cfg.TTL))
	if a.cfg.Urgency != "" {
		req.Header.Set("Urgency", a.cfg.Urgency)
	}
	req.Header.Set("Authorization", authorization)
	return a.client.Do(req)
}
