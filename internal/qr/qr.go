// Package qr builds attendee QR codes. The visible payload keeps the plain
// name/email lines; a trailing token line carries the encrypted check-in claim.
package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/skip2/go-qrcode"

	"ms-events/internal/models"
)

const tokenPrefix = "Token: "

var ErrInvalidToken = errors.New("invalid check-in token")

// Claims identifies the registration a QR code admits.
type Claims struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
}

type Generator struct {
	aead cipher.AEAD
	size int
}

func NewGenerator(secret string, size int) (*Generator, error) {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return &Generator{aead: aead, size: size}, nil
}

// Payload is the text encoded into the attendee's QR code.
func (g *Generator) Payload(reg models.Registration) (string, error) {
	token, err := g.Token(Claims{RegistrationID: reg.ID, EventID: reg.EventID})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("First Name: %s\nLast Name: %s\nEmail: %s\n%s%s",
		reg.Field("firstName"), reg.Field("lastName"), reg.Field("email"), tokenPrefix, token), nil
}

func (g *Generator) Token(claims Claims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decode accepts either a bare token or a full scanned payload.
func (g *Generator) Decode(scanned string) (Claims, error) {
	token := strings.TrimSpace(scanned)
	for _, line := range strings.Split(scanned, "\n") {
		if strings.HasPrefix(line, tokenPrefix) {
			token = strings.TrimSpace(strings.TrimPrefix(line, tokenPrefix))
			break
		}
	}

	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	nonceSize := g.aead.NonceSize()
	if len(sealed) < nonceSize {
		return Claims{}, ErrInvalidToken
	}
	data, err := g.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil || claims.RegistrationID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// PNG renders content as a QR image.
func (g *Generator) PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, g.size)
}
