// Package redirectlink construye los links de redirección del approach
// REDIRECT. El link lleva un state token firmado (HS256) que ata la sesión de
// redirección a la autorización concreta, con expiración corta del perfil.
package redirectlink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Builder firma y arma los links ok/nok a partir de los templates del perfil.
// Placeholders soportados: {authorisation-id}, {token}.
type Builder struct {
	Secret      []byte
	OkTemplate  string
	NokTemplate string
	TokenTTL    time.Duration
}

// TokenClaims es el contenido del state token.
type TokenClaims struct {
	AuthorisationID string `json:"authorisation_id"`
	ParentID        string `json:"parent_id"`
	jwtv5.RegisteredClaims
}

// Build retorna (redirectURI, nokRedirectURI). El nok link puede quedar vacío
// si el perfil no define template nok.
func (b *Builder) Build(authorisationID, parentID string) (string, string, error) {
	if b.OkTemplate == "" {
		return "", "", errors.New("redirectlink: no redirect template configured")
	}

	token, err := b.sign(authorisationID, parentID)
	if err != nil {
		return "", "", fmt.Errorf("redirectlink: sign state token: %w", err)
	}

	ok := expand(b.OkTemplate, authorisationID, token)
	nok := ""
	if b.NokTemplate != "" {
		nok = expand(b.NokTemplate, authorisationID, token)
	}
	return ok, nok, nil
}

// Parse valida un state token y retorna sus claims.
func (b *Builder) Parse(token string) (*TokenClaims, error) {
	var claims TokenClaims
	_, err := jwtv5.ParseWithClaims(token, &claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("redirectlink: unexpected signing method %v", t.Header["alg"])
		}
		return b.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func (b *Builder) sign(authorisationID, parentID string) (string, error) {
	ttl := b.TokenTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := time.Now()
	claims := TokenClaims{
		AuthorisationID: authorisationID,
		ParentID:        parentID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(b.Secret)
}

func expand(template, authorisationID, token string) string {
	out := strings.ReplaceAll(template, "{authorisation-id}", authorisationID)
	return strings.ReplaceAll(out, "{token}", token)
}
