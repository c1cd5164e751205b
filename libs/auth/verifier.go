package auth

import "time"

// Verifier validates bearer tokens issued by the external identity provider.
// RS256 tokens are checked against the provider's JWKS endpoint; an HS256
// shared secret can be configured instead for local development.
type Verifier struct {
	jwks   *JWKSClient
	secret string
}

func NewJWKSVerifier(jwksURL string, ttl time.Duration) *Verifier {
	return &Verifier{jwks: NewJWKSClient(jwksURL, ttl)}
}

func NewHS256Verifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	if v.secret != "" {
		return ParseAndVerifyHS256(token, v.secret)
	}
	if v.jwks == nil {
		return nil, ErrInvalidToken
	}
	header, err := ParseHeader(token)
	if err != nil {
		return nil, err
	}
	key, err := v.jwks.Get(header.Kid)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return VerifyRS256(token, key)
}
