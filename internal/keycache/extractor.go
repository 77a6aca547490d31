package keycache

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePublicKey   = "PUBLIC KEY"
)

// PEMKeyExtractor accepts a PEM encoded X.509 certificate or PKIX public key
// holding an RSA key. The resulting key ID is the SHA-256 JWK thumbprint.
type PEMKeyExtractor struct{}

func (PEMKeyExtractor) PublicKeyFrom(cert *Certificate) (jwk.Key, error) {
	if cert == nil || cert.PEM == "" {
		return nil, fmt.Errorf("certificate is empty")
	}
	block, _ := pem.Decode([]byte(cert.PEM))
	if block == nil {
		return nil, fmt.Errorf("certificate is not PEM encoded")
	}

	var raw any
	switch block.Type {
	case pemTypeCertificate:
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse x509 certificate: %w", err)
		}
		raw = c.PublicKey
	case pemTypePublicKey:
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		raw = k
	default:
		return nil, fmt.Errorf("unsupported PEM block type '%s'", block.Type)
	}

	rsaKey, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", raw)
	}

	key, err := jwk.Import(rsaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert rsa key to jwk: %w", err)
	}
	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to get thumbprint from public key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, fmt.Sprintf("%x", thumbprint)); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	return key, nil
}
