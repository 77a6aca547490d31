package issuer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/integration-auth/internal/constants"
)

const (
	tokenDuration       = time.Hour
	certificateDuration = 365 * 24 * time.Hour
)

func Algorithm() jwa.SignatureAlgorithm { return jwa.RS512() }

// Claims are the user assertion claims the platform puts in its tokens.
type Claims struct {
	Issuer   string
	Subject  string
	Audience string
	UserID   int64
	Extra    map[string]any
}

// Issuer signs user assertions the way the pod does, with a self-signed
// certificate standing in for the pod certificate.
type Issuer struct {
	keyID   string
	private jwk.Key
	certPEM string
}

func New(now time.Time) (*Issuer, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}

	private, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert rsa key to jwk: %w", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key from jwk: %w", err)
	}

	thumbprint, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to get thumbprint from public key: %w", err)
	}
	keyID := fmt.Sprintf("%x", thumbprint)
	if err := private.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject:      pkix.Name{CommonName: constants.IntegrationAuth},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(certificateDuration),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	logrus.WithField("key", logrus.Fields{
		jwk.KeyIDKey: keyID,
		"notAfter":   template.NotAfter,
	}).Info("development signing key generated")

	return &Issuer{
		keyID:   keyID,
		private: private,
		certPEM: string(certPEM),
	}, nil
}

func (i *Issuer) KeyID() string { return i.keyID }

// CertificatePEM returns the self-signed certificate holding the public key.
func (i *Issuer) CertificatePEM() string { return i.certPEM }

// Issue signs claims with RS512 and returns the token and its expiration.
func (i *Issuer) Issue(c Claims, now time.Time) (string, time.Time, error) {
	exp := now.Add(tokenDuration)
	tok, err := Build(c, now, exp)
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := i.Sign(tok, Algorithm())
	if err != nil {
		return "", time.Time{}, err
	}

	logrus.WithField("token", logrus.Fields{
		jwk.KeyIDKey: i.keyID,
		"sub":        c.Subject,
		"exp":        exp,
	}).Debug("development token issued")

	return signed, exp, nil
}

// Sign signs tok with alg using the issuer key. alg must be an RSA algorithm.
func (i *Issuer) Sign(tok jwt.Token, alg jwa.SignatureAlgorithm) (string, error) {
	b, err := jwt.Sign(tok, jwt.WithKey(alg, i.private))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(b), nil
}

// Build assembles the claim set for c. A zero exp leaves the claim out.
func Build(c Claims, now, exp time.Time) (jwt.Token, error) {
	b := jwt.NewBuilder().
		Issuer(c.Issuer).
		Subject(c.Subject).
		IssuedAt(now).
		JwtID(uuid.NewString())
	if c.Audience != "" {
		b = b.Audience([]string{c.Audience})
	}
	if !exp.IsZero() {
		b = b.Expiration(exp)
	}
	if c.UserID != 0 {
		b = b.Claim(constants.ClaimUserID, c.UserID)
	}
	for k, v := range c.Extra {
		b = b.Claim(k, v)
	}
	tok, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build token: %w", err)
	}
	return tok, nil
}
