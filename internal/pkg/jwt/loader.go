// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

// Config holds the settings needed to build a token manager.
type Config struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
	Audience       string
	KeyID          string
	AccessTTL      time.Duration
}

// Manager bundles a generator and verifier built from the same key pair.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// LoadAndBuild loads the RSA key pair from disk and builds a Manager.
// When both key paths are empty an ephemeral key pair is generated, which
// is only suitable for local development.
func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.PrivateKeyPath == "" && cfg.PublicKeyPath == "" {
		priv, pub, err := GenerateDevKeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate dev key pair: %w", err)
		}
		return &Manager{
			Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KeyID, cfg.AccessTTL),
			Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
		}, nil
	}

	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KeyID, cfg.AccessTTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}, nil
}
