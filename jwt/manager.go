package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodRS256 signs with an RSA private key and verifies with the
	// matching public key. This is the default for service deployments.
	MethodRS256 SigningMethod = "rs256"
	// MethodHS256 is the shared-secret fallback for single-process setups.
	MethodHS256 SigningMethod = "hs256"
)

// TokenTypeRefresh is the type claim value carried by refresh tokens.
// Access tokens carry no type claim.
const TokenTypeRefresh = "refresh"

var (
	// ErrTokenInvalid covers bad signatures, wrong issuer or audience,
	// structural failures, and token-type cross-use.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when exp has passed. Expiry is strict:
	// with zero leeway a token is rejected one second past exp.
	ErrTokenExpired = errors.New("token expired")
)

// Config holds the key material and claim policy for a [Manager]. It is
// fixed at construction; NewManager fails fast when the configured method
// lacks usable keys.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte // PEM, rs256 only
	PublicKey     []byte // PEM, rs256 only; derived from PrivateKey when absent
	Secret        []byte // hs256 only
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
}

// Manager issues and verifies the engine's tokens.
type Manager struct {
	config     Config
	signKey    any
	verifyKey  any
	signMethod jwt.SigningMethod
}

// AccessClaims is the typed access-token payload. Required claims (sub,
// exp, iss) are validated on decode instead of defaulted on access.
type AccessClaims struct {
	Name    string              `json:"name,omitempty"`
	Tenants []string            `json:"tenants,omitempty"`
	Roles   map[string][]string `json:"roles,omitempty"`
	Type    string              `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the typed refresh-token payload. ID carries the jti
// that keys the tracking record.
type RefreshClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and loads the key material. Missing or
// unparseable keys for the configured method are a construction error so
// the host aborts startup rather than degrade.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires shared secret")
		}
		m.signMethod = jwt.SigningMethodHS256
		m.signKey = cfg.Secret
		m.verifyKey = cfg.Secret
	case MethodRS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("rs256 requires private key")
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid rs256 private key: %w", err)
		}
		pub := &priv.PublicKey
		if len(cfg.PublicKey) > 0 {
			pub, err = jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("invalid rs256 public key: %w", err)
			}
		}
		m.signMethod = jwt.SigningMethodRS256
		m.signKey = priv
		m.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

// IssueAccess builds and signs an access token for the subject with the
// given display name, tenant memberships and per-service role mapping.
func (m *Manager) IssueAccess(subjectID, name string, tenants []string, roles map[string][]string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}

	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.config.AccessTTL)
	claims := AccessClaims{
		Name:    name,
		Tenants: tenants,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueRefresh builds and signs a refresh token carrying jti as its unique
// identifier. No audience claim is set: refresh tokens are validated by
// the narrower [Manager.VerifyRefresh] check.
func (m *Manager) IssueRefresh(subjectID, jti string) (string, time.Time, error) {
	if subjectID == "" || jti == "" {
		return "", time.Time{}, errors.New("empty subject or token id")
	}

	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.config.RefreshTTL)
	claims := RefreshClaims{
		Type: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    m.config.Issuer,
		},
	}

	signed, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess parses and validates an access token, enforcing issuer and
// audience. A syntactically valid refresh token presented here is rejected
// with [ErrTokenInvalid]: token types are not interchangeable.
func (m *Manager) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims, true); err != nil {
		return nil, err
	}
	if claims.Type == TokenTypeRefresh {
		return nil, fmt.Errorf("%w: refresh token presented as access token", ErrTokenInvalid)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token without an audience
// check, rejecting any token whose type claim is not "refresh".
func (m *Manager) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims, false); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti claim", ErrTokenInvalid)
	}
	return claims, nil
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(m.signMethod, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.signKey)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, checkAudience bool) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if checkAudience && m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.signMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}

	if iat, _ := claims.GetIssuedAt(); iat != nil && m.config.MaxFutureIAT > 0 {
		if iat.Time.After(time.Now().Add(m.config.MaxFutureIAT)) {
			return fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
		}
	}
	return nil
}

// VerifyKey exposes the verification key so hosts can hand it to sibling
// services that only validate tokens. For rs256 this is an *rsa.PublicKey.
func (m *Manager) VerifyKey() any {
	if pub, ok := m.verifyKey.(*rsa.PublicKey); ok {
		return pub
	}
	return m.verifyKey
}
