package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
)

// TokenService issues, introspects, and refreshes bearer tokens. Tokens
// are HMAC-signed claims (base64url JSON payload + hex signature) rather
// than a JWT-library token: the pack carries no JWT dependency, and the
// same HMAC-SHA256 primitive the audit chain uses for entry signatures
// covers this need without adding a new third-party surface — documented
// in DESIGN.md as a standard-library-justified choice.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu             sync.Mutex
	usedRefreshIDs map[string]bool  // consumed refresh nonces -> reuse detection
	blacklist      map[string]int64 // token nonce -> expiry (unix millis), for logout
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:         []byte(secret),
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
		usedRefreshIDs: make(map[string]bool),
		blacklist:      make(map[string]int64),
	}
}

// Issue creates a fresh access+refresh token pair for principal/role.
func (s *TokenService) Issue(principalID, roleID string) (*TokenPair, error) {
	now := time.Now()

	accessNonce, err := hexNonce()
	if err != nil {
		return nil, err
	}
	access := AccessClaims{
		PrincipalID: principalID,
		RoleID:      roleID,
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(s.accessTTL).UnixMilli(),
		Nonce:       accessNonce,
	}
	accessToken, err := s.encode("access", access)
	if err != nil {
		return nil, err
	}

	refreshNonce, err := hexNonce()
	if err != nil {
		return nil, err
	}
	refresh := RefreshClaims{
		PrincipalID: principalID,
		RoleID:      roleID,
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(s.refreshTTL).UnixMilli(),
		Nonce:       refreshNonce,
	}
	refreshToken, err := s.encode("refresh", refresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: access.ExpiresAt}, nil
}

// Introspect validates an access token and returns its claims.
func (s *TokenService) Introspect(token string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := s.decode("access", token, &claims); err != nil {
		return nil, err
	}
	s.mu.Lock()
	blacklisted := s.blacklist[claims.Nonce] != 0
	s.mu.Unlock()
	if blacklisted {
		return nil, apperrors.Newf(apperrors.KindUnauthenticated, "token has been revoked")
	}
	if time.Now().UnixMilli() > claims.ExpiresAt {
		return nil, apperrors.Newf(apperrors.KindUnauthenticated, "token expired")
	}
	return &claims, nil
}

// RefreshResult carries both the new pair and whether the supplied
// refresh token had already been consumed (reuse).
type RefreshResult struct {
	Pair  *TokenPair
	Reuse bool
}

// Refresh consumes a refresh token and issues a new pair. Re-use of an
// already-consumed refresh token is a denial (spec §4.2 "token_reuse").
func (s *TokenService) Refresh(refreshToken string) (*RefreshResult, error) {
	var claims RefreshClaims
	if err := s.decode("refresh", refreshToken, &claims); err != nil {
		return nil, err
	}
	if time.Now().UnixMilli() > claims.ExpiresAt {
		return nil, apperrors.Newf(apperrors.KindUnauthenticated, "refresh token expired")
	}

	s.mu.Lock()
	if s.usedRefreshIDs[claims.Nonce] {
		s.mu.Unlock()
		return &RefreshResult{Reuse: true}, apperrors.Newf(apperrors.KindUnauthenticated, "refresh token already used")
	}
	s.usedRefreshIDs[claims.Nonce] = true
	s.mu.Unlock()

	pair, err := s.Issue(claims.PrincipalID, claims.RoleID)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Pair: pair}, nil
}

// Revoke blacklists both tokens of a session until their natural expiry
// (spec §4.2 "On logout").
func (s *TokenService) Revoke(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var access AccessClaims
	if err := s.decode("access", accessToken, &access); err == nil {
		s.blacklist[access.Nonce] = access.ExpiresAt
	}
	var refresh RefreshClaims
	if err := s.decode("refresh", refreshToken, &refresh); err == nil {
		s.usedRefreshIDs[refresh.Nonce] = true
	}
}

func (s *TokenService) encode(typ string, claims interface{}) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	sig := s.sign(typ + "." + encoded)
	return typ + "." + encoded + "." + sig, nil
}

func (s *TokenService) decode(wantType, token string, out interface{}) error {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return apperrors.Newf(apperrors.KindUnauthenticated, "malformed token")
	}
	typ, encoded, sig := parts[0], parts[1], parts[2]
	if typ != wantType {
		return apperrors.Newf(apperrors.KindUnauthenticated, "unexpected token type %q", typ)
	}
	expected := s.sign(typ + "." + encoded)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return apperrors.Newf(apperrors.KindUnauthenticated, "invalid token signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return apperrors.Newf(apperrors.KindUnauthenticated, "malformed token payload")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.Newf(apperrors.KindUnauthenticated, "malformed token claims")
	}
	return nil
}

func (s *TokenService) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// CleanupBlacklist drops blacklist entries past their natural expiry
// (spec §5 "token blacklist: bounded-size LRU" — here a sweep against
// stored expiry stands in for a separate LRU data structure). Consumed
// refresh nonces in usedRefreshIDs are not swept.
func (s *TokenService) CleanupBlacklist() {
	now := time.Now().UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, exp := range s.blacklist {
		if exp < now {
			delete(s.blacklist, nonce)
		}
	}
}
