package auth

import (
	"context"
	"strings"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// Service wires credential verification, token issuance, RBAC, and rate
// limiting into the single entry point the API server calls (spec §4.2).
type Service struct {
	tokens  *TokenService
	rbac    *RBAC
	limiter RateLimiter
	keys    KeyStore
	roles   RoleStore
	chain   *audit.Chain
	logger  obs.Logger

	adminID       string
	adminPassHash string
}

// Config carries the wiring inputs for NewService.
type Config struct {
	Tokens        *TokenService
	RBAC          *RBAC
	Limiter       RateLimiter
	Keys          KeyStore
	Roles         RoleStore
	Chain         *audit.Chain
	Logger        obs.Logger
	AdminPassHash string
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &Service{
		tokens:        cfg.Tokens,
		rbac:          cfg.RBAC,
		limiter:       cfg.Limiter,
		keys:          cfg.Keys,
		roles:         cfg.Roles,
		chain:         cfg.Chain,
		logger:        logger.WithComponent("auth"),
		adminID:       "admin",
		adminPassHash: cfg.AdminPassHash,
	}
}

// Login authenticates the single built-in admin principal with a
// password, subject to the auth_attempts rate limit keyed by clientIP.
func (s *Service) Login(ctx context.Context, password, clientIP string) (*TokenPair, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "auth_attempts", "ip", clientIP)
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.audit(ctx, "rate_limited", audit.LevelWarn, "login rate limit exceeded", s.adminID, map[string]audit.MetaValue{"ip": clientIP})
			return nil, apperrors.Newf(apperrors.KindRateLimited, "too many login attempts, try again later")
		}
	}

	if !VerifyPassword(s.adminPassHash, password) {
		s.audit(ctx, "auth_failure", audit.LevelWarn, "admin login failed", s.adminID, map[string]audit.MetaValue{"ip": clientIP})
		return nil, apperrors.Newf(apperrors.KindUnauthenticated, "invalid credentials")
	}

	pair, err := s.tokens.Issue(s.adminID, RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "auth_success", audit.LevelInfo, "admin login succeeded", s.adminID, map[string]audit.MetaValue{"ip": clientIP})
	return pair, nil
}

// Authenticate resolves a bearer access token to a Principal.
func (s *Service) Authenticate(_ context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.Introspect(accessToken)
	if err != nil {
		return nil, err
	}
	kind := PrincipalAdmin
	if claims.PrincipalID != s.adminID {
		kind = PrincipalAPIKey
	}
	return &Principal{ID: claims.PrincipalID, Kind: kind, RoleID: claims.RoleID}, nil
}

// AuthenticateAPIKey resolves a plaintext API key to a Principal, bcrypt
// comparing against every stored hash, since bcrypt hashes cannot be
// indexed; the stored display prefix is not used to narrow the search.
func (s *Service) AuthenticateAPIKey(ctx context.Context, plaintext string) (*Principal, error) {
	rec, err := s.keys.FindByHash(ctx, func(hash string) bool {
		return VerifyAPIKey(hash, plaintext)
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.audit(ctx, "auth_failure", audit.LevelWarn, "api key rejected", "", nil)
		return nil, apperrors.Newf(apperrors.KindUnauthenticated, "invalid api key")
	}
	rec.LastUsedAt = time.Now()
	if err := s.keys.Create(ctx, rec); err != nil { // Create overwrites by ID in the in-memory store
		s.logger.Warn("failed to update api key last_used_at", obs.Fields{"error": err.Error()})
	}
	return &Principal{ID: rec.ID, Kind: PrincipalAPIKey, RoleID: rec.RoleID}, nil
}

// Refresh rotates a refresh token, recording token_reuse on replay.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	result, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		if result != nil && result.Reuse {
			s.audit(ctx, "token_reuse", audit.LevelError, "refresh token replay detected", "", nil)
		}
		return nil, err
	}
	return result.Pair, nil
}

// Logout blacklists both tokens of the current session.
func (s *Service) Logout(_ context.Context, accessToken, refreshToken string) {
	s.tokens.Revoke(accessToken, refreshToken)
}

// CreateAPIKey mints and persists a new API key bound to roleID,
// returning the plaintext exactly once.
func (s *Service) CreateAPIKey(ctx context.Context, name, roleID string) (plaintext string, rec *APIKeyRecord, err error) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}
	rec = &APIKeyRecord{
		ID:        idgen.New(),
		Name:      name,
		RoleID:    roleID,
		Prefix:    prefix,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if err := s.keys.Create(ctx, rec); err != nil {
		return "", nil, err
	}
	return plaintext, rec, nil
}

// Authorize is the RBAC entry point used by API middleware.
func (s *Service) Authorize(ctx context.Context, principal *Principal, check PermissionCheck) (CheckResult, error) {
	return s.rbac.CheckPermission(ctx, principal.RoleID, principal.ID, check)
}

func (s *Service) audit(ctx context.Context, event string, level audit.Level, msg, userID string, meta map[string]audit.MetaValue) {
	if s.chain == nil {
		return
	}
	if _, err := s.chain.Record(ctx, audit.Event{Event: event, Level: level, Message: msg, UserID: userID, Metadata: meta}); err != nil {
		s.logger.Error("failed to record audit event", obs.Fields{"event": event, "error": err.Error()})
	}
}

// normalizeClientIP strips a port suffix from a RemoteAddr-style string,
// falling back to the original value if it carries no port.
func normalizeClientIP(addr string) string {
	if idx := strings.LastIndex(addr, ":"); idx != -1 && strings.Count(addr, ":") == 1 {
		return addr[:idx]
	}
	return addr
}
