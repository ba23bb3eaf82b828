// Package auth implements the credential verifier, token service, RBAC
// engine, and rate limiter described in spec §4.2.
package auth

import "time"

// PrincipalKind distinguishes the single built-in admin from API-key
// principals (spec §1 Non-goals: exactly one admin, zero-or-more keys).
type PrincipalKind string

const (
	PrincipalAdmin  PrincipalKind = "admin"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// Principal identifies who is making a request.
type Principal struct {
	ID     string
	Kind   PrincipalKind
	RoleID string
}

// APIKeyRecord is the persisted representation of an API key: only the
// bcrypt hash and a short display prefix are stored, never the plaintext.
type APIKeyRecord struct {
	ID          string
	Name        string
	RoleID      string
	Prefix      string
	Hash        string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Permission is a single grant: resource/action with an optional context
// predicate (spec §3 Role).
type Permission struct {
	Resource string
	Action   string
	Context  map[string]string // e.g. {"duration_lte": "3600"}
}

// Role is a named bundle of permissions with optional inheritance.
type Role struct {
	ID           string
	Name         string
	IsBuiltin    bool
	Permissions  []Permission
	InheritFrom  []string
}

// Built-in role IDs that cannot be deleted (spec §3 Role).
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
	RoleAuditor  = "auditor"
)

// AccessClaims are the signed fields carried by an access token.
type AccessClaims struct {
	PrincipalID string
	RoleID      string
	IssuedAt    int64
	ExpiresAt   int64
	Nonce       string
}

// RefreshClaims are the signed fields carried by a refresh token.
type RefreshClaims struct {
	PrincipalID string
	RoleID      string
	IssuedAt    int64
	ExpiresAt   int64
	Nonce       string
}

// TokenPair is returned on login/refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// PermissionCheck is the input to RBAC evaluation.
type PermissionCheck struct {
	Resource string
	Action   string
	Context  map[string]string
}

// CheckResult is the RBAC evaluation outcome.
type CheckResult struct {
	Granted bool
	Reason  string
}
