package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// RBAC resolves effective permissions across role inheritance and
// evaluates permission checks against them (spec §4.2 "RBAC").
type RBAC struct {
	roles  RoleStore
	chain  *audit.Chain
	logger obs.Logger
}

func NewRBAC(roles RoleStore, chain *audit.Chain, logger obs.Logger) *RBAC {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &RBAC{roles: roles, chain: chain, logger: logger.WithComponent("rbac")}
}

// CreateRole validates a new role's inheritance graph for cycles before
// persisting it.
func (r *RBAC) CreateRole(ctx context.Context, role *Role) error {
	existing, err := r.roles.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*Role, len(existing)+1)
	for _, e := range existing {
		byID[e.ID] = e
	}
	byID[role.ID] = role

	if cyc := detectCycle(role.ID, byID); cyc {
		return apperrors.Newf(apperrors.KindInvalidInput, "role %q introduces an inheritance cycle", role.ID)
	}
	return r.roles.Create(ctx, role)
}

func detectCycle(start string, byID map[string]*Role) bool {
	visited := map[string]int{} // 0=unseen,1=in-progress,2=done
	var visit func(id string) bool
	visit = func(id string) bool {
		switch visited[id] {
		case 1:
			return true
		case 2:
			return false
		}
		visited[id] = 1
		role, ok := byID[id]
		if ok {
			for _, parent := range role.InheritFrom {
				if visit(parent) {
					return true
				}
			}
		}
		visited[id] = 2
		return false
	}
	return visit(start)
}

// EffectivePermissions resolves the transitive union of permissions for
// roleID, following InheritFrom edges. Cycles (which CreateRole should
// have already prevented) are defused by the same visited-set walk.
func (r *RBAC) EffectivePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	seenRoles := map[string]bool{}
	var perms []Permission

	var walk func(id string) error
	walk = func(id string) error {
		if seenRoles[id] {
			return nil
		}
		seenRoles[id] = true
		role, err := r.roles.Get(ctx, id)
		if err != nil {
			return err
		}
		if role == nil {
			return nil
		}
		perms = append(perms, role.Permissions...)
		for _, parent := range role.InheritFrom {
			if err := walk(parent); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(roleID); err != nil {
		return nil, err
	}
	return perms, nil
}

// CheckPermission evaluates whether roleID is granted the requested
// resource/action, logging a permission_denied audit event on refusal.
func (r *RBAC) CheckPermission(ctx context.Context, roleID, userID string, check PermissionCheck) (CheckResult, error) {
	perms, err := r.EffectivePermissions(ctx, roleID)
	if err != nil {
		return CheckResult{}, err
	}

	for _, p := range perms {
		if !resourceMatches(p.Resource, check.Resource) {
			continue
		}
		if !actionMatches(p.Action, check.Action) {
			continue
		}
		if !contextMatches(p.Context, check.Context) {
			continue
		}
		return CheckResult{Granted: true, Reason: "matched " + p.Resource + ":" + p.Action}, nil
	}

	result := CheckResult{Granted: false, Reason: "no matching permission for " + check.Resource + ":" + check.Action}
	r.logger.Warn("permission denied", obs.Fields{
		"role_id": roleID, "user_id": userID,
		"resource": check.Resource, "action": check.Action,
	})
	if r.chain != nil {
		if _, err := r.chain.Record(ctx, audit.Event{
			Event: "permission_denied", Level: audit.LevelWarn,
			Message: "access denied: " + check.Resource + ":" + check.Action,
			UserID:  userID,
			Metadata: map[string]audit.MetaValue{
				"role_id":  roleID,
				"resource": check.Resource,
				"action":   check.Action,
			},
		}); err != nil {
			r.logger.Error("failed to record permission_denied audit event", obs.Fields{"error": err.Error()})
		}
	}
	return result, nil
}

// resourceMatches supports exact match, "*" wildcard, and a trailing
// "prefix.*" glob (spec §3 Permission.resource examples: "task.*").
func resourceMatches(granted, requested string) bool {
	if granted == "*" || granted == requested {
		return true
	}
	if strings.HasSuffix(granted, ".*") {
		prefix := strings.TrimSuffix(granted, ".*")
		return strings.HasPrefix(requested, prefix+".") || requested == prefix
	}
	return false
}

func actionMatches(granted, requested string) bool {
	return granted == "*" || granted == requested
}

// contextMatches evaluates the permission's context predicates against
// the check's context values. An unsatisfiable predicate (key present on
// the grant but absent or mismatched on the request) fails the match.
// Supported predicate suffixes: "_lte", "_gte", otherwise exact equality.
func contextMatches(granted, requested map[string]string) bool {
	for k, wantRaw := range granted {
		gotRaw, ok := requested[k]
		if !ok {
			return false
		}
		switch {
		case strings.HasSuffix(k, "_lte"):
			if !numericCompare(gotRaw, wantRaw, func(got, want float64) bool { return got <= want }) {
				return false
			}
		case strings.HasSuffix(k, "_gte"):
			if !numericCompare(gotRaw, wantRaw, func(got, want float64) bool { return got >= want }) {
				return false
			}
		default:
			if gotRaw != wantRaw {
				return false
			}
		}
	}
	return true
}

func numericCompare(gotRaw, wantRaw string, cmp func(got, want float64) bool) bool {
	got, err1 := strconv.ParseFloat(gotRaw, 64)
	want, err2 := strconv.ParseFloat(wantRaw, 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return cmp(got, want)
}
