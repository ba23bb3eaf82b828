package soul

import (
	"context"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
)

// SkillStatus is a Skill's approval/activation lifecycle state (spec §6
// "approval workflow POST /soul/skills/:id/{enable|disable|approve|reject}").
type SkillStatus string

const (
	SkillPendingApproval SkillStatus = "pending_approval"
	SkillApproved        SkillStatus = "approved"
	SkillRejected        SkillStatus = "rejected"
	SkillEnabled         SkillStatus = "enabled"
	SkillDisabled         SkillStatus = "disabled"
)

// Skill is an entity record scoped by PersonalityID (spec §3 "enabled
// skills are scoped by personalityId (null = global)").
type Skill struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	PersonalityID string      `json:"personalityId,omitempty"` // empty = global
	Status        SkillStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// SkillStore is the mutex-guarded map every entity store in this module
// uses.
type SkillStore struct {
	mu     sync.RWMutex
	skills map[string]*Skill
}

func NewSkillStore() *SkillStore {
	return &SkillStore{skills: make(map[string]*Skill)}
}

func (s *SkillStore) Create(_ context.Context, sk *Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if sk.ID == "" {
		sk.ID = idgen.New()
	}
	if sk.Status == "" {
		sk.Status = SkillPendingApproval
	}
	sk.CreatedAt, sk.UpdatedAt = now, now
	cp := *sk
	s.skills[sk.ID] = &cp
	return nil
}

func (s *SkillStore) List(_ context.Context) ([]*Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		cp := *sk
		out = append(out, &cp)
	}
	return out, nil
}

func (s *SkillStore) Get(_ context.Context, id string) (*Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "skill %q not found", id)
	}
	cp := *sk
	return &cp, nil
}

// Transition applies one of the approval-workflow actions
// (enable/disable/approve/reject), validating against the current status.
func (s *SkillStore) Transition(_ context.Context, id, action string) (*Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "skill %q not found", id)
	}
	switch action {
	case "approve":
		if sk.Status != SkillPendingApproval {
			return nil, apperrors.Newf(apperrors.KindConflict, "skill %q is not pending approval", id)
		}
		sk.Status = SkillApproved
	case "reject":
		if sk.Status != SkillPendingApproval {
			return nil, apperrors.Newf(apperrors.KindConflict, "skill %q is not pending approval", id)
		}
		sk.Status = SkillRejected
	case "enable":
		if sk.Status != SkillApproved && sk.Status != SkillDisabled {
			return nil, apperrors.Newf(apperrors.KindConflict, "skill %q must be approved before it can be enabled", id)
		}
		sk.Status = SkillEnabled
	case "disable":
		if sk.Status != SkillEnabled {
			return nil, apperrors.Newf(apperrors.KindConflict, "skill %q is not enabled", id)
		}
		sk.Status = SkillDisabled
	default:
		return nil, apperrors.Newf(apperrors.KindInvalidInput, "unknown skill action %q", action)
	}
	sk.UpdatedAt = time.Now()
	cp := *sk
	return &cp, nil
}
