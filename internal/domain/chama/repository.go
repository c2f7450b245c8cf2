package chama

import (
	"context"

	"chama-engine/internal/domain/fault"
)

var (
	ErrNotFound       = fault.New(fault.NotFound, "chama not found")
	ErrMemberNotFound = fault.New(fault.NotFound, "chama member not found")
	ErrInactiveMember = fault.New(fault.Policy, "member is not active in this chama")
)

type Repository interface {
	Create(ctx context.Context, c *Chama) error
	GetByChamaID(ctx context.Context, chamaID string) (*Chama, error)

	AddMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, chamaID, memberID string) (*Member, error)
	// ListActiveMembers returns active members ordered by join time.
	ListActiveMembers(ctx context.Context, chamaID string) ([]Member, error)
	SaveMember(ctx context.Context, m *Member) error
}
