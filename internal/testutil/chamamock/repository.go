package chamamock

import (
	"context"
	"errors"

	domain "chama-engine/internal/domain/chama"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("chamamock: method not implemented")

// Repo is a function-backed mock satisfying domain.Repository.
type Repo struct {
	CreateFn            func(ctx context.Context, c *domain.Chama) error
	GetByChamaIDFn      func(ctx context.Context, chamaID string) (*domain.Chama, error)
	AddMemberFn         func(ctx context.Context, m *domain.Member) error
	GetMemberFn         func(ctx context.Context, chamaID, memberID string) (*domain.Member, error)
	ListActiveMembersFn func(ctx context.Context, chamaID string) ([]domain.Member, error)
	SaveMemberFn        func(ctx context.Context, m *domain.Member) error
}

func (m *Repo) Create(ctx context.Context, c *domain.Chama) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, c)
	}
	return nil
}

func (m *Repo) GetByChamaID(ctx context.Context, chamaID string) (*domain.Chama, error) {
	if m.GetByChamaIDFn != nil {
		return m.GetByChamaIDFn(ctx, chamaID)
	}
	return nil, errUnimplemented
}

func (m *Repo) AddMember(ctx context.Context, mem *domain.Member) error {
	if m.AddMemberFn != nil {
		return m.AddMemberFn(ctx, mem)
	}
	return nil
}

func (m *Repo) GetMember(ctx context.Context, chamaID, memberID string) (*domain.Member, error) {
	if m.GetMemberFn != nil {
		return m.GetMemberFn(ctx, chamaID, memberID)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListActiveMembers(ctx context.Context, chamaID string) ([]domain.Member, error) {
	if m.ListActiveMembersFn != nil {
		return m.ListActiveMembersFn(ctx, chamaID)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveMember(ctx context.Context, mem *domain.Member) error {
	if m.SaveMemberFn != nil {
		return m.SaveMemberFn(ctx, mem)
	}
	return nil
}
