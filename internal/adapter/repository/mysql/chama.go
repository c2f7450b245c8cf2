package mysql

import (
	"context"

	"gorm.io/gorm"

	chamaDomain "chama-engine/internal/domain/chama"
)

var _ chamaDomain.Repository = (*ChamaRepository)(nil)

type ChamaRepository struct{ db *gorm.DB }

func NewChamaRepository(db *gorm.DB) *ChamaRepository { return &ChamaRepository{db: db} }

func (r *ChamaRepository) Create(ctx context.Context, c *chamaDomain.Chama) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ChamaRepository) GetByChamaID(ctx context.Context, chamaID string) (*chamaDomain.Chama, error) {
	var out chamaDomain.Chama
	res := r.db.WithContext(ctx).Where("chama_id = ?", chamaID).First(&out)
	return &out, res.Error
}

func (r *ChamaRepository) AddMember(ctx context.Context, m *chamaDomain.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ChamaRepository) GetMember(ctx context.Context, chamaID, memberID string) (*chamaDomain.Member, error) {
	var out chamaDomain.Member
	res := r.db.WithContext(ctx).
		Where("chama_id = ? AND member_id = ?", chamaID, memberID).
		First(&out)
	return &out, res.Error
}

// ListActiveMembers orders by join time so rotation slots follow the
// order members entered the chama.
func (r *ChamaRepository) ListActiveMembers(ctx context.Context, chamaID string) ([]chamaDomain.Member, error) {
	var out []chamaDomain.Member
	res := r.db.WithContext(ctx).
		Where("chama_id = ? AND is_active = ?", chamaID, true).
		Order("joined_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *ChamaRepository) SaveMember(ctx context.Context, m *chamaDomain.Member) error {
	return r.db.WithContext(ctx).Save(m).Error
}
