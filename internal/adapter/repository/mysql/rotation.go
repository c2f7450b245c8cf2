package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	rotationDomain "chama-engine/internal/domain/rotation"
)

var _ rotationDomain.Repository = (*RotationRepository)(nil)

type RotationRepository struct{ db *gorm.DB }

func NewRotationRepository(db *gorm.DB) *RotationRepository { return &RotationRepository{db: db} }

func (r *RotationRepository) CreateCycle(ctx context.Context, c *rotationDomain.Cycle) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *RotationRepository) GetByCycleID(ctx context.Context, cycleID string) (*rotationDomain.Cycle, error) {
	var out rotationDomain.Cycle
	res := r.db.WithContext(ctx).Where("cycle_id = ?", cycleID).First(&out)
	return &out, res.Error
}

func (r *RotationRepository) GetByCycleIDForUpdate(ctx context.Context, cycleID string) (*rotationDomain.Cycle, error) {
	var out rotationDomain.Cycle
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cycle_id = ?", cycleID).
		First(&out)
	return &out, res.Error
}

func (r *RotationRepository) GetCycleByPK(ctx context.Context, pk uint64) (*rotationDomain.Cycle, error) {
	var out rotationDomain.Cycle
	res := r.db.WithContext(ctx).Where("id = ?", pk).First(&out)
	return &out, res.Error
}

func (r *RotationRepository) SaveCycle(ctx context.Context, c *rotationDomain.Cycle) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *RotationRepository) CreateSlots(ctx context.Context, slots []rotationDomain.Slot) error {
	return r.db.WithContext(ctx).Create(&slots).Error
}

func (r *RotationRepository) ListSlots(ctx context.Context, cycleID uint64) ([]rotationDomain.Slot, error) {
	var out []rotationDomain.Slot
	res := r.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("position ASC").
		Find(&out)
	return out, res.Error
}

func (r *RotationRepository) GetSlotByMember(ctx context.Context, cycleID uint64, memberID string) (*rotationDomain.Slot, error) {
	var out rotationDomain.Slot
	res := r.db.WithContext(ctx).
		Where("cycle_id = ? AND member_id = ?", cycleID, memberID).
		First(&out)
	return &out, res.Error
}

func (r *RotationRepository) GetSlotByPosition(ctx context.Context, cycleID uint64, position int) (*rotationDomain.Slot, error) {
	var out rotationDomain.Slot
	res := r.db.WithContext(ctx).
		Where("cycle_id = ? AND position = ?", cycleID, position).
		First(&out)
	return &out, res.Error
}

// SwapSlotPositions exchanges two positions in three updates, parking a
// on position 0 first. Valid positions start at 1, so the unique
// (cycle, position) index never sees a duplicate mid-swap. Callers run
// this inside the cycle transaction.
func (r *RotationRepository) SwapSlotPositions(ctx context.Context, a, b *rotationDomain.Slot) error {
	posA, posB := a.Position, b.Position
	db := r.db.WithContext(ctx)

	if err := db.Model(&rotationDomain.Slot{}).Where("id = ?", a.ID).Update("position", 0).Error; err != nil {
		return err
	}
	if err := db.Model(&rotationDomain.Slot{}).Where("id = ?", b.ID).Update("position", posA).Error; err != nil {
		return err
	}
	if err := db.Model(&rotationDomain.Slot{}).Where("id = ?", a.ID).Update("position", posB).Error; err != nil {
		return err
	}

	a.Position, b.Position = posB, posA
	return nil
}

func (r *RotationRepository) CreatePayout(ctx context.Context, p *rotationDomain.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *RotationRepository) ListPayouts(ctx context.Context, cycleID uint64) ([]rotationDomain.Payout, error) {
	var out []rotationDomain.Payout
	res := r.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *RotationRepository) GetPayoutByKey(ctx context.Context, cycleID uint64, idempotencyKey string) (*rotationDomain.Payout, error) {
	var out rotationDomain.Payout
	res := r.db.WithContext(ctx).
		Where("cycle_id = ? AND idempotency_key = ?", cycleID, idempotencyKey).
		First(&out)
	return &out, res.Error
}

func (r *RotationRepository) CreateSwap(ctx context.Context, s *rotationDomain.SwapRequest) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *RotationRepository) GetBySwapID(ctx context.Context, swapID string) (*rotationDomain.SwapRequest, error) {
	var out rotationDomain.SwapRequest
	res := r.db.WithContext(ctx).Where("swap_id = ?", swapID).First(&out)
	return &out, res.Error
}

func (r *RotationRepository) GetPendingSwapByRequester(ctx context.Context, cycleID uint64, requesterID string) (*rotationDomain.SwapRequest, error) {
	var out rotationDomain.SwapRequest
	res := r.db.WithContext(ctx).
		Where("cycle_id = ? AND requester_id = ? AND status = ?", cycleID, requesterID, rotationDomain.SwapPending).
		Order("id DESC").
		First(&out)
	return &out, res.Error
}

func (r *RotationRepository) SaveSwap(ctx context.Context, s *rotationDomain.SwapRequest) error {
	return r.db.WithContext(ctx).Save(s).Error
}
