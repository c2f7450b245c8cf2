package rotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"gorm.io/gorm"

	"chama-engine/internal/domain/chama"
	"chama-engine/internal/domain/fault"
	domain "chama-engine/internal/domain/rotation"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/notify"
	"chama-engine/internal/testutil/chamamock"
	"chama-engine/internal/testutil/notifymock"
	"chama-engine/internal/testutil/rotationmock"
	"chama-engine/internal/testutil/uowmock"
	"chama-engine/pkg/clock"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// fixture is an in-memory five-member cycle: members M-A..M-E at
// positions 1..5, contributing 1,000.00 each.
type fixture struct {
	cycle   *domain.Cycle
	slots   []*domain.Slot
	payouts []domain.Payout
	swaps   []domain.SwapRequest
	rec     *notifymock.Recorder
	uc      *Usecase
}

func newFixture() *fixture {
	f := &fixture{
		cycle: &domain.Cycle{
			ID: 3, CycleID: "CYC-1", ChamaID: "CHM-1", Currency: "KES",
			AmountPerMember: 100_000, Frequency: domain.FrequencyMonthly,
			IsActive: true, StartedAt: testNow,
		},
		rec: &notifymock.Recorder{},
	}
	for i, member := range []string{"M-A", "M-B", "M-C", "M-D", "M-E"} {
		f.slots = append(f.slots, &domain.Slot{
			ID: uint64(31 + i), CycleID: 3, MemberID: member, Position: i + 1,
		})
	}

	rotations := &rotationmock.Repo{
		GetByCycleIDFn:        f.getCycle,
		GetByCycleIDForUpdateFn: f.getCycle,
		GetCycleByPKFn: func(_ context.Context, pk uint64) (*domain.Cycle, error) {
			if pk == f.cycle.ID {
				return f.cycle, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		SaveCycleFn: func(context.Context, *domain.Cycle) error { return nil },
		ListSlotsFn: func(context.Context, uint64) ([]domain.Slot, error) {
			out := make([]domain.Slot, len(f.slots))
			for i, s := range f.slots {
				out[i] = *s
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
			return out, nil
		},
		GetSlotByMemberFn: func(_ context.Context, _ uint64, memberID string) (*domain.Slot, error) {
			for _, s := range f.slots {
				if s.MemberID == memberID {
					return s, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		GetSlotByPositionFn: func(_ context.Context, _ uint64, position int) (*domain.Slot, error) {
			for _, s := range f.slots {
				if s.Position == position {
					return s, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		CreatePayoutFn: func(_ context.Context, p *domain.Payout) error {
			for _, have := range f.payouts {
				if have.IdempotencyKey == p.IdempotencyKey || have.SlotID == p.SlotID {
					return gorm.ErrDuplicatedKey
				}
			}
			p.ID = uint64(len(f.payouts) + 1)
			f.payouts = append(f.payouts, *p)
			return nil
		},
		ListPayoutsFn: func(context.Context, uint64) ([]domain.Payout, error) {
			out := make([]domain.Payout, len(f.payouts))
			copy(out, f.payouts)
			return out, nil
		},
		GetPayoutByKeyFn: func(_ context.Context, _ uint64, key string) (*domain.Payout, error) {
			for _, p := range f.payouts {
				if p.IdempotencyKey == key {
					cp := p
					return &cp, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		CreateSwapFn: func(_ context.Context, s *domain.SwapRequest) error {
			s.ID = uint64(len(f.swaps) + 1)
			f.swaps = append(f.swaps, *s)
			return nil
		},
		GetBySwapIDFn: func(_ context.Context, swapID string) (*domain.SwapRequest, error) {
			for _, s := range f.swaps {
				if s.SwapID == swapID {
					cp := s
					return &cp, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		GetPendingSwapByRequesterFn: func(_ context.Context, _ uint64, requesterID string) (*domain.SwapRequest, error) {
			for _, s := range f.swaps {
				if s.RequesterID == requesterID && s.Status == domain.SwapPending {
					cp := s
					return &cp, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		SaveSwapFn: func(_ context.Context, s *domain.SwapRequest) error {
			for i := range f.swaps {
				if f.swaps[i].ID == s.ID {
					f.swaps[i] = *s
					return nil
				}
			}
			return gorm.ErrRecordNotFound
		},
	}
	chamas := &chamamock.Repo{
		GetByChamaIDFn: func(context.Context, string) (*chama.Chama, error) {
			return &chama.Chama{ChamaID: "CHM-1", Currency: "KES"}, nil
		},
		ListActiveMembersFn: func(context.Context, string) ([]chama.Member, error) {
			return []chama.Member{
				{MemberID: "M-A"}, {MemberID: "M-B"}, {MemberID: "M-C"},
				{MemberID: "M-D"}, {MemberID: "M-E"},
			}, nil
		},
	}
	repos := uow.Repos{Chamas: chamas, Rotations: rotations}
	f.uc = NewUsecase(repos, uowmock.PassThrough(repos), clock.NewFixed(testNow), f.rec)
	return f
}

func (f *fixture) getCycle(_ context.Context, cycleID string) (*domain.Cycle, error) {
	if cycleID == f.cycle.CycleID {
		return f.cycle, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fixture) pay(t *testing.T, key string) *PayoutDTO {
	t.Helper()
	dto, err := f.uc.ProcessPayout(context.Background(), ProcessPayoutInput{CycleID: "CYC-1", IdempotencyKey: key})
	if err != nil {
		t.Fatalf("payout %s: %v", key, err)
	}
	return dto
}

func TestUsecase_StartCycle(t *testing.T) {
	t.Run("slots follow join order", func(t *testing.T) {
		f := newFixture()
		dto, err := f.uc.StartCycle(context.Background(), StartCycleInput{
			ChamaID: "CHM-1", AmountPerMember: 100_000, Frequency: "monthly",
		})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !dto.IsActive || dto.Currency != "KES" || dto.Frequency != "monthly" {
			t.Fatalf("cycle dto = %+v", dto)
		}
		if len(dto.Slots) != 5 {
			t.Fatalf("slots = %d, want 5", len(dto.Slots))
		}
		for i, s := range dto.Slots {
			if s.Position != i+1 {
				t.Fatalf("slot %d has position %d", i, s.Position)
			}
		}
		if dto.Slots[0].MemberID != "M-A" || dto.Slots[4].MemberID != "M-E" {
			t.Fatalf("slot order = %+v", dto.Slots)
		}
	})

	t.Run("needs two members to rotate", func(t *testing.T) {
		f := newFixture()
		chamas := &chamamock.Repo{
			GetByChamaIDFn: func(context.Context, string) (*chama.Chama, error) {
				return &chama.Chama{ChamaID: "CHM-1", Currency: "KES"}, nil
			},
			ListActiveMembersFn: func(context.Context, string) ([]chama.Member, error) {
				return []chama.Member{{MemberID: "M-A"}}, nil
			},
		}
		repos := uow.Repos{Chamas: chamas, Rotations: &rotationmock.Repo{}}
		uc := NewUsecase(repos, uowmock.PassThrough(repos), clock.NewFixed(testNow), f.rec)

		_, err := uc.StartCycle(context.Background(), StartCycleInput{
			ChamaID: "CHM-1", AmountPerMember: 100_000, Frequency: "monthly",
		})
		if fault.KindOf(err) != fault.Policy {
			t.Fatalf("want policy fault, got %v", err)
		}
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.StartCycle(context.Background(), StartCycleInput{
			ChamaID: "CHM-1", AmountPerMember: 100_000, Frequency: "fortnightly",
		})
		if !errors.Is(err, domain.ErrBadFrequency) {
			t.Fatalf("want ErrBadFrequency, got %v", err)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.StartCycle(context.Background(), StartCycleInput{
			ChamaID: "CHM-1", AmountPerMember: 0, Frequency: "monthly",
		})
		if fault.KindOf(err) != fault.Validation {
			t.Fatalf("want validation fault, got %v", err)
		}
	})
}

func TestUsecase_ProcessPayout_PositionsInOrder(t *testing.T) {
	f := newFixture()

	wantRecipients := []string{"M-A", "M-B", "M-C", "M-D", "M-E"}
	for i, want := range wantRecipients {
		next, err := f.uc.NextRecipient(context.Background(), "CYC-1")
		if err != nil {
			t.Fatalf("next recipient %d: %v", i+1, err)
		}
		if next.Position != i+1 || next.MemberID != want {
			t.Fatalf("next = %+v, want position %d member %s", next, i+1, want)
		}
		if next.Amount != 500_000 {
			t.Fatalf("amount = %d, want 500000 (5 x 100000)", next.Amount)
		}

		dto := f.pay(t, fmt.Sprintf("key-%d", i+1))
		if dto.RecipientID != want || dto.Position != i+1 {
			t.Fatalf("payout %d = %+v", i+1, dto)
		}
		if dto.Amount != 500_000 {
			t.Fatalf("payout amount = %d", dto.Amount)
		}
		if !dto.PayoutDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("payout date = %s", dto.PayoutDate)
		}
	}

	if f.cycle.IsActive {
		t.Fatalf("cycle must deactivate after the final payout")
	}
	if got := len(f.rec.Types()); got != 5 {
		t.Fatalf("events = %d, want 5", got)
	}

	_, err := f.uc.NextRecipient(context.Background(), "CYC-1")
	if !errors.Is(err, domain.ErrCycleExhausted) {
		t.Fatalf("want ErrCycleExhausted, got %v", err)
	}
	_, err = f.uc.ProcessPayout(context.Background(), ProcessPayoutInput{CycleID: "CYC-1", IdempotencyKey: "key-6"})
	if !errors.Is(err, domain.ErrCycleExhausted) {
		t.Fatalf("want ErrCycleExhausted, got %v", err)
	}
}

func TestUsecase_ProcessPayout_Idempotent(t *testing.T) {
	f := newFixture()

	first := f.pay(t, "key-1")
	second := f.pay(t, "key-1")

	if !second.Replayed {
		t.Fatalf("second call should be a replay")
	}
	if second.PayoutID != first.PayoutID || second.RecipientID != first.RecipientID || second.Position != first.Position {
		t.Fatalf("replay differs: %+v vs %+v", second, first)
	}
	if len(f.payouts) != 1 {
		t.Fatalf("payout rows = %d, want 1", len(f.payouts))
	}
	// The replay pays nobody new: M-B still awaits their turn.
	next, err := f.uc.NextRecipient(context.Background(), "CYC-1")
	if err != nil || next.MemberID != "M-B" {
		t.Fatalf("next = %+v, err = %v", next, err)
	}
}

func TestUsecase_ProcessPayout_InactiveCycle(t *testing.T) {
	f := newFixture()
	f.cycle.IsActive = false

	_, err := f.uc.ProcessPayout(context.Background(), ProcessPayoutInput{CycleID: "CYC-1", IdempotencyKey: "key-1"})
	if !errors.Is(err, domain.ErrCycleInactive) {
		t.Fatalf("want ErrCycleInactive, got %v", err)
	}
}

func TestUsecase_ProcessPayout_UnknownCycle(t *testing.T) {
	f := newFixture()
	_, err := f.uc.ProcessPayout(context.Background(), ProcessPayoutInput{CycleID: "CYC-404", IdempotencyKey: "key-1"})
	if !errors.Is(err, domain.ErrCycleNotFound) {
		t.Fatalf("want ErrCycleNotFound, got %v", err)
	}
}

// The five-member swap walk-through: after two payouts, the member at
// position 3 trades places with position 5; position 4 keeps its turn.
func TestUsecase_Swap_ExchangesTurns(t *testing.T) {
	f := newFixture()
	f.pay(t, "key-1")
	f.pay(t, "key-2")

	req, err := f.uc.RequestSwap(context.Background(), RequestSwapInput{
		CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 5, Reason: "school fees due this month",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != string(domain.SwapPending) || req.RequesterPosition != 3 || req.TargetPosition != 5 {
		t.Fatalf("request dto = %+v", req)
	}
	if !f.rec.Has(notify.SwapRequested) {
		t.Fatalf("missing %s event", notify.SwapRequested)
	}

	res, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{
		SwapID: req.SwapID, ResponderID: "M-E", Approve: true,
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if res.Status != string(domain.SwapApproved) {
		t.Fatalf("swap status = %s", res.Status)
	}
	if res.RespondedAt == nil {
		t.Fatalf("responded_at not stamped")
	}
	if !f.rec.Has(notify.SwapApproved) {
		t.Fatalf("missing %s event", notify.SwapApproved)
	}

	// M-E now holds position 3, M-C position 5; M-D is untouched at 4.
	expect := map[string]int{"M-C": 5, "M-E": 3, "M-D": 4}
	for _, s := range f.slots {
		if want, ok := expect[s.MemberID]; ok && s.Position != want {
			t.Fatalf("%s at position %d, want %d", s.MemberID, s.Position, want)
		}
	}

	wantOrder := []string{"M-E", "M-D", "M-C"}
	for i, want := range wantOrder {
		next, err := f.uc.NextRecipient(context.Background(), "CYC-1")
		if err != nil {
			t.Fatalf("next after swap: %v", err)
		}
		if next.MemberID != want {
			t.Fatalf("payout %d goes to %s, want %s", i+3, next.MemberID, want)
		}
		f.pay(t, fmt.Sprintf("key-%d", i+3))
	}
}

func TestUsecase_RequestSwap_Guards(t *testing.T) {
	tests := []struct {
		name     string
		prep     func(t *testing.T, f *fixture)
		input    RequestSwapInput
		wantErr  error
		wantKind fault.Kind
	}{
		{
			name:    "requester must hold a slot",
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-X", TargetPosition: 5},
			wantErr: domain.ErrSlotNotFound,
		},
		{
			name:    "target position must exist",
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 9},
			wantErr: domain.ErrSlotNotFound,
		},
		{
			name:     "cannot swap with own position",
			input:    RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 3},
			wantKind: fault.Validation,
		},
		{
			name: "paid target cannot be traded",
			prep: func(t *testing.T, f *fixture) {
				f.pay(t, "key-1")
			},
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 1},
			wantErr: domain.ErrSlotAlreadyPaid,
		},
		{
			name: "paid requester cannot trade away",
			prep: func(t *testing.T, f *fixture) {
				f.pay(t, "key-1")
			},
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-A", TargetPosition: 4},
			wantErr: domain.ErrSlotAlreadyPaid,
		},
		{
			name: "one open request per member",
			prep: func(t *testing.T, f *fixture) {
				if _, err := f.uc.RequestSwap(context.Background(), RequestSwapInput{
					CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 5,
				}); err != nil {
					t.Fatalf("seed swap: %v", err)
				}
			},
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 4},
			wantErr: domain.ErrPendingSwapExists,
		},
		{
			name: "inactive cycle trades nothing",
			prep: func(t *testing.T, f *fixture) {
				f.cycle.IsActive = false
			},
			input:   RequestSwapInput{CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 5},
			wantErr: domain.ErrCycleInactive,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.prep != nil {
				tt.prep(t, f)
			}
			_, err := f.uc.RequestSwap(context.Background(), tt.input)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want err=%v, got %v", tt.wantErr, err)
			}
			if tt.wantKind != 0 && fault.KindOf(err) != tt.wantKind {
				t.Fatalf("want kind=%v, got %v (err=%v)", tt.wantKind, fault.KindOf(err), err)
			}
		})
	}
}

func TestUsecase_RespondSwap_Guards(t *testing.T) {
	openSwap := func(f *fixture) string {
		req, err := f.uc.RequestSwap(context.Background(), RequestSwapInput{
			CycleID: "CYC-1", RequesterID: "M-C", TargetPosition: 5,
		})
		if err != nil {
			panic(err)
		}
		return req.SwapID
	}

	t.Run("unknown swap", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: "nope", ResponderID: "M-E", Approve: true})
		if !errors.Is(err, domain.ErrSwapNotFound) {
			t.Fatalf("want ErrSwapNotFound, got %v", err)
		}
	})

	t.Run("only the target holder may answer", func(t *testing.T) {
		f := newFixture()
		swapID := openSwap(f)
		_, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-D", Approve: true})
		if !errors.Is(err, domain.ErrNotTargetHolder) {
			t.Fatalf("want ErrNotTargetHolder, got %v", err)
		}
	})

	t.Run("reject closes without moving slots", func(t *testing.T) {
		f := newFixture()
		swapID := openSwap(f)
		res, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-E", Approve: false})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if res.Status != string(domain.SwapRejected) {
			t.Fatalf("status = %s", res.Status)
		}
		for i, s := range f.slots {
			if s.Position != i+1 {
				t.Fatalf("slot positions moved on reject: %+v", s)
			}
		}
		if !f.rec.Has(notify.SwapRejected) {
			t.Fatalf("missing %s event", notify.SwapRejected)
		}
	})

	t.Run("answered swaps stay answered", func(t *testing.T) {
		f := newFixture()
		swapID := openSwap(f)
		if _, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-E", Approve: false}); err != nil {
			t.Fatalf("first answer: %v", err)
		}
		_, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-E", Approve: true})
		if !errors.Is(err, domain.ErrSwapClosed) {
			t.Fatalf("want ErrSwapClosed, got %v", err)
		}
	})

	t.Run("approving after a payout on either slot fails", func(t *testing.T) {
		f := newFixture()
		swapID := openSwap(f)
		f.pay(t, "key-1")
		f.pay(t, "key-2")
		f.pay(t, "key-3") // position 3 = requester M-C, now paid

		_, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-E", Approve: true})
		if !errors.Is(err, domain.ErrSlotAlreadyPaid) {
			t.Fatalf("want ErrSlotAlreadyPaid, got %v", err)
		}
	})

	t.Run("positions changed since the request", func(t *testing.T) {
		f := newFixture()
		swapID := openSwap(f)
		// A second, unrelated swap moves the requester first.
		other, err := f.uc.RequestSwap(context.Background(), RequestSwapInput{
			CycleID: "CYC-1", RequesterID: "M-D", TargetPosition: 3,
		})
		if err != nil {
			t.Fatalf("other request: %v", err)
		}
		if _, err := f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: other.SwapID, ResponderID: "M-C", Approve: true}); err != nil {
			t.Fatalf("other approve: %v", err)
		}

		_, err = f.uc.RespondSwap(context.Background(), RespondSwapInput{SwapID: swapID, ResponderID: "M-E", Approve: true})
		if fault.KindOf(err) != fault.Conflict {
			t.Fatalf("want conflict fault, got %v", err)
		}
	})
}
