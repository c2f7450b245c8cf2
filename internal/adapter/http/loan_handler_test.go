package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	mw "chama-engine/internal/adapter/middleware"
	chamaDomain "chama-engine/internal/domain/chama"
	loanDomain "chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/testutil/chamamock"
	"chama-engine/internal/testutil/loanmock"
	"chama-engine/internal/testutil/notifymock"
	"chama-engine/internal/testutil/uowmock"
	loanUC "chama-engine/internal/usecase/loan"
	"chama-engine/pkg/clock"
)

// -------- shared harness --------

var handlerNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

var (
	chamaID32    = strings.Repeat("c", 32)
	borrowerID32 = strings.Repeat("b", 32)
	nomineeID32  = strings.Repeat("d", 32)
	officialID32 = strings.Repeat("e", 32)
	loanID32     = strings.Repeat("f", 32)
)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// testChama is a FLAT 10%, 3x multiplier group in KES.
func testChama() *chamaDomain.Chama {
	return &chamaDomain.Chama{
		ID:       1,
		ChamaID:  chamaID32,
		Name:     "Umoja Savings Group",
		Currency: "KES",
		LoanConfig: chamaDomain.LoanConfig{
			InterestType:       loanDomain.InterestFlat,
			InterestRate:       decimal.NewFromInt(10),
			Multiplier:         decimal.NewFromInt(3),
			MaxRepaymentMonths: 12,
			MaxConcurrentLoans: 1,
			PenaltyRate:        decimal.NewFromInt(5),
		},
	}
}

func memberLookup(members ...*chamaDomain.Member) func(context.Context, string, string) (*chamaDomain.Member, error) {
	return func(_ context.Context, _, memberID string) (*chamaDomain.Member, error) {
		for _, m := range members {
			if m.MemberID == memberID {
				return m, nil
			}
		}
		return nil, gorm.ErrRecordNotFound
	}
}

func newLoanHandler(repos uow.Repos) *LoanHandler {
	u := loanUC.NewUsecase(repos, uowmock.PassThrough(repos), clock.NewFixed(handlerNow), &notifymock.Recorder{})
	return NewLoanHandler(u)
}

// -------- tests --------

func TestApplyLoan_Success(t *testing.T) {
	e := newEchoWithValidator()

	chamas := &chamamock.Repo{
		GetByChamaIDFn: func(context.Context, string) (*chamaDomain.Chama, error) { return testChama(), nil },
		GetMemberFn: memberLookup(
			&chamaDomain.Member{MemberID: borrowerID32, Role: chamaDomain.RoleMember, SavingsBalance: 500_000, IsActive: true},
			&chamaDomain.Member{MemberID: nomineeID32, Role: chamaDomain.RoleMember, SavingsBalance: 300_000, IsActive: true},
		),
	}
	loans := &loanmock.Repo{
		CreateFn: func(_ context.Context, l *loanDomain.Loan) error {
			l.ID = 7
			return nil
		},
	}
	h := newLoanHandler(uow.Repos{Chamas: chamas, Loans: loans})

	reqBody := map[string]any{
		"chama_id":    chamaID32,
		"borrower_id": borrowerID32,
		"principal":   1_000_000,
		"term_months": 5,
		"purpose":     "stock for shop",
		"guarantors":  []map[string]any{{"member_id": nomineeID32, "amount": 1_100_000}},
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", mustJSON(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Apply(c); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	var got loanUC.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Status != string(loanDomain.StatusPendingGuarantor) {
		t.Fatalf("status = %s, want %s", got.Status, loanDomain.StatusPendingGuarantor)
	}
	if got.TotalRepayable != 1_100_000 {
		t.Fatalf("total repayable = %d, want 1100000", got.TotalRepayable)
	}
}

func TestApplyLoan_BindError(t *testing.T) {
	e := newEchoWithValidator()
	h := newLoanHandler(uow.Repos{})

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", strings.NewReader(`{"chama_id":`)) // broken JSON
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Apply(c); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "invalid body" {
		t.Fatalf("error = %q, want %q", er.Error, "invalid body")
	}
}

func TestApplyLoan_ValidationError(t *testing.T) {
	e := newEchoWithValidator()
	h := newLoanHandler(uow.Repos{}) // usecase never reached

	reqBody := map[string]any{
		"chama_id":    "NOT-HEX",
		"borrower_id": borrowerID32,
		"principal":   0,
		"term_months": 5,
		"purpose":     "",
		"guarantors":  []map[string]any{{"member_id": "also bad", "amount": 0}},
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", mustJSON(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Apply(c); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if er.Error != "validation failed" {
		t.Fatalf("error = %q, want %q", er.Error, "validation failed")
	}
	if !containsFieldMsg(er.Details, "ChamaID", "32-char lowercase hex") {
		t.Fatalf("missing hex32 detail for ChamaID: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "Principal", "is required") {
		t.Fatalf("missing required detail for Principal: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "Purpose", "is required") {
		t.Fatalf("missing required detail for Purpose: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "MemberID", "32-char lowercase hex") {
		t.Fatalf("missing nested guarantor detail: %+v", er.Details)
	}
}

func TestApplyLoan_PolicyViolationMapsTo422(t *testing.T) {
	e := newEchoWithValidator()

	// savings 100,000 x multiplier 3 cannot carry a 1,000,000 principal
	chamas := &chamamock.Repo{
		GetByChamaIDFn: func(context.Context, string) (*chamaDomain.Chama, error) { return testChama(), nil },
		GetMemberFn: memberLookup(
			&chamaDomain.Member{MemberID: borrowerID32, Role: chamaDomain.RoleMember, SavingsBalance: 100_000, IsActive: true},
		),
	}
	h := newLoanHandler(uow.Repos{Chamas: chamas, Loans: &loanmock.Repo{}})

	reqBody := map[string]any{
		"chama_id":    chamaID32,
		"borrower_id": borrowerID32,
		"principal":   1_000_000,
		"term_months": 5,
		"purpose":     "stock for shop",
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", mustJSON(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Apply(c); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != loanDomain.ErrExceedsMultiplier.Error() {
		t.Fatalf("error = %q, want %q", er.Error, loanDomain.ErrExceedsMultiplier.Error())
	}
}

func TestGetLoan_Success(t *testing.T) {
	e := echo.New()

	loans := &loanmock.Repo{
		GetByLoanIDFn: func(_ context.Context, loanID string) (*loanDomain.Loan, error) {
			if loanID != loanID32 {
				return nil, gorm.ErrRecordNotFound
			}
			return &loanDomain.Loan{
				ID: 7, LoanID: loanID32, ChamaID: chamaID32, BorrowerID: borrowerID32,
				Currency: "KES", Principal: 1_000_000,
				InterestType: loanDomain.InterestFlat, InterestRate: decimal.NewFromInt(10),
				TermMonths: 5, Purpose: "stock for shop",
				Status:         loanDomain.StatusActive,
				TotalRepayable: 1_100_000, PrincipalOutstanding: 1_000_000, InterestOutstanding: 100_000,
				CreatedAt: handlerNow,
			}, nil
		},
		ListInstallmentsFn: func(context.Context, uint64) ([]loanDomain.Installment, error) {
			return []loanDomain.Installment{
				{Sequence: 1, DueDate: handlerNow.AddDate(0, 1, 0), PrincipalAmount: 200_000, InterestAmount: 20_000, Status: loanDomain.InstallmentPending},
				{Sequence: 2, DueDate: handlerNow.AddDate(0, 2, 0), PrincipalAmount: 200_000, InterestAmount: 20_000, Status: loanDomain.InstallmentPending},
			}, nil
		},
		ListGuarantorsFn: func(context.Context, uint64) ([]loanDomain.Guarantor, error) {
			return []loanDomain.Guarantor{
				{GuarantorID: strings.Repeat("9", 32), MemberID: nomineeID32, GuaranteedAmount: 1_100_000, Status: loanDomain.GuarantorApproved},
			}, nil
		},
	}
	h := newLoanHandler(uow.Repos{Loans: loans})

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/"+loanID32, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(loanID32)

	if err := h.Get(c); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var dto loanUC.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.LoanID != loanID32 || len(dto.Installments) != 2 || len(dto.Guarantors) != 1 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	e := echo.New()
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loanDomain.Loan, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	h := newLoanHandler(uow.Repos{Loans: loans})

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/xxx", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues("xxx")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != loanDomain.ErrNotFound.Error() {
		t.Fatalf("error = %q, want %q", er.Error, loanDomain.ErrNotFound.Error())
	}
}

func TestApproveLoan_Success(t *testing.T) {
	e := newEchoWithValidator()

	var createdInstallments int
	chamas := &chamamock.Repo{
		GetMemberFn: memberLookup(
			&chamaDomain.Member{MemberID: officialID32, Role: chamaDomain.RoleTreasurer, IsActive: true},
		),
	}
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, loanID string) (*loanDomain.Loan, error) {
			return &loanDomain.Loan{
				ID: 7, LoanID: loanID, ChamaID: chamaID32, BorrowerID: borrowerID32,
				Currency: "KES", Principal: 1_000_000,
				InterestType: loanDomain.InterestFlat, InterestRate: decimal.NewFromInt(10),
				TermMonths: 5, Purpose: "stock for shop",
				Status:         loanDomain.StatusPendingApproval,
				TotalRepayable: 1_100_000, PrincipalOutstanding: 1_000_000, InterestOutstanding: 100_000,
			}, nil
		},
		CreateInstallmentsFn: func(_ context.Context, items []loanDomain.Installment) error {
			createdInstallments = len(items)
			return nil
		},
	}
	h := newLoanHandler(uow.Repos{Chamas: chamas, Loans: loans})

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/"+loanID32+"/approve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(loanID32)
	c.Set(mw.CtxActorID, officialID32)

	if err := h.Approve(c); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var dto loanUC.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.Status != string(loanDomain.StatusActive) {
		t.Fatalf("status = %s, want ACTIVE", dto.Status)
	}
	if createdInstallments != 5 || len(dto.Installments) != 5 {
		t.Fatalf("installments = %d persisted / %d in dto, want 5/5", createdInstallments, len(dto.Installments))
	}
	if dto.ApprovedBy == nil || *dto.ApprovedBy != officialID32 {
		t.Fatalf("approved_by = %v, want %s", dto.ApprovedBy, officialID32)
	}
}

func TestApproveLoan_MissingActor(t *testing.T) {
	e := newEchoWithValidator()
	h := newLoanHandler(uow.Repos{})

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/"+loanID32+"/approve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(loanID32)

	if err := h.Approve(c); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "missing Ax-Actor-Id" {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestCancelLoan_WrongBorrowerMapsTo422(t *testing.T) {
	e := newEchoWithValidator()

	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, loanID string) (*loanDomain.Loan, error) {
			return &loanDomain.Loan{
				ID: 7, LoanID: loanID, ChamaID: chamaID32, BorrowerID: borrowerID32,
				Status: loanDomain.StatusPendingGuarantor,
			}, nil
		},
	}
	h := newLoanHandler(uow.Repos{Loans: loans})

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/"+loanID32+"/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(loanID32)
	c.Set(mw.CtxActorID, nomineeID32) // not the borrower

	if err := h.Cancel(c); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != loanDomain.ErrNotBorrower.Error() {
		t.Fatalf("error = %q, want %q", er.Error, loanDomain.ErrNotBorrower.Error())
	}
}
