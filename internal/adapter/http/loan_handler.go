package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "chama-engine/internal/adapter/middleware"
	"chama-engine/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type guarantorNomination struct {
	MemberID string `json:"member_id" validate:"required,hex32"`
	Amount   int64  `json:"amount"    validate:"required,gt=0"`
}

type applyLoanReq struct {
	ChamaID    string                `json:"chama_id"    validate:"required,hex32"`
	BorrowerID string                `json:"borrower_id" validate:"required,hex32"`
	Principal  int64                 `json:"principal"   validate:"required,gt=0"`
	TermMonths int                   `json:"term_months" validate:"required,gt=0"`
	Purpose    string                `json:"purpose"     validate:"required"`
	Guarantors []guarantorNomination `json:"guarantors"  validate:"omitempty,dive"`
}

func (h *LoanHandler) Apply(c echo.Context) error {
	var req applyLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := loan.ApplyInput{
		ChamaID:    req.ChamaID,
		BorrowerID: req.BorrowerID,
		Principal:  req.Principal,
		TermMonths: req.TermMonths,
		Purpose:    req.Purpose,
	}
	for _, g := range req.Guarantors {
		in.Guarantors = append(in.Guarantors, loan.GuarantorInput{MemberID: g.MemberID, Amount: g.Amount})
	}

	dto, err := h.uc.Apply(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Approve, Reject, Cancel and MarkDefaulted act on behalf of the
// authenticated member; the usecases check the role the actor must hold.

func (h *LoanHandler) Approve(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	dto, err := h.uc.Approve(c.Request().Context(), loan.ApproveInput{
		LoanID:     c.Param("loan_id"),
		ApproverID: actorID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Reject(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	dto, err := h.uc.Reject(c.Request().Context(), loan.RejectInput{
		LoanID:     c.Param("loan_id"),
		ApproverID: actorID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	dto, err := h.uc.Cancel(c.Request().Context(), loan.CancelInput{
		LoanID:     c.Param("loan_id"),
		BorrowerID: actorID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) MarkDefaulted(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	dto, err := h.uc.MarkDefaulted(c.Request().Context(), loan.MarkDefaultedInput{
		LoanID:     c.Param("loan_id"),
		OfficialID: actorID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
