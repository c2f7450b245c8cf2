package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "chama-engine/internal/adapter/middleware"
	"chama-engine/internal/usecase/repayment"
)

type RepaymentHandler struct{ uc *repayment.Usecase }

func NewRepaymentHandler(uc *repayment.Usecase) *RepaymentHandler {
	return &RepaymentHandler{uc: uc}
}

type repayReq struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Repay posts a repayment. Ax-Request-Id doubles as the engine-level
// idempotency key, so a retry that misses the redis replay cache still
// lands on the same repayment row.
func (h *RepaymentHandler) Repay(c echo.Context) error {
	var req repayReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Repay(c.Request().Context(), repayment.RepayInput{
		LoanID:         c.Param("loan_id"),
		Amount:         req.Amount,
		IdempotencyKey: mw.RequestID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	if dto.Replayed {
		return c.JSON(http.StatusOK, dto)
	}
	return c.JSON(http.StatusCreated, dto)
}
