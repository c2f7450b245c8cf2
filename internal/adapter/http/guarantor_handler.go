package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"chama-engine/internal/usecase/guarantor"
)

type GuarantorHandler struct{ uc *guarantor.Usecase }

func NewGuarantorHandler(uc *guarantor.Usecase) *GuarantorHandler {
	return &GuarantorHandler{uc: uc}
}

type nominateGuarantorReq struct {
	MemberID string `json:"member_id" validate:"required,hex32"`
	Amount   int64  `json:"amount"    validate:"required,gt=0"`
}

func (h *GuarantorHandler) Nominate(c echo.Context) error {
	var req nominateGuarantorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Nominate(c.Request().Context(), guarantor.NominateInput{
		LoanID:   c.Param("loan_id"),
		MemberID: req.MemberID,
		Amount:   req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type respondGuarantorReq struct {
	// pointer so an explicit false binds as a rejection
	Accept *bool `json:"accept" validate:"required"`
}

func (h *GuarantorHandler) Respond(c echo.Context) error {
	var req respondGuarantorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	res, err := h.uc.Respond(c.Request().Context(), guarantor.RespondInput{
		LoanID:   c.Param("loan_id"),
		MemberID: c.Param("member_id"),
		Accept:   *req.Accept,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
