package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "chama-engine/internal/adapter/middleware"
	"chama-engine/internal/usecase/rotation"
)

type RotationHandler struct{ uc *rotation.Usecase }

func NewRotationHandler(uc *rotation.Usecase) *RotationHandler {
	return &RotationHandler{uc: uc}
}

type startCycleReq struct {
	ChamaID         string `json:"chama_id"          validate:"required,hex32"`
	AmountPerMember int64  `json:"amount_per_member" validate:"required,gt=0"`
	Frequency       string `json:"frequency"         validate:"required,oneof=weekly monthly quarterly"`
}

func (h *RotationHandler) StartCycle(c echo.Context) error {
	var req startCycleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.StartCycle(c.Request().Context(), rotation.StartCycleInput{
		ChamaID:         req.ChamaID,
		AmountPerMember: req.AmountPerMember,
		Frequency:       req.Frequency,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *RotationHandler) GetCycle(c echo.Context) error {
	dto, err := h.uc.GetCycle(c.Request().Context(), c.Param("cycle_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RotationHandler) NextRecipient(c echo.Context) error {
	dto, err := h.uc.NextRecipient(c.Request().Context(), c.Param("cycle_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ProcessPayout reuses Ax-Request-Id as the payout idempotency key;
// the unique key on payouts makes the retry a replay, not a double pay.
func (h *RotationHandler) ProcessPayout(c echo.Context) error {
	dto, err := h.uc.ProcessPayout(c.Request().Context(), rotation.ProcessPayoutInput{
		CycleID:        c.Param("cycle_id"),
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

type requestSwapReq struct {
	TargetPosition int    `json:"target_position" validate:"required,gt=0"`
	Reason         string `json:"reason"`
}

func (h *RotationHandler) RequestSwap(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	var req requestSwapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.RequestSwap(c.Request().Context(), rotation.RequestSwapInput{
		CycleID:        c.Param("cycle_id"),
		RequesterID:    actorID,
		TargetPosition: req.TargetPosition,
		Reason:         req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type respondSwapReq struct {
	// pointer so an explicit false binds as a rejection
	Approve *bool `json:"approve" validate:"required"`
}

func (h *RotationHandler) RespondSwap(c echo.Context) error {
	actorID := mw.ActorID(c)
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing Ax-Actor-Id"})
	}
	var req respondSwapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.RespondSwap(c.Request().Context(), rotation.RespondSwapInput{
		SwapID:      c.Param("swap_id"),
		ResponderID: actorID,
		Approve:     *req.Approve,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
