package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	mw "chama-engine/internal/adapter/middleware"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Handlers bundles one handler per engine concern for route registration.
type Handlers struct {
	Health     *Handler
	Loans      *LoanHandler
	Guarantors *GuarantorHandler
	Repayments *RepaymentHandler
	Rotations  *RotationHandler
}

// Register mounts all routes. The idempotency middleware guards every
// mutating method and passes reads through untouched, so it is
// installed once for the whole surface.
func Register(e *echo.Echo, rdb *redis.Client, replayTTL time.Duration, h Handlers) {
	e.Validator = NewValidator()
	e.Use(mw.IdempotencyMiddleware(rdb, replayTTL))

	e.GET("/health", h.Health.Health)

	e.POST("/loans", h.Loans.Apply)
	e.GET("/loans/:loan_id", h.Loans.Get)
	e.POST("/loans/:loan_id/approve", h.Loans.Approve)
	e.POST("/loans/:loan_id/reject", h.Loans.Reject)
	e.POST("/loans/:loan_id/cancel", h.Loans.Cancel)
	e.POST("/loans/:loan_id/default", h.Loans.MarkDefaulted)

	e.POST("/loans/:loan_id/guarantors", h.Guarantors.Nominate)
	e.PATCH("/loans/:loan_id/guarantors/:member_id", h.Guarantors.Respond)

	e.POST("/loans/:loan_id/repayments", h.Repayments.Repay)

	e.POST("/cycles", h.Rotations.StartCycle)
	e.GET("/cycles/:cycle_id", h.Rotations.GetCycle)
	e.GET("/cycles/:cycle_id/next-recipient", h.Rotations.NextRecipient)
	e.POST("/cycles/:cycle_id/payouts", h.Rotations.ProcessPayout)
	e.POST("/cycles/:cycle_id/swaps", h.Rotations.RequestSwap)
	e.PATCH("/swaps/:swap_id", h.Rotations.RespondSwap)
}
