package mgmt

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	ferrors "github.com/p-blackswan/flowcore/internal/errors"
	ghclient "github.com/p-blackswan/flowcore/internal/github"
	"github.com/p-blackswan/flowcore/internal/health"
	"github.com/p-blackswan/flowcore/internal/review"
	"github.com/p-blackswan/flowcore/internal/roadmap"
	"github.com/p-blackswan/flowcore/internal/terminal"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	terminals *terminal.Manager
	reviews   *review.Orchestrator
	board     *roadmap.Board
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	terminals *terminal.Manager,
	reviews *review.Orchestrator,
	board *roadmap.Board,
	checker *health.Checker,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		terminals: terminals,
		reviews:   reviews,
		board:     board,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// CreateTerminal handles POST /api/v1/terminals.
func (h *Handlers) CreateTerminal(c *fiber.Ctx) error {
	snap := h.terminals.Open()
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// ListTerminals handles GET /api/v1/terminals.
func (h *Handlers) ListTerminals(c *fiber.Ctx) error {
	snapshots := h.terminals.List()
	return c.JSON(TerminalListResponse{Terminals: snapshots, Total: len(snapshots)})
}

// GetTerminal handles GET /api/v1/terminals/:id.
func (h *Handlers) GetTerminal(c *fiber.Ctx) error {
	snap, err := h.terminals.Get(c.Params("id"))
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"terminal_not_found", "Not Found",
			"Terminal not found: "+c.Params("id"))
	}
	return c.JSON(snap)
}

// TerminalEvent handles POST /api/v1/terminals/:id/events.
func (h *Handlers) TerminalEvent(c *fiber.Ctx) error {
	var req TerminalEventRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	ev, err := terminalEvent(req)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_event", "Bad Request", err.Error())
	}

	snap, err := h.terminals.Dispatch(c.Params("id"), ev)
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"terminal_not_found", "Not Found",
			"Terminal not found: "+c.Params("id"))
	}
	return c.JSON(snap)
}

// CloseTerminal handles DELETE /api/v1/terminals/:id.
func (h *Handlers) CloseTerminal(c *fiber.Ctx) error {
	if err := h.terminals.Close(c.Params("id")); errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"terminal_not_found", "Not Found",
			"Terminal not found: "+c.Params("id"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StartReview handles POST /api/v1/reviews.
func (h *Handlers) StartReview(c *fiber.Ctx) error {
	var req ReviewStartRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.PRNumber == 0 && req.PRURL != "" {
		_, _, prNumber, err := ghclient.ParsePRURL(req.PRURL)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_pr_url", "Bad Request", err.Error())
		}
		req.PRNumber = prNumber
	}

	snap, err := h.reviews.Start(req.ProjectID, req.PRNumber, req.Followup)
	switch {
	case errors.Is(err, ferrors.ErrReviewInFlight):
		return problemResponse(c, fiber.StatusConflict,
			"review_in_flight", "Conflict", err.Error())
	case errors.Is(err, ferrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found", err.Error())
	case errors.Is(err, ferrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_pr_number", "Bad Request", err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(snap)
}

// ListReviews handles GET /api/v1/reviews.
func (h *Handlers) ListReviews(c *fiber.Ctx) error {
	snapshots := h.reviews.List()
	return c.JSON(ReviewListResponse{Reviews: snapshots, Total: len(snapshots)})
}

// GetReview handles GET /api/v1/reviews/:project/:pr.
func (h *Handlers) GetReview(c *fiber.Ctx) error {
	prNumber, err := c.ParamsInt("pr")
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_pr_number", "Bad Request", "PR number must be an integer")
	}

	snap, err := h.reviews.Get(c.Params("project"), prNumber)
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"review_not_found", "Not Found", "No review for this PR")
	}
	return c.JSON(snap)
}

// ReviewEvent handles POST /api/v1/reviews/:project/:pr/events.
func (h *Handlers) ReviewEvent(c *fiber.Ctx) error {
	prNumber, err := c.ParamsInt("pr")
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_pr_number", "Bad Request", "PR number must be an integer")
	}

	var req ReviewEventRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	ev, err := reviewEvent(req)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_event", "Bad Request", err.Error())
	}

	snap, err := h.reviews.Dispatch(c.Params("project"), prNumber, ev)
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"review_not_found", "Not Found", "No review for this PR")
	}
	return c.JSON(snap)
}

// CancelReview handles DELETE /api/v1/reviews/:project/:pr.
func (h *Handlers) CancelReview(c *fiber.Ctx) error {
	prNumber, err := c.ParamsInt("pr")
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_pr_number", "Bad Request", "PR number must be an integer")
	}

	snap, err := h.reviews.Cancel(c.Params("project"), prNumber)
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"review_not_found", "Not Found", "No review for this PR")
	}
	return c.JSON(snap)
}

// ReviewDiff handles GET /api/v1/reviews/:project/:pr/diff.
func (h *Handlers) ReviewDiff(c *fiber.Ctx) error {
	prNumber, err := c.ParamsInt("pr")
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_pr_number", "Bad Request", "PR number must be an integer")
	}

	diff, err := h.reviews.Diff(c.Params("project"), prNumber)
	switch {
	case errors.Is(err, ferrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"review_not_found", "Not Found", "No review for this PR")
	case errors.Is(err, ferrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusConflict,
			"no_result", "Conflict", err.Error())
	}
	return c.JSON(diff)
}

// CreateFeature handles POST /api/v1/features.
func (h *Handlers) CreateFeature(c *fiber.Ctx) error {
	snap, err := h.board.Create()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// ListFeatures handles GET /api/v1/features.
func (h *Handlers) ListFeatures(c *fiber.Ctx) error {
	snapshots := h.board.List()
	return c.JSON(FeatureListResponse{Features: snapshots, Total: len(snapshots)})
}

// GetFeature handles GET /api/v1/features/:id.
func (h *Handlers) GetFeature(c *fiber.Ctx) error {
	snap, err := h.board.Get(c.Params("id"))
	if errors.Is(err, ferrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"feature_not_found", "Not Found",
			"Feature not found: "+c.Params("id"))
	}
	return c.JSON(snap)
}

// FeatureEvent handles POST /api/v1/features/:id/events.
func (h *Handlers) FeatureEvent(c *fiber.Ctx) error {
	var req FeatureEventRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	ev, err := featureEvent(req)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_event", "Bad Request", err.Error())
	}

	snap, err := h.board.Apply(c.Params("id"), ev)
	switch {
	case errors.Is(err, ferrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"feature_not_found", "Not Found",
			"Feature not found: "+c.Params("id"))
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(snap)
}

// DeleteFeature handles DELETE /api/v1/features/:id.
func (h *Handlers) DeleteFeature(c *fiber.Ctx) error {
	err := h.board.Delete(c.Params("id"))
	switch {
	case errors.Is(err, ferrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"feature_not_found", "Not Found",
			"Feature not found: "+c.Params("id"))
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	integrations := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		integrations[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	return c.JSON(HealthDetailResponse{
		Status:       overall,
		Integrations: integrations,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Version:      "1.0.0",
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
