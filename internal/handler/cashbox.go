package handler

import (
	"net/http"
	"strconv"

	"tallerops/internal/apierror"
	"tallerops/internal/dto"
	"tallerops/internal/middleware"
	"tallerops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashboxHandler struct{ svc service.CashboxService }

func NewCashboxHandler(svc service.CashboxService) *CashboxHandler {
	return &CashboxHandler{svc: svc}
}

// Open starts a new till session with a starting cash balance.
// POST /v1/cashbox/open
func (h *CashboxHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("invalid caller identity"))
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetActive returns the currently open session, or 404 when none.
// GET /v1/cashbox/active
func (h *CashboxHandler) GetActive(c *gin.Context) {
	resp, err := h.svc.GetActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("no active session"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddMovement records a manual income or expense against the open session.
// POST /v1/cashbox/movements
func (h *CashboxHandler) AddMovement(c *gin.Context) {
	var req dto.ManualMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("invalid caller identity"))
		return
	}
	resp, err := h.svc.AddMovement(c.Request.Context(), actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements returns the session's manual movements, newest first.
// GET /v1/cashbox/:id/movements
func (h *CashboxHandler) ListMovements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Report returns the live (or frozen, when closed) figures of a session.
// GET /v1/cashbox/:id/report
func (h *CashboxHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close reconciles the operator's count against the ledger and closes the
// session. A nonzero variance is reported in the response, not rejected.
// POST /v1/cashbox/close
func (h *CashboxHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("invalid caller identity"))
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of closed sessions.
// GET /v1/cashbox/history
func (h *CashboxHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, total, err := h.svc.History(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": total, "page": page, "limit": limit})
}
