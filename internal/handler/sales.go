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

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// RecordSale attributes a completed point-of-sale transaction to the open
// session. On a session conflict the client retries against the session
// returned by GET /v1/cashbox/active.
// POST /v1/sales
func (h *SalesHandler) RecordSale(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("invalid caller identity"))
		return
	}
	resp, err := h.svc.RecordSale(c.Request.Context(), actor, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListSales returns the sales attributed to a session, newest first.
// GET /v1/sales?session_id=...
func (h *SalesHandler) ListSales(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session_id"))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.ListSales(c.Request.Context(), sessionID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}
