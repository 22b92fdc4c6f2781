package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/api_gateway/service"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

// AllocationHandler handles HTTP requests for ticket allocations
type AllocationHandler struct {
	allocationService service.AllocationService
	logger            *slog.Logger
}

func NewAllocationHandler(logger *slog.Logger, allocationService service.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
		logger:            logger,
	}
}

func (h *AllocationHandler) Create(c *gin.Context) {
	var req CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.allocationService.Create(c.Request.Context(), c.Param("tenant_id"), req.UserID, req.TicketID, req.Quantity)
	if err != nil {
		respondError(c, h.logger, "create_allocation", err)
		return
	}
	RespondCreated(c, a)
}

// ticketParams reads the user and ticket path segments.
func ticketParams(c *gin.Context) (string, int64, bool) {
	ticketID, err := strconv.ParseInt(c.Param("ticket_id"), 10, 64)
	if err != nil || ticketID <= 0 {
		RespondBadRequest(c, "Invalid ticket ID")
		return "", 0, false
	}
	return c.Param("user_id"), ticketID, true
}

// GetActive returns the user's active allocation for a ticket, 404 when there is none
func (h *AllocationHandler) GetActive(c *gin.Context) {
	userID, ticketID, ok := ticketParams(c)
	if !ok {
		return
	}

	a, err := h.allocationService.GetActive(c.Request.Context(), c.Param("tenant_id"), userID, ticketID)
	if err != nil {
		respondError(c, h.logger, "get_active_allocation", err)
		return
	}
	if a == nil {
		RespondNotFound(c, "No active allocation")
		return
	}
	RespondOK(c, a)
}

// Release frees the unconsumed part of the active allocation. Releasing when nothing is
// active is not an error: the response carries a null result
func (h *AllocationHandler) Release(c *gin.Context) {
	userID, ticketID, ok := ticketParams(c)
	if !ok {
		return
	}

	result, err := h.allocationService.Release(c.Request.Context(), c.Param("tenant_id"), userID, ticketID)
	if err != nil {
		respondError(c, h.logger, "release_allocation", err)
		return
	}
	RespondOK(c, gin.H{"released": result})
}

func allocationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid allocation ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AllocationHandler) Update(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}

	var req UpdateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.allocationService.Update(c.Request.Context(), c.Param("tenant_id"), id, req.patch())
	if err != nil {
		respondError(c, h.logger, "update_allocation", err)
		return
	}
	if a == nil {
		RespondNotFound(c, "Allocation not found")
		return
	}
	RespondOK(c, a)
}

func (h *AllocationHandler) Consume(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}

	a, err := h.allocationService.Consume(c.Request.Context(), c.Param("tenant_id"), id)
	if err != nil {
		respondError(c, h.logger, "consume_allocation", err)
		return
	}
	if a == nil {
		RespondNotFound(c, "Allocation not found")
		return
	}
	RespondOK(c, a)
}

func (h *AllocationHandler) List(c *gin.Context) {
	var q AllocationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := allocation.Filter{UserID: q.UserID, TicketID: q.TicketID, Status: allocation.Status(q.Status)}
	page, err := h.allocationService.List(c.Request.Context(), c.Param("tenant_id"), filter,
		pagination.Params{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		respondError(c, h.logger, "list_allocations", err)
		return
	}
	RespondWithPage(c, page)
}
