package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/internal/validator"
)

// TicketManager lists tickets and changes their status, priority and assignee
type TicketManager interface {
	List(ctx context.Context, slug string, filter repository.TicketFilter) ([]models.Ticket, int64, error)
	Stats(ctx context.Context, slug string) (*services.TicketStats, error)
	Get(ctx context.Context, id uint) (*services.TicketDetail, error)
	Update(ctx context.Context, id uint, in services.TicketUpdate) (*models.Ticket, error)
}

// TicketHandler handles ticket HTTP requests
type TicketHandler struct {
	tickets TicketManager
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(tickets TicketManager) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// List handles GET /api/companies/:slug/tickets
func (h *TicketHandler) List(c echo.Context) error {
	var filter repository.TicketFilter
	filter.Limit, filter.Offset = validator.ValidatePagination(
		queryInt(c, "limit", validator.DefaultLimit),
		queryInt(c, "offset", 0),
	)
	filter.Status = c.QueryParam("status")
	if raw := c.QueryParam("assignee_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return response.BadRequest(c, "invalid assignee ID")
		}
		assignee := uint(id)
		filter.AssigneeID = &assignee
	}

	tickets, total, err := h.tickets.List(c.Request().Context(), c.Param("slug"), filter)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, tickets, total, filter.Limit, filter.Offset)
}

// Stats handles GET /api/companies/:slug/tickets/stats
func (h *TicketHandler) Stats(c echo.Context) error {
	stats, err := h.tickets.Stats(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, stats)
}

// Get handles GET /api/tickets/:id
func (h *TicketHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid ticket ID")
	}

	detail, err := h.tickets.Get(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, detail)
}

// Update handles PATCH /api/tickets/:id
func (h *TicketHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid ticket ID")
	}

	var req services.TicketUpdate
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	ticket, err := h.tickets.Update(c.Request().Context(), id, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, ticket)
}
