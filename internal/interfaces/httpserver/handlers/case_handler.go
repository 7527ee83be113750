package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/auth"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/requests"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/responses"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// CaseHandler exposes the internal case API used by the analysis collaborator and
// operators.
type CaseHandler struct {
	tickets *ticket.TicketService
	opener  *command.Handler
	log     zerolog.Logger
}

func NewCaseHandler(tickets *ticket.TicketService, opener *command.Handler, log zerolog.Logger) *CaseHandler {
	return &CaseHandler{
		tickets: tickets,
		opener:  opener,
		log:     log.With().Str("handler", "case").Logger(),
	}
}

// Create handles POST /v1/cases
func (h *CaseHandler) Create(c *gin.Context) {
	var req requests.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "3c2b1a09-8f7e-4d6c-9b5a-4e3d2c1b0a01")
		return
	}
	priority := ticket.Priority(req.Priority)
	if priority != "" && !priority.Valid() {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "unknown priority", "8e7d6c5b-4a39-4281-9f0e-1d2c3b4a5902")
		return
	}

	created, isNew, err := h.opener.OpenCase(c.Request.Context(), command.CaseRequest{
		MessageID: req.MessageID,
		Title:     req.Title,
		Category:  req.Category,
		Priority:  priority,
		ActorName: actorName(c),
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create case")
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	c.JSON(status, responses.CaseResponse{Case: created, Created: isNew})
}

// Get handles GET /v1/cases/:case_id
func (h *CaseHandler) Get(c *gin.Context) {
	caseID, ok := uintParam(c, "case_id")
	if !ok {
		return
	}
	found, err := h.tickets.FindByID(c.Request.Context(), caseID)
	if err != nil {
		responses.HandleError(c, err, "failed to get case")
		return
	}
	activities, err := h.tickets.ListActivities(c.Request.Context(), caseID)
	if err != nil {
		responses.HandleError(c, err, "failed to get case activity")
		return
	}
	c.JSON(http.StatusOK, responses.CaseDetailResponse{Case: found, Activities: nonNil(activities)})
}

// UpdateStatus handles PATCH /v1/cases/:case_id/status
func (h *CaseHandler) UpdateStatus(c *gin.Context) {
	caseID, ok := uintParam(c, "case_id")
	if !ok {
		return
	}
	var req requests.UpdateCaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "6b5a4938-2f1e-4d0c-8b7a-695847362503")
		return
	}

	before, err := h.tickets.FindByID(c.Request.Context(), caseID)
	if err != nil {
		responses.HandleError(c, err, "failed to update case")
		return
	}
	updated, err := h.tickets.UpdateStatus(c.Request.Context(), caseID, ticket.Status(req.Status), nil, actorName(c))
	if err != nil {
		responses.HandleError(c, err, "failed to update case")
		return
	}
	metrics.RecordCaseTransition(string(before.Status), string(updated.Status))
	c.JSON(http.StatusOK, responses.CaseResponse{Case: updated})
}

// ListByChannel handles GET /v1/channels/:channel_id/cases
func (h *CaseHandler) ListByChannel(c *gin.Context) {
	channelID, ok := uintParam(c, "channel_id")
	if !ok {
		return
	}
	cases, err := h.tickets.ListByChannel(c.Request.Context(), channelID)
	if err != nil {
		responses.HandleError(c, err, "failed to list cases")
		return
	}
	c.JSON(http.StatusOK, responses.NewListResponse(cases))
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid "+name, "d9c8b7a6-9504-4f3e-a2d1-c0b9a8f7e604")
		return 0, false
	}
	return uint(v), true
}

// actorName is the authenticated subject, if any.
func actorName(c *gin.Context) string {
	return c.GetString(auth.ContextKeySubject)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
