package api

import (
	"errors"
	"net/http"

	"scheduled-mailer/internal/domain/email"
	reqdto "scheduled-mailer/internal/handler/dto/request"
	resdto "scheduled-mailer/internal/handler/dto/response"
	"scheduled-mailer/internal/handler/httperr"
	"scheduled-mailer/internal/handler/middleware"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/usecase/commands"
	"scheduled-mailer/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EmailHandler struct {
	cmds commands.EmailCommands
	q    queries.EmailQueries
}

func NewEmailHandler(cmds commands.EmailCommands, q queries.EmailQueries) *EmailHandler {
	return &EmailHandler{cmds: cmds, q: q}
}

// @Summary List emails
// @Description List the caller's emails, latest scheduled time first
// @Tags emails
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.EmailResponse
// @Failure 401 {object} map[string]string
// @Router /api/emails [get]
func (h *EmailHandler) List(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := h.q.List(c.Request.Context(), ownerID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to list emails", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromEmailList(rows))
}

// @Summary Schedule email
// @Description Schedule an email for delivery at scheduledAt
// @Tags emails
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.ScheduleEmailRequest true "Schedule email request"
// @Success 201 {object} resdto.ScheduleEmailResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} map[string]string
// @Failure 503 {object} httperr.Response
// @Router /api/emails/schedule [post]
func (h *EmailHandler) Schedule(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req reqdto.ScheduleEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	result, err := h.cmds.Schedule(c.Request.Context(), ownerID, req.ToInput())
	if err != nil {
		switch {
		case errors.Is(err, email.ErrInvalidSchedule):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid scheduledAt", nil)
		case errors.Is(err, email.ErrPastSchedule):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "scheduledAt must be in the future", nil)
		case errors.Is(err, errs.ErrDomainValidation):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid email", gin.H{"reason": domainReason(err)})
		case errors.Is(err, jobqueue.ErrQueueUnavailable):
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Delivery queue unavailable", errs.Hints(err))
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to schedule email", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.ScheduleEmailResponse{
		EmailResponse: *resdto.FromEmail(result.Email),
		Warnings:      result.Warnings,
	})
}

// @Summary Email stats
// @Description Count the caller's emails per status
// @Tags emails
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.StatsResponse
// @Failure 401 {object} map[string]string
// @Router /api/emails/stats [get]
func (h *EmailHandler) Stats(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	stats, err := h.q.Stats(c.Request.Context(), ownerID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to load stats", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromStats(stats))
}

// @Summary Cancel email
// @Description Cancel a scheduled email and remove it. Unknown ids succeed too.
// @Tags emails
// @Produce json
// @Security BearerAuth
// @Param id path string true "Email ID"
// @Success 200 {object} resdto.MessageResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} map[string]string
// @Router /api/emails/{id} [delete]
func (h *EmailHandler) Cancel(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}

	if err := h.cmds.Cancel(c.Request.Context(), ownerID, id); err != nil && !errors.Is(err, commands.ErrEmailNotFound) {
		if errors.Is(err, jobqueue.ErrQueueUnavailable) {
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Delivery queue unavailable", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to cancel email", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.MessageResponse{Message: "Email cancelled and removed"})
}

// @Summary Send email now
// @Description Trigger immediate delivery of a scheduled email
// @Tags emails
// @Produce json
// @Security BearerAuth
// @Param id path string true "Email ID"
// @Success 200 {object} resdto.SendNowResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} map[string]string
// @Failure 404 {object} httperr.Response
// @Router /api/emails/{id}/send [post]
func (h *EmailHandler) SendNow(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}

	record, err := h.cmds.SendNow(c.Request.Context(), ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrEmailNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Email not found", nil)
		case errors.Is(err, jobqueue.ErrQueueUnavailable):
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Delivery queue unavailable", errs.Hints(err))
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to trigger email", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.SendNowResponse{
		Message: "Email processing triggered",
		Email:   resdto.FromEmail(record),
	})
}

func domainReason(err error) string {
	switch {
	case errors.Is(err, email.ErrInvalidRecipient):
		return "invalid recipient"
	case errors.Is(err, email.ErrEmptySubject):
		return "subject is required"
	case errors.Is(err, email.ErrSubjectTooLong):
		return "subject is too long"
	default:
		return "invalid email"
	}
}
