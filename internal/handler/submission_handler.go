package handler

import (
	"errors"
	"io"
	"net/http"

	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/pagination"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
}

func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// RegisterRoutes expects router to already run middleware.Authenticate.
// Approve and reject stay open to reviewers without APPROVE_PROPERTY; the
// service decides based on the current assignment.
func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	subs := router.Group("/property-submissions")
	{
		subs.GET("", middleware.RequireAnyPermission(auth.PermReviewPropertyKey, auth.PermApprovePropertyKey), h.ListSubmissions)
		subs.POST("/:id/assign", middleware.RequireAnyPermission(auth.PermApprovePropertyKey), h.AssignSubmission)
		subs.POST("/:id/approve", h.ApproveSubmission)
		subs.POST("/:id/reject", h.RejectSubmission)
	}
}

// ListSubmissions returns the property review queue
// @Summary      List property submissions
// @Description  Paginated review queue, Pending by default. status=all disables the filter.
// @Tags         property-submissions
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Pending, Approved, Rejected or all"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      400     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /management/property-submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	p := pagination.FromQuery(c)

	items, total, err := h.submissionService.List(c.Request.Context(), session, service.ReviewQueueFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// AssignSubmission binds a pending submission to a reviewer
// @Summary      Assign a property submission
// @Tags         property-submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                              true  "Submission ID"
// @Param        payload  body      service.AssignSubmissionRequest  true  "Reviewer"
// @Success      200      {object}  response.Response{data=service.AssignResult}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /management/property-submissions/{id}/assign [post]
func (h *SubmissionHandler) AssignSubmission(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.AssignSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	result, err := h.submissionService.Assign(c.Request.Context(), session, id, req.AssignedToUserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ApproveSubmission approves a pending submission and opens its listing
// @Summary      Approve a property submission
// @Description  Callers without APPROVE_PROPERTY may approve only submissions assigned to them.
// @Tags         property-submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true   "Submission ID"
// @Param        payload  body      service.ReviewNoteRequest  false  "Optional note"
// @Success      200      {object}  response.Response{data=service.ApproveSubmissionResult}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /management/property-submissions/{id}/approve [post]
func (h *SubmissionHandler) ApproveSubmission(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewNoteRequest
	// The note is optional, so an empty body is fine.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c, err)
		return
	}

	result, err := h.submissionService.Approve(c.Request.Context(), session, id, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectSubmission rejects a pending submission
// @Summary      Reject a property submission
// @Description  The note is the rejection reason and is required.
// @Tags         property-submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Submission ID"
// @Param        payload  body      service.ReviewNoteRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.RejectSubmissionResult}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /management/property-submissions/{id}/reject [post]
func (h *SubmissionHandler) RejectSubmission(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c, err)
		return
	}
	reason := ""
	if req.Note != nil {
		reason = *req.Note
	}

	result, err := h.submissionService.Reject(c.Request.Context(), session, id, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
