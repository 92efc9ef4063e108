package api

import (
	"errors"
	"fmt"
	"net/http"

	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the review queue and lifecycle administration.
type AdminHandler struct {
	membershipService service.MembershipService
	approvalService   service.ApprovalService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(membershipService service.MembershipService, approvalService service.ApprovalService) *AdminHandler {
	return &AdminHandler{
		membershipService: membershipService,
		approvalService:   approvalService,
	}
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// ListByStatus godoc
// @Summary List memberships by status (review queues)
// @Tags Admin
// @Produce json
// @Param status query string true "Membership status" Enums(awaiting_payment, pending, active, grace_period, expired, rejected, cancelled)
// @Success 200 {array} domain.Membership
// @Failure 400 {object} gin.H "Unknown status"
// @Router /admin/memberships [get]
func (h *AdminHandler) ListByStatus(c *gin.Context) {
	status := domain.MembershipStatus(c.DefaultQuery("status", string(domain.StatusPending)))
	switch status {
	case domain.StatusAwaitingPayment, domain.StatusPending, domain.StatusActive,
		domain.StatusGracePeriod, domain.StatusExpired, domain.StatusRejected, domain.StatusCancelled:
	default:
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", status))
		return
	}

	memberships, err := h.membershipService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list memberships")
		return
	}
	c.JSON(http.StatusOK, memberships)
}

// Approve godoc
// @Summary Approve a pending or grace-period membership
// @Description Verifies the newest pending payment, recomputes membership and trainer dates, and activates the membership.
// @Tags Admin
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Success 200 {object} service.ApprovalResult
// @Failure 404 {object} gin.H "Membership not found"
// @Failure 409 {object} gin.H "Not approvable or concurrent modification"
// @Router /admin/memberships/{membershipId}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
	adminID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	result, err := h.approvalService.Approve(c.Request.Context(), membershipID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMembershipNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotApprovable), errors.Is(err, service.ErrApprovalConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to approve membership")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reject godoc
// @Summary Reject a membership
// @Tags Admin
// @Accept json
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Param rejection body RejectRequest false "Rejection reason"
// @Success 204 "Rejected"
// @Failure 404 {object} gin.H "Membership not found"
// @Router /admin/memberships/{membershipId}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	adminID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	var req RejectRequest
	// Body is optional; a bare POST rejects without a reason.
	_ = c.ShouldBindJSON(&req)

	if err := h.approvalService.Reject(c.Request.Context(), membershipID, adminID, req.Reason); err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to reject membership")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a membership and everything it owns
// @Tags Admin
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Success 204 "Deleted"
// @Failure 404 {object} gin.H "Membership not found"
// @Router /admin/memberships/{membershipId} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	adminID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	if err := h.membershipService.Delete(c.Request.Context(), adminID, membershipID); err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete membership")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ProofDownloadURL godoc
// @Summary Get a presigned download URL for a payment proof
// @Tags Admin
// @Produce json
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} gin.H "url"
// @Failure 404 {object} gin.H "Payment or proof not found"
// @Router /admin/payments/{paymentId}/proof [get]
func (h *AdminHandler) ProofDownloadURL(c *gin.Context) {
	paymentID, ok := pathObjectID(c, "paymentId")
	if !ok {
		return
	}

	url, err := h.membershipService.ProofDownloadURL(c.Request.Context(), paymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound), errors.Is(err, service.ErrMissingReference):
			abortWithError(c, http.StatusNotFound, "Payment proof not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// RunSweep godoc
// @Summary Run the grace-period sweep immediately
// @Description The sweep also runs on a schedule; this endpoint exists for operational use.
// @Tags Admin
// @Produce json
// @Success 200 {object} service.SweepReport
// @Router /admin/sweep [post]
func (h *AdminHandler) RunSweep(c *gin.Context) {
	report, err := h.membershipService.RunGraceSweep(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Sweep failed")
		return
	}
	c.JSON(http.StatusOK, report)
}
