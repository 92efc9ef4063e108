package api

import (
	"errors"
	"fmt"
	"net/http"

	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipHandler holds the membership service dependency.
type MembershipHandler struct {
	membershipService service.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membershipService service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// callerID resolves the authenticated user's ObjectID from the request
// context set by AuthMiddleware.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid user ID in token")
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathObjectID parses an ObjectID path parameter, aborting with 400 when
// malformed.
func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// ListPlans godoc
// @Summary List the purchasable membership plans
// @Tags Memberships
// @Produce json
// @Success 200 {array} domain.Plan
// @Router /plans [get]
func (h *MembershipHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.membershipService.ListPlans())
}

// Purchase godoc
// @Summary Purchase a membership plan
// @Description Creates an awaiting_payment membership and returns a presigned URL for the payment proof upload.
// @Tags Memberships
// @Accept json
// @Produce json
// @Param purchase body service.PurchaseInput true "Purchase details"
// @Success 201 {object} service.PurchaseResult
// @Failure 400 {object} gin.H "Invalid input or unknown plan"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /memberships [post]
func (h *MembershipHandler) Purchase(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req service.PurchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.membershipService.Purchase(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrMembershipNotFound):
			abortWithError(c, http.StatusBadRequest, "Renewal reference does not match one of your memberships")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create membership")
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

// SubmitPayment godoc
// @Summary Submit a payment proof for a membership
// @Tags Memberships
// @Accept json
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Param payment body service.SubmitPaymentInput true "Payment details"
// @Success 201 {object} domain.Payment
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Membership not found"
// @Router /memberships/{membershipId}/payments [post]
func (h *MembershipHandler) SubmitPayment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	var req service.SubmitPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	payment, err := h.membershipService.SubmitPayment(c.Request.Context(), userID, membershipID, req)
	if err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to record payment")
		}
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// TrainerRenewalEligibility godoc
// @Summary Check trainer renewal eligibility for a membership
// @Description Answers the minimum-remaining-duration pre-check without creating any rows.
// @Tags Memberships
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Success 200 {object} service.EligibilityView
// @Failure 404 {object} gin.H "Membership not found"
// @Router /memberships/{membershipId}/trainer-renewals/eligibility [get]
func (h *MembershipHandler) TrainerRenewalEligibility(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	view, err := h.membershipService.TrainerRenewalEligibility(c.Request.Context(), userID, membershipID)
	if err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to check eligibility")
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// RequestTrainerRenewal godoc
// @Summary Request a trainer renewal on an active membership
// @Description Checks the minimum-remaining-duration rule before creating the pending payment, addon and assignment rows.
// @Tags Memberships
// @Accept json
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Param renewal body service.TrainerRenewalInput true "Renewal details"
// @Success 201 {object} service.TrainerRenewalResult
// @Failure 404 {object} gin.H "Membership not found"
// @Failure 422 {object} gin.H "Not eligible"
// @Router /memberships/{membershipId}/trainer-renewals [post]
func (h *MembershipHandler) RequestTrainerRenewal(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	var req service.TrainerRenewalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.membershipService.RequestTrainerRenewal(c.Request.Context(), userID, membershipID, req)
	if err != nil {
		var notEligible *service.NotEligibleError
		switch {
		case errors.As(err, &notEligible):
			// The UI surfaces the constraint and reason verbatim.
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":         notEligible.Reason,
				"constraint":    string(notEligible.Constraint),
				"remainingDays": notEligible.RemainingDays,
			})
		case errors.Is(err, service.ErrMembershipNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create trainer renewal")
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetMembership godoc
// @Summary Get one membership with lifecycle details
// @Tags Memberships
// @Produce json
// @Param membershipId path string true "Membership ID"
// @Success 200 {object} service.MembershipView
// @Failure 404 {object} gin.H "Membership not found"
// @Router /memberships/{membershipId} [get]
func (h *MembershipHandler) GetMembership(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	membershipID, ok := pathObjectID(c, "membershipId")
	if !ok {
		return
	}

	role, _ := getUserRoleFromContext(c)
	view, err := h.membershipService.GetMembership(c.Request.Context(), userID, role == domain.RoleAdmin, membershipID)
	if err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load membership")
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListMyMemberships godoc
// @Summary List the caller's memberships
// @Tags Memberships
// @Produce json
// @Success 200 {array} service.MembershipView
// @Router /memberships [get]
func (h *MembershipHandler) ListMyMemberships(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	views, err := h.membershipService.ListUserMemberships(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list memberships")
		return
	}
	c.JSON(http.StatusOK, views)
}
