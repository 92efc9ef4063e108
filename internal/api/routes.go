package api

import (
	"net/http"

	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	membershipService service.MembershipService,
	approvalService service.ApprovalService,
) {

	authHandler := NewAuthHandler(authService)
	membershipHandler := NewMembershipHandler(membershipService)
	adminHandler := NewAdminHandler(membershipService, approvalService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.Use(MetricsMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// The plan catalog is public.
		apiV1.GET("/plans", membershipHandler.ListPlans)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Membership Routes (members operate on their own rows) ---
		membershipGroup := protected.Group("/memberships")
		{
			membershipGroup.POST("", RoleMiddleware(domain.RoleMember), membershipHandler.Purchase)
			membershipGroup.GET("", membershipHandler.ListMyMemberships)
			membershipGroup.GET("/:membershipId", membershipHandler.GetMembership)
			membershipGroup.POST("/:membershipId/payments", RoleMiddleware(domain.RoleMember), membershipHandler.SubmitPayment)
			membershipGroup.GET("/:membershipId/trainer-renewals/eligibility", RoleMiddleware(domain.RoleMember), membershipHandler.TrainerRenewalEligibility)
			membershipGroup.POST("/:membershipId/trainer-renewals", RoleMiddleware(domain.RoleMember), membershipHandler.RequestTrainerRenewal)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/memberships", adminHandler.ListByStatus)
			adminGroup.POST("/memberships/:membershipId/approve", adminHandler.Approve)
			adminGroup.POST("/memberships/:membershipId/reject", adminHandler.Reject)
			adminGroup.DELETE("/memberships/:membershipId", adminHandler.Delete)
			adminGroup.GET("/payments/:paymentId/proof", adminHandler.ProofDownloadURL)
			adminGroup.POST("/sweep", adminHandler.RunSweep)
		}
	}
}
