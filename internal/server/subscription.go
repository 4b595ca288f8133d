package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
)

type changePlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

type paidPlanRequest struct {
	Plan   string `json:"plan" binding:"required"`
	Email  string `json:"email"`
	CardID string `json:"card_id"`
}

type renewRequest struct {
	Email  string `json:"email"`
	CardID string `json:"card_id"`
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.ListActivePlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (s *Server) CurrentSubscription(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	resp, err := s.subscriptionSvc.Current(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ComparePlans(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	resp, err := s.subscriptionSvc.Compare(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpgradeSubscriptionWithPayment is the only HTTP path onto a new plan. Paid
// plans are charged before the change is applied.
func (s *Server) UpgradeSubscriptionWithPayment(c *gin.Context) {
	var req paidPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	cardID, err := optionalCardID(req.CardID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.subscriptionSvc.UpgradeWithPayment(c.Request.Context(), subscriptiondomain.PaidUpgradeRequest{
		EntityID: entityID,
		PlanName: strings.TrimSpace(req.Plan),
		Email:    emailOrPrincipal(c, req.Email),
		CardID:   cardID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	renderPaidResult(c, resp)
}

func (s *Server) DowngradeSubscription(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.subscriptionSvc.Downgrade(c.Request.Context(), entityID, strings.TrimSpace(req.Plan))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenewSubscription(c *gin.Context) {
	var req renewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	cardID, err := optionalCardID(req.CardID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.subscriptionSvc.Renew(c.Request.Context(), subscriptiondomain.RenewRequest{
		EntityID: entityID,
		Email:    emailOrPrincipal(c, req.Email),
		CardID:   cardID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	renderPaidResult(c, resp)
}

// renderPaidResult reports a declined charge as 400 with the gateway message
// and the attempted payment.
func renderPaidResult(c *gin.Context, resp *subscriptiondomain.PaidResult) {
	if resp == nil || !resp.Success {
		body := gin.H{"success": false}
		if resp != nil {
			body["message"] = resp.Message
			body["payment"] = resp.Payment
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func optionalCardID(raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, newValidationError("card_id", "invalid_card_id", "invalid card_id")
	}
	return &id, nil
}

func emailOrPrincipal(c *gin.Context, email string) string {
	if email = strings.TrimSpace(email); email != "" {
		return email
	}
	return principalEmail(c)
}
