package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
)

type initializeCardRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url" binding:"omitempty,url"`
}

type verifyCardRequest struct {
	Reference string `json:"reference" binding:"required"`
}

func (s *Server) InitializeCardSave(c *gin.Context) {
	var req initializeCardRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	entityID, _ := entityIDFromContext(c)

	callbackURL := strings.TrimSpace(req.CallbackURL)
	if callbackURL == "" {
		callbackURL = s.cfg.Paystack.CallbackURL
	}

	resp, err := s.cardSvc.InitializeCardSave(c.Request.Context(), entityID, emailOrPrincipal(c, req.Email), callbackURL)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": resp.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyCard(c *gin.Context) {
	var req verifyCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.cardSvc.VerifyAndSave(c.Request.Context(), entityID, strings.TrimSpace(req.Reference))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": resp.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCards(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	cards, err := s.cardSvc.ListCards(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cards})
}

func (s *Server) PaymentReadiness(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	resp, err := s.cardSvc.PaymentReadiness(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetDefaultCard(c *gin.Context) {
	cardID, err := cardIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entityID, _ := entityIDFromContext(c)

	card, err := s.cardSvc.SetDefault(c.Request.Context(), entityID, cardID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": card})
}

func (s *Server) DeactivateCard(c *gin.Context) {
	cardID, err := cardIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entityID, _ := entityIDFromContext(c)

	if err := s.cardSvc.Deactivate(c.Request.Context(), entityID, cardID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func cardIDParam(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		return 0, carddomain.ErrInvalidCardID
	}
	return id, nil
}
