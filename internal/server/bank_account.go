package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
)

func (s *Server) AddBankAccount(c *gin.Context) {
	var req bankaccountdomain.AddBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.bankAccountSvc.Add(c.Request.Context(), entityID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBankAccounts(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	accounts, err := s.bankAccountSvc.List(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": accounts})
}
