package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.invoiceSvc.Create(c.Request.Context(), entityID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.invoiceSvc.List(c.Request.Context(), entityID, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), entityID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	entityID, _ := entityIDFromContext(c)

	doc, filename, err := s.invoiceSvc.RenderPDF(c.Request.Context(), entityID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) InvoicePaymentQR(c *gin.Context) {
	var query struct {
		Size int `form:"size" binding:"omitempty,gte=64,lte=1024"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	entityID, _ := entityIDFromContext(c)

	png, err := s.invoiceSvc.PaymentQR(c.Request.Context(), entityID, strings.TrimSpace(c.Param("id")), query.Size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) ShareInvoiceViaWhatsApp(c *gin.Context) {
	var req invoicedomain.ShareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.invoiceSvc.ShareViaWhatsApp(c.Request.Context(), entityID, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) InitiateInvoicePayment(c *gin.Context) {
	var req invoicedomain.InitiatePaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	entityID, _ := entityIDFromContext(c)

	resp, err := s.invoiceSvc.InitiatePayment(c.Request.Context(), entityID, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": resp.Message, "payment": resp})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
