package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/pdf"
	"github.com/smallbiznis/invoicepadi/internal/providers/qrcode"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	"go.uber.org/zap"
)

const (
	messageShared        = "Invoice shared via WhatsApp"
	messageShareFallback = "WhatsApp delivery failed; share the link manually"
)

// ShareViaWhatsApp sends the invoice summary, or the PDF when a public URL
// is given. Delivery failures return a wa.me link instead of an error.
func (s *Service) ShareViaWhatsApp(ctx context.Context, entityID snowflake.ID, id string, req invoicedomain.ShareRequest) (*invoicedomain.ShareResult, error) {
	invoice, err := s.load(ctx, entityID, id)
	if err != nil {
		return nil, err
	}
	entity, customer, err := s.parties(ctx, entityID, invoice)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" && customer != nil {
		phone = customer.Phone
	}
	if phone == "" {
		return nil, invoicedomain.ErrPhoneRequired
	}
	phone = whatsapp.NormalizePhone(phone)

	text := whatsapp.FormatInvoiceMessage(invoiceMessage(entity, invoice))
	result := &invoicedomain.ShareResult{Phone: phone}

	var sent *whatsapp.SendResult
	if req.PDFURL != "" {
		sent, err = s.whatsapp.SendMedia(ctx, phone, whatsapp.MediaDocument, whatsapp.Media{
			URL:     req.PDFURL,
			Caption: text,
		})
	} else {
		sent, err = s.whatsapp.SendText(ctx, phone, text)
	}
	if err != nil || !sent.Success {
		fields := []zap.Field{
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("phone", phone),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.String("message", sent.Message))
		}
		s.log.Warn("whatsapp delivery failed", fields...)

		result.Message = messageShareFallback
		result.WhatsAppLink = whatsapp.ShareLink(text)
		return result, nil
	}

	now := s.clock.Now()
	if err := s.repo.MarkShared(ctx, s.db, invoice.ID, sent.MessageID, now); err != nil {
		return nil, err
	}
	if err := s.repo.MarkSent(ctx, s.db, invoice.ID, now); err != nil {
		return nil, err
	}

	result.Success = true
	result.Message = messageShared
	result.MessageID = sent.MessageID
	return result, nil
}

func (s *Service) RenderPDF(ctx context.Context, entityID snowflake.ID, id string) ([]byte, string, error) {
	invoice, err := s.load(ctx, entityID, id)
	if err != nil {
		return nil, "", err
	}
	entity, customer, err := s.parties(ctx, entityID, invoice)
	if err != nil {
		return nil, "", err
	}

	doc := pdf.InvoiceDocument{
		BusinessName:    entity.Name,
		BusinessEmail:   entity.Email,
		BusinessAddress: entity.Address,
		InvoiceNumber:   invoice.InvoiceNumber,
		Status:          string(invoice.Status),
		Currency:        invoice.Currency,
		IssueDate:       invoice.IssueDate,
		DueDate:         invoice.DueDate,
		Subtotal:        invoice.Subtotal,
		TaxRate:         invoice.TaxRate,
		Tax:             invoice.Tax,
		Total:           invoice.Total,
		Notes:           invoice.Notes,
		Terms:           invoice.Terms,
		PaymentLink:     invoice.PaymentLink,
	}
	if entity.Phone != nil {
		doc.BusinessPhone = *entity.Phone
	}
	if customer != nil {
		doc.CustomerName = customer.Name
		doc.CustomerCompany = customer.CompanyName
		doc.CustomerEmail = customer.Email
		doc.CustomerPhone = customer.Phone
		doc.CustomerAddress = customer.Address
	}
	for _, item := range invoice.Items {
		doc.Items = append(doc.Items, pdf.LineItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	out, err := s.pdf.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return out, slug.Make(entity.Name) + "-" + invoiceFilename(invoice), nil
}

func (s *Service) PaymentQR(ctx context.Context, entityID snowflake.ID, id string, size int) ([]byte, error) {
	invoice, err := s.load(ctx, entityID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == invoicedomain.InvoiceStatusPaid {
		return nil, invoicedomain.ErrInvoiceAlreadyPaid
	}
	if strings.TrimSpace(invoice.PaymentLink) == "" {
		return nil, invoicedomain.ErrPaymentLinkMissing
	}
	return qrcode.PNG(invoice.PaymentLink, size)
}

func (s *Service) parties(ctx context.Context, entityID snowflake.ID, invoice *invoicedomain.Invoice) (*entitydomain.Entity, *customerdomain.Customer, error) {
	entity, err := s.entityRepo.FindByID(ctx, s.db, entityID)
	if err != nil {
		return nil, nil, err
	}
	if entity == nil {
		return nil, nil, entitydomain.ErrEntityNotFound
	}

	customer, err := s.customers.GetByIDTx(ctx, s.db, entityID, invoice.CustomerID)
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return nil, nil, err
	}
	return entity, customer, nil
}

func invoiceMessage(entity *entitydomain.Entity, invoice *invoicedomain.Invoice) whatsapp.InvoiceMessage {
	msg := whatsapp.InvoiceMessage{
		BusinessName:  entity.Name,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.IssueDate,
		DueDate:       invoice.DueDate,
		Currency:      invoice.Currency,
		Subtotal:      invoice.Subtotal,
		TaxRate:       invoice.TaxRate,
		Tax:           invoice.Tax,
		Total:         invoice.Total,
		PaymentLink:   invoice.PaymentLink,
	}
	for _, item := range invoice.Items {
		description := item.Name
		if item.Description != "" {
			description += " (" + item.Description + ")"
		}
		msg.Items = append(msg.Items, whatsapp.InvoiceLine{
			Description: description,
			Quantity:    decimal.NewFromInt(item.Quantity),
			UnitPrice:   item.UnitPrice,
		})
	}
	return msg
}
