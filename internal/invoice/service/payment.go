package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitiatePayment records a PENDING transaction and opens a hosted payment
// page for it. When the gateway cannot be reached the transaction stays
// PENDING and is settled later by the webhook.
func (s *Service) InitiatePayment(ctx context.Context, entityID snowflake.ID, id string, req invoicedomain.InitiatePaymentRequest) (*invoicedomain.PaymentSession, error) {
	invoice, err := s.load(ctx, entityID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == invoicedomain.InvoiceStatusPaid {
		return nil, invoicedomain.ErrInvoiceAlreadyPaid
	}

	amount := invoice.Total
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() {
		return nil, invoicedomain.ErrInvalidPaymentAmount
	}
	if amount.GreaterThan(invoice.Total) {
		return nil, &invoicedomain.AmountExceedsTotalError{Amount: amount, Total: invoice.Total}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		customer, err := s.customers.GetByIDTx(ctx, s.db, entityID, invoice.CustomerID)
		if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
			return nil, err
		}
		if customer != nil {
			email = customer.Email
		}
	}
	if email == "" {
		return nil, invoicedomain.ErrCustomerEmailRequired
	}

	subaccount := ""
	account, err := s.bankAccounts.Active(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		subaccount = account.SubaccountCode
	} else {
		s.log.Warn("no settlement account; payment settles to the platform account",
			zap.String("entity_id", entityID.String()),
			zap.String("invoice_id", invoice.ID.String()),
		)
	}

	now := s.clock.Now()
	reference := paymentdomain.UniqueReference(paymentdomain.PrefixInvoice, now)
	metadata := paymentdomain.NewInvoicePayment(paymentdomain.InvoicePayment{
		EntityID:      entityID.String(),
		InvoiceID:     invoice.ID.String(),
		CustomerEmail: email,
	})

	customerID := invoice.CustomerID
	txn, err := s.ledger.CreatePending(ctx, nil, paymentdomain.CreatePendingRequest{
		EntityID:    entityID,
		CustomerID:  &customerID,
		InvoiceID:   &invoice.ID,
		Amount:      amount,
		Currency:    invoice.Currency,
		Reference:   reference,
		Description: "Payment for invoice " + invoice.InvoiceNumber,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}
	metadata.Invoice.TransactionID = txn.ID.String()

	session := &invoicedomain.PaymentSession{
		Reference: reference,
		Amount:    amount,
		Currency:  invoice.Currency,
	}

	res, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountKobo:  paymentdomain.KoboFromAmount(amount),
		Currency:    invoice.Currency,
		CallbackURL: s.callbackURL,
		Reference:   reference,
		Subaccount:  subaccount,
		Metadata:    metadata.Map(),
	})
	if err != nil {
		if errors.Is(err, paystack.ErrUpstreamUnavailable) {
			s.log.Warn("payment initialization outcome unknown; transaction left pending",
				zap.String("reference", reference),
				zap.Error(err),
			)
			return nil, err
		}
		s.markFailed(ctx, txn.ID, reference, err.Error())
		return nil, err
	}
	if !res.Success {
		s.markFailed(ctx, txn.ID, reference, res.Message)
		session.Message = res.Message
		return session, nil
	}

	if err := s.repo.UpdatePaymentLink(ctx, s.db, invoice.ID, res.PaymentURL, now); err != nil {
		return nil, err
	}

	s.log.Info("invoice payment initialized",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
	)
	session.Success = true
	session.PaymentURL = res.PaymentURL
	session.AccessCode = res.AccessCode
	return session, nil
}

// ApplyPayment marks the transaction SUCCESS and sets the invoice status from
// its amount: at least the total is paid, anything less is partially-paid.
func (s *Service) ApplyPayment(ctx context.Context, reference string) (*invoicedomain.PaymentApplication, error) {
	var result *invoicedomain.PaymentApplication
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.ledger.LockByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if txn.Purpose != paymentdomain.PurposeInvoicePayment || txn.InvoiceID == nil {
			return invoicedomain.ErrNotInvoicePayment
		}

		invoice, err := s.repo.LockByID(ctx, tx, *txn.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		result = &invoicedomain.PaymentApplication{
			InvoiceID: invoice.ID,
			Status:    invoice.Status,
			Amount:    txn.Amount,
		}
		if txn.Status != paymentdomain.StatusPending {
			s.log.Info("invoice payment already settled",
				zap.String("reference", txn.Reference),
				zap.String("status", string(txn.Status)),
			)
			return nil
		}

		ok, err := s.ledger.MarkSuccess(ctx, tx, txn.ID)
		if err != nil || !ok {
			return err
		}

		now := s.clock.Now()
		status := invoicedomain.InvoiceStatusPartiallyPaid
		paidAt := &now
		switch cmp := txn.Amount.Cmp(invoice.Total); {
		case cmp > 0:
			s.log.Warn("invoice overpaid",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("amount", txn.Amount.StringFixed(2)),
				zap.String("total", invoice.Total.StringFixed(2)),
			)
			status = invoicedomain.InvoiceStatusPaid
		case cmp == 0:
			status = invoicedomain.InvoiceStatusPaid
		default:
			paidAt = nil
		}

		if err := s.repo.UpdateStatus(ctx, tx, invoice.ID, status, paidAt, now); err != nil {
			return err
		}
		result.Applied = true
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.log.Info("invoice payment applied",
			zap.String("invoice_id", result.InvoiceID.String()),
			zap.String("reference", reference),
			zap.String("status", string(result.Status)),
		)
	}
	return result, nil
}

func (s *Service) markFailed(ctx context.Context, id snowflake.ID, reference, reason string) {
	if _, err := s.ledger.MarkFailed(ctx, nil, id, reason); err != nil {
		s.log.Error("failed to mark transaction failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
}
