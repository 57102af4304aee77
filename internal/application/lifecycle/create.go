package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// LineItemInput is one priced position of a create request
type LineItemInput struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// CreateDocumentCommand creates an offer, order or invoice in its initial status.
// Deliveries only come into existence by converting an order.
type CreateDocumentCommand struct {
	Kind       document.Kind   `json:"-"`
	CompanyID  uuid.UUID       `json:"company_id" validate:"required"`
	CustomerID uuid.UUID       `json:"customer_id" validate:"required"`
	Currency   string          `json:"currency" validate:"required,currency"`
	Items      []LineItemInput `json:"items" validate:"required,min=1,max=200,dive"`
	Note       string          `json:"note,omitempty" validate:"max=1000"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	IssueDate  *time.Time      `json:"issue_date,omitempty"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

var commandValidator = newCommandValidator()

func newCommandValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, err := currency.ParseISO(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the command's structural constraints.
// Monetary rules (positive quantity and price, tax rate bounds) are enforced by the domain.
func (c CreateDocumentCommand) Validate() error {
	err := commandValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return shared.NewValidationError(fieldPath(fe), validationMessage(fe))
	}
	return shared.NewValidationError("", err.Error())
}

func fieldPath(fe validator.FieldError) string {
	// Namespace is "CreateDocumentCommand.items[0].quantity"
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "currency":
		return "Must be an ISO 4217 currency code"
	case "min":
		return "Must contain at least " + fe.Param() + " entries"
	case "max":
		return "Must not exceed " + fe.Param()
	}
	return "Invalid value"
}

// Create validates cmd, assigns the next number of its kind and persists the new document
func (e *Engine) Create(ctx context.Context, cmd CreateDocumentCommand) (document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, string(cmd.Kind)))
	defer span.End()

	doc, err := e.create(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	logger.For(ctx, e.logger).Info("Document created",
		append(logger.Document(string(doc.Kind()), doc.GetID()),
			zap.String("number", doc.Head().Number),
			zap.String("total", doc.Head().Totals.Total.StringFixed(document.MoneyScale)),
		)...,
	)
	return doc, nil
}

func (e *Engine) create(ctx context.Context, cmd CreateDocumentCommand) (document.Document, error) {
	switch cmd.Kind {
	case document.KindOffer, document.KindOrder, document.KindInvoice:
	case document.KindDelivery:
		return nil, shared.NewValidationError("kind", "Deliveries are created by converting an order")
	default:
		return nil, shared.NewValidationError("kind", "Unknown document kind: "+string(cmd.Kind))
	}
	cmd.Currency = strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.Kind == document.KindInvoice {
		if cmd.DueDate == nil {
			return nil, shared.NewValidationError("due_date", "Due date is required to create an invoice")
		}
		if cmd.IssueDate != nil && cmd.DueDate.Before(*cmd.IssueDate) {
			return nil, shared.NewValidationError("due_date", "Due date cannot be before issue date")
		}
	}

	items := make([]document.LineItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		item, err := document.NewLineItem(in.ProductID, in.Description, in.Quantity, in.UnitPrice, in.TaxRate)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	number, err := e.numbering.Next(ctx, cmd.Kind)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var doc document.Document
	switch cmd.Kind {
	case document.KindOffer:
		doc, err = document.NewOffer(number, cmd.CompanyID, cmd.CustomerID, cmd.Currency, items, cmd.ValidUntil, now)
	case document.KindOrder:
		doc, err = document.NewOrder(number, cmd.CompanyID, cmd.CustomerID, cmd.Currency, items, now)
	case document.KindInvoice:
		doc, err = document.NewInvoice(number, cmd.CompanyID, cmd.CustomerID, cmd.Currency, items, cmd.IssueDate, *cmd.DueDate, now)
	}
	if err != nil {
		return nil, err
	}
	doc.Head().Note = cmd.Note

	if err := e.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	e.afterWrite(ctx, doc)
	return doc, nil
}
