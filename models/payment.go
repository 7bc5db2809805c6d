package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is a single disbursement event, possibly covering several invoices.
// Sum of allocation amounts never exceeds TotalAmount; any excess over the
// selected invoices' balances stays on the payment with no invoice-side trace
// (warn-and-allow policy, surfaced as UnallocatedAmount at apply time).
type Payment struct {
	ID             uint                `json:"id" gorm:"primaryKey"`
	Date           time.Time           `json:"date" gorm:"not null;index"`
	SupplierName   string              `json:"supplier_name" gorm:"not null;index"`
	TotalAmount    decimal.Decimal     `json:"total_amount" gorm:"type:numeric(12,2)"`
	SequenceNumber int64               `json:"sequence_number" gorm:"uniqueIndex;not null"`
	Allocations    []PaymentAllocation `json:"applied_invoices" gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `json:"created_at"`
}

// PaymentAllocation records how much of a payment landed on one invoice.
type PaymentAllocation struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	PaymentID     uint            `json:"-" gorm:"index"`
	InvoiceID     uint            `json:"invoice_id" gorm:"index;not null"`
	AmountApplied decimal.Decimal `json:"amount_applied" gorm:"type:numeric(12,2)"`
}

// AllocatePayment walks the invoices oldest issue date first, applying
// min(remainingBalance, still-to-allocate) to each and stopping once the
// amount runs out. The invoices are mutated in place (balance and status);
// the returned remainder is whatever exceeded the combined balances.
//
// Every subtraction is rounded to 2 decimal places so repeated partial
// payments cannot accumulate drift.
func AllocatePayment(invoices []*Invoice, totalAmount decimal.Decimal) ([]PaymentAllocation, decimal.Decimal, error) {
	if !totalAmount.IsPositive() {
		return nil, decimal.Zero, NewValidationError("total_amount", "amount must be greater than zero")
	}
	if len(invoices) == 0 {
		return nil, decimal.Zero, NewValidationError("invoice_ids", "no invoices selected")
	}

	ordered := make([]*Invoice, len(invoices))
	copy(ordered, invoices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].IssueDate.Before(ordered[j].IssueDate)
	})

	remaining := totalAmount.Round(2)
	var allocations []PaymentAllocation
	for _, inv := range ordered {
		if remaining.Sign() <= 0 {
			break
		}
		applied := decimal.Min(inv.RemainingBalance, remaining)
		if applied.Sign() <= 0 {
			continue
		}
		inv.RemainingBalance = inv.RemainingBalance.Sub(applied).Round(2)
		inv.Status = StatusForBalance(inv.RemainingBalance, inv.TotalAmount)
		remaining = remaining.Sub(applied).Round(2)
		allocations = append(allocations, PaymentAllocation{
			InvoiceID:     inv.ID,
			AmountApplied: applied,
		})
	}
	return allocations, remaining, nil
}

// ApplyPayment loads the selected invoices, allocates the amount oldest-first,
// mints the next payment sequence number and commits invoice mutations plus
// the payment record in the caller's transaction. The returned decimal is the
// unallocated excess, zero when the payment fit the selected balances.
func ApplyPayment(tx *gorm.DB, supplier string, invoiceIDs []uint, totalAmount decimal.Decimal, date time.Time) (*Payment, decimal.Decimal, error) {
	supplier = strings.TrimSpace(supplier)
	if supplier == "" {
		return nil, decimal.Zero, NewValidationError("supplier_name", "supplier is required")
	}
	if !totalAmount.IsPositive() {
		return nil, decimal.Zero, NewValidationError("total_amount", "amount must be greater than zero")
	}
	if len(invoiceIDs) == 0 {
		return nil, decimal.Zero, NewValidationError("invoice_ids", "no invoices selected")
	}

	var loaded []Invoice
	if err := tx.Where("id IN ?", invoiceIDs).Find(&loaded).Error; err != nil {
		return nil, decimal.Zero, wrapStore("load invoices", err)
	}
	byID := make(map[uint]*Invoice, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID] = &loaded[i]
	}
	invoices := make([]*Invoice, 0, len(invoiceIDs))
	seen := make(map[uint]bool, len(invoiceIDs))
	for _, id := range invoiceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		inv, ok := byID[id]
		if !ok {
			return nil, decimal.Zero, NewNotFoundError("invoice", fmt.Sprint(id))
		}
		invoices = append(invoices, inv)
	}

	allocations, unallocated, err := AllocatePayment(invoices, totalAmount)
	if err != nil {
		return nil, decimal.Zero, err
	}

	seq, err := NextSequence(tx, PaymentSequence)
	if err != nil {
		return nil, decimal.Zero, err
	}

	for _, inv := range invoices {
		if err := tx.Model(&Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"remaining_balance": inv.RemainingBalance,
			"status":            inv.Status,
		}).Error; err != nil {
			return nil, decimal.Zero, wrapStore("update invoice balance", err)
		}
	}

	payment := Payment{
		Date:           date,
		SupplierName:   supplier,
		TotalAmount:    totalAmount.Round(2),
		SequenceNumber: seq,
		Allocations:    allocations,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, decimal.Zero, wrapStore("create payment", err)
	}
	return &payment, unallocated, nil
}

// ReversePayment restores every allocated amount back onto its invoice and
// deletes the payment record, all in the caller's transaction. Invoices that
// no longer exist are skipped.
func ReversePayment(tx *gorm.DB, paymentID uint) error {
	var payment Payment
	err := tx.Preload("Allocations").First(&payment, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError("payment", fmt.Sprint(paymentID))
	}
	if err != nil {
		return wrapStore("load payment", err)
	}

	for _, alloc := range payment.Allocations {
		var inv Invoice
		err := tx.First(&inv, "id = ?", alloc.InvoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return wrapStore("load invoice", err)
		}
		restored := inv.RemainingBalance.Add(alloc.AmountApplied).Round(2)
		if restored.GreaterThan(inv.TotalAmount) {
			restored = inv.TotalAmount
		}
		status := StatusForBalance(restored, inv.TotalAmount)
		if err := tx.Model(&Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"remaining_balance": restored,
			"status":            status,
		}).Error; err != nil {
			return wrapStore("restore invoice balance", err)
		}
	}

	if err := tx.Where("payment_id = ?", payment.ID).Delete(&PaymentAllocation{}).Error; err != nil {
		return wrapStore("delete allocations", err)
	}
	if err := tx.Delete(&payment).Error; err != nil {
		return wrapStore("delete payment", err)
	}
	return nil
}

// DeleteInvoice refuses to remove an invoice that payment history still
// references; the payment must be reversed first.
func DeleteInvoice(tx *gorm.DB, invoiceID uint) error {
	var inv Invoice
	err := tx.First(&inv, "id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError("invoice", fmt.Sprint(invoiceID))
	}
	if err != nil {
		return wrapStore("load invoice", err)
	}

	var refs int64
	if err := tx.Model(&PaymentAllocation{}).Where("invoice_id = ?", invoiceID).Count(&refs).Error; err != nil {
		return wrapStore("count allocations", err)
	}
	if refs > 0 {
		return NewConflictError("invoice has payment history; reverse the payments first")
	}
	if err := tx.Delete(&inv).Error; err != nil {
		return wrapStore("delete invoice", err)
	}
	return nil
}
