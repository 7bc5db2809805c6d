package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// PlaceholderInvoiceNumber is used when the supplier document carries no number.
const PlaceholderInvoiceNumber = "S/N"

// Invoice is an accounts-payable document. RemainingBalance is mutated only by
// payment application and reversal; 0 <= RemainingBalance <= TotalAmount holds
// after every mutation.
type Invoice struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	IssueDate        time.Time       `json:"issue_date" gorm:"not null;index"`
	SupplierName     string          `json:"supplier_name" gorm:"not null;index"`
	Branch           string          `json:"branch" gorm:"not null"`
	InvoiceNumber    string          `json:"invoice_number" gorm:"not null"`
	DueDate          *time.Time      `json:"due_date"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" gorm:"type:numeric(12,2)"`
	Status           InvoiceStatus   `json:"status" gorm:"type:varchar(10);not null;index"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewInvoice builds a pending invoice with its full balance outstanding.
func NewInvoice(supplier, branch, invoiceNumber string, issueDate time.Time, dueDate *time.Time, totalAmount decimal.Decimal) (*Invoice, error) {
	supplier = strings.TrimSpace(supplier)
	branch = strings.TrimSpace(branch)
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if supplier == "" {
		return nil, NewValidationError("supplier_name", "supplier is required")
	}
	if branch == "" {
		return nil, NewValidationError("branch", "branch is required")
	}
	if !totalAmount.IsPositive() {
		return nil, NewValidationError("total_amount", "amount must be greater than zero")
	}
	if invoiceNumber == "" {
		invoiceNumber = PlaceholderInvoiceNumber
	}
	total := totalAmount.Round(2)
	return &Invoice{
		IssueDate:        issueDate,
		SupplierName:     supplier,
		Branch:           branch,
		InvoiceNumber:    invoiceNumber,
		DueDate:          dueDate,
		TotalAmount:      total,
		RemainingBalance: total,
		Status:           InvoiceStatusPending,
	}, nil
}

// StatusForBalance derives the invoice status purely from the balance:
// paid iff nothing remains, partial iff something but not everything remains.
func StatusForBalance(remaining, total decimal.Decimal) InvoiceStatus {
	switch {
	case remaining.Sign() <= 0:
		return InvoiceStatusPaid
	case remaining.LessThan(total):
		return InvoiceStatusPartial
	default:
		return InvoiceStatusPending
	}
}

type AgingBucket string

const (
	AgingOverdue   AgingBucket = "overdue"
	AgingDueToday  AgingBucket = "dueToday"
	AgingDueSoon   AgingBucket = "dueSoon"
	AgingCurrent   AgingBucket = "current"
	AgingNoDueDate AgingBucket = "noDueDate"
)

// DaysUntilDue returns ceil((dueDate-today)/24h). ok is false when the invoice
// has no due date.
func (inv *Invoice) DaysUntilDue(today time.Time) (days int, ok bool) {
	if inv.DueDate == nil {
		return 0, false
	}
	diff := dayOf(*inv.DueDate).Sub(dayOf(today))
	days = int(diff / (24 * time.Hour))
	if diff > 0 && diff%(24*time.Hour) != 0 {
		days++
	}
	return days, true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AgingBucketFor classifies a days-until-due figure.
func AgingBucketFor(days int, hasDueDate bool) AgingBucket {
	switch {
	case !hasDueDate:
		return AgingNoDueDate
	case days < 0:
		return AgingOverdue
	case days == 0:
		return AgingDueToday
	case days <= 3:
		return AgingDueSoon
	default:
		return AgingCurrent
	}
}

// OutstandingInvoice decorates an unpaid invoice with its aging classification.
type OutstandingInvoice struct {
	Invoice
	DaysUntilDue *int        `json:"days_until_due"`
	Aging        AgingBucket `json:"aging"`
}

// SupplierOutstanding groups a supplier's unpaid invoices, oldest first.
type SupplierOutstanding struct {
	SupplierName string               `json:"supplier_name"`
	TotalBalance decimal.Decimal      `json:"total_balance"`
	Invoices     []OutstandingInvoice `json:"invoices"`
}

// OutstandingSummary aggregates every open balance. All totals sum remaining
// balances, never original totals.
type OutstandingSummary struct {
	Suppliers        []SupplierOutstanding `json:"suppliers"`
	TotalOutstanding decimal.Decimal       `json:"total_outstanding"`
	TotalOverdue     decimal.Decimal       `json:"total_overdue"`
	TotalDueSoon     decimal.Decimal       `json:"total_due_soon"`
}

// GroupOutstandingBySupplier drops paid invoices, orders the rest by issue date
// ascending and groups them by supplier in first-seen order. TotalDueSoon
// covers balances due today through three days out.
func GroupOutstandingBySupplier(invoices []Invoice, today time.Time) OutstandingSummary {
	open := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != InvoiceStatusPaid {
			open = append(open, inv)
		}
	}
	sortInvoicesByIssueDate(open)

	summary := OutstandingSummary{
		TotalOutstanding: decimal.Zero,
		TotalOverdue:     decimal.Zero,
		TotalDueSoon:     decimal.Zero,
	}
	index := map[string]int{}
	for _, inv := range open {
		days, ok := inv.DaysUntilDue(today)
		bucket := AgingBucketFor(days, ok)

		out := OutstandingInvoice{Invoice: inv, Aging: bucket}
		if ok {
			d := days
			out.DaysUntilDue = &d
		}

		pos, seen := index[inv.SupplierName]
		if !seen {
			pos = len(summary.Suppliers)
			index[inv.SupplierName] = pos
			summary.Suppliers = append(summary.Suppliers, SupplierOutstanding{
				SupplierName: inv.SupplierName,
				TotalBalance: decimal.Zero,
			})
		}
		grp := &summary.Suppliers[pos]
		grp.Invoices = append(grp.Invoices, out)
		grp.TotalBalance = grp.TotalBalance.Add(inv.RemainingBalance)

		summary.TotalOutstanding = summary.TotalOutstanding.Add(inv.RemainingBalance)
		switch bucket {
		case AgingOverdue:
			summary.TotalOverdue = summary.TotalOverdue.Add(inv.RemainingBalance)
		case AgingDueToday, AgingDueSoon:
			summary.TotalDueSoon = summary.TotalDueSoon.Add(inv.RemainingBalance)
		}
	}
	return summary
}

func sortInvoicesByIssueDate(invoices []Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].IssueDate.Before(invoices[j].IssueDate)
	})
}
