package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewInvoiceValidation(t *testing.T) {
	cases := []struct {
		name     string
		supplier string
		branch   string
		amount   string
	}{
		{"missing supplier", "", "Centro", "100"},
		{"missing branch", "Acme", "", "100"},
		{"zero amount", "Acme", "Centro", "0"},
		{"negative amount", "Acme", "Centro", "-5"},
	}
	for _, tc := range cases {
		if _, err := NewInvoice(tc.supplier, tc.branch, "", day("2024-01-01"), nil, dec(tc.amount)); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestNewInvoiceDefaults(t *testing.T) {
	inv, err := NewInvoice("Acme", "Centro", "  ", day("2024-01-01"), nil, dec("150.555"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.InvoiceNumber != PlaceholderInvoiceNumber {
		t.Fatalf("expected placeholder number, got %q", inv.InvoiceNumber)
	}
	if inv.Status != InvoiceStatusPending {
		t.Fatalf("expected pending, got %s", inv.Status)
	}
	if !inv.TotalAmount.Equal(dec("150.56")) {
		t.Fatalf("expected rounded total 150.56, got %s", inv.TotalAmount)
	}
	if !inv.RemainingBalance.Equal(inv.TotalAmount) {
		t.Fatalf("remaining balance should equal total at creation")
	}
}

func TestStatusForBalance(t *testing.T) {
	total := dec("100")
	cases := []struct {
		remaining string
		want      InvoiceStatus
	}{
		{"100", InvoiceStatusPending},
		{"99.99", InvoiceStatusPartial},
		{"0.01", InvoiceStatusPartial},
		{"0", InvoiceStatusPaid},
		{"-0.01", InvoiceStatusPaid},
	}
	for _, tc := range cases {
		if got := StatusForBalance(dec(tc.remaining), total); got != tc.want {
			t.Fatalf("remaining %s: want %s got %s", tc.remaining, tc.want, got)
		}
	}
}

func TestDaysUntilDueAndBuckets(t *testing.T) {
	today := day("2024-03-10")
	cases := []struct {
		due    string
		days   int
		bucket AgingBucket
	}{
		{"2024-03-08", -2, AgingOverdue},
		{"2024-03-10", 0, AgingDueToday},
		{"2024-03-11", 1, AgingDueSoon},
		{"2024-03-13", 3, AgingDueSoon},
		{"2024-03-14", 4, AgingCurrent},
	}
	for _, tc := range cases {
		due := day(tc.due)
		inv := Invoice{DueDate: &due}
		days, ok := inv.DaysUntilDue(today)
		if !ok {
			t.Fatalf("due %s: expected ok", tc.due)
		}
		if days != tc.days {
			t.Fatalf("due %s: want %d days got %d", tc.due, tc.days, days)
		}
		if got := AgingBucketFor(days, ok); got != tc.bucket {
			t.Fatalf("due %s: want bucket %s got %s", tc.due, tc.bucket, got)
		}
	}

	inv := Invoice{}
	if _, ok := inv.DaysUntilDue(today); ok {
		t.Fatal("invoice without due date should report ok=false")
	}
	if got := AgingBucketFor(0, false); got != AgingNoDueDate {
		t.Fatalf("want noDueDate bucket, got %s", got)
	}
}

func TestGroupOutstandingBySupplier(t *testing.T) {
	today := day("2024-03-10")
	overdue := day("2024-03-01")
	soon := day("2024-03-12")

	invoices := []Invoice{
		{ID: 1, SupplierName: "Beta", IssueDate: day("2024-02-20"), TotalAmount: dec("200"), RemainingBalance: dec("80"), Status: InvoiceStatusPartial, DueDate: &overdue},
		{ID: 2, SupplierName: "Acme", IssueDate: day("2024-01-05"), TotalAmount: dec("50"), RemainingBalance: dec("50"), Status: InvoiceStatusPending, DueDate: &soon},
		{ID: 3, SupplierName: "Acme", IssueDate: day("2024-02-01"), TotalAmount: dec("70"), RemainingBalance: dec("0"), Status: InvoiceStatusPaid},
		{ID: 4, SupplierName: "Beta", IssueDate: day("2024-01-10"), TotalAmount: dec("100"), RemainingBalance: dec("100"), Status: InvoiceStatusPending},
	}

	sum := GroupOutstandingBySupplier(invoices, today)

	// Paid invoice 3 is dropped; suppliers appear in oldest-invoice order.
	if len(sum.Suppliers) != 2 {
		t.Fatalf("expected 2 supplier groups, got %d", len(sum.Suppliers))
	}
	if sum.Suppliers[0].SupplierName != "Acme" || sum.Suppliers[1].SupplierName != "Beta" {
		t.Fatalf("unexpected group order: %s, %s", sum.Suppliers[0].SupplierName, sum.Suppliers[1].SupplierName)
	}
	if !sum.Suppliers[0].TotalBalance.Equal(dec("50")) {
		t.Fatalf("Acme balance: want 50 got %s", sum.Suppliers[0].TotalBalance)
	}
	if !sum.Suppliers[1].TotalBalance.Equal(dec("180")) {
		t.Fatalf("Beta balance: want 180 got %s", sum.Suppliers[1].TotalBalance)
	}

	// Beta's invoices sorted by issue date ascending.
	beta := sum.Suppliers[1].Invoices
	if beta[0].ID != 4 || beta[1].ID != 1 {
		t.Fatalf("Beta invoices not sorted by issue date: %d, %d", beta[0].ID, beta[1].ID)
	}

	// Stats sum remaining balances, not totals.
	if !sum.TotalOutstanding.Equal(dec("230")) {
		t.Fatalf("total outstanding: want 230 got %s", sum.TotalOutstanding)
	}
	if !sum.TotalOverdue.Equal(dec("80")) {
		t.Fatalf("total overdue: want 80 got %s", sum.TotalOverdue)
	}
	if !sum.TotalDueSoon.Equal(dec("50")) {
		t.Fatalf("total due soon: want 50 got %s", sum.TotalDueSoon)
	}

	// No-due-date invoice classified correctly.
	if beta[0].Aging != AgingNoDueDate {
		t.Fatalf("invoice 4 should be noDueDate, got %s", beta[0].Aging)
	}
}
