package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func reconcileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&AppTransaction{}, &BankStatementSession{}, &BankTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func appTxn(id uint, kind TransactionKind, date string, amount string) *AppTransaction {
	return &AppTransaction{
		ID:     id,
		Kind:   kind,
		Date:   day(date),
		Amount: dec(amount),
	}
}

func TestAutoMatchExactness(t *testing.T) {
	now := time.Now()

	bank := []BankTransaction{{ID: "b1", Date: "2024-03-01", Amount: dec("500")}}
	pool := []*AppTransaction{appTxn(1, KindIncome, "2024-03-01", "500")}

	if got := AutoMatchStatement(bank, pool, now); got != 1 {
		t.Fatalf("expected 1 match, got %d", got)
	}
	if !bank[0].IsReconciled || bank[0].LinkedAppTxn == nil || *bank[0].LinkedAppTxn != 1 {
		t.Fatalf("bank side not linked: %+v", bank[0])
	}
	if !pool[0].IsReconciled || pool[0].ReconciledDate == nil {
		t.Fatalf("app side not flagged: %+v", pool[0])
	}

	// Same pair with a 0.01 difference must not match.
	bank = []BankTransaction{{ID: "b1", Date: "2024-03-01", Amount: dec("500.01")}}
	pool = []*AppTransaction{appTxn(1, KindIncome, "2024-03-01", "500")}
	if got := AutoMatchStatement(bank, pool, now); got != 0 {
		t.Fatalf("expected no match for 500.01 vs 500, got %d", got)
	}
}

func TestAutoMatchKindFromSign(t *testing.T) {
	now := time.Now()
	bank := []BankTransaction{
		{ID: "b1", Date: "2024-03-01", Amount: dec("-200"), Concept: "ALQUILER"},
		{ID: "b2", Date: "2024-03-01", Amount: dec("200")},
	}
	pool := []*AppTransaction{
		appTxn(1, KindExpense, "2024-03-01", "200"),
		appTxn(2, KindIncome, "2024-03-01", "200"),
	}

	if got := AutoMatchStatement(bank, pool, now); got != 2 {
		t.Fatalf("expected 2 matches, got %d", got)
	}
	if *bank[0].LinkedAppTxn != 1 || *bank[1].LinkedAppTxn != 2 {
		t.Fatalf("kinds crossed: %v %v", *bank[0].LinkedAppTxn, *bank[1].LinkedAppTxn)
	}
	if pool[0].BankConcept != "ALQUILER" {
		t.Fatalf("bank concept not stamped, got %q", pool[0].BankConcept)
	}
}

func TestAutoMatchNoDoubleMatch(t *testing.T) {
	now := time.Now()
	// Two identical bank rows, one matching app transaction.
	bank := []BankTransaction{
		{ID: "b1", Date: "2024-03-01", Amount: dec("500")},
		{ID: "b2", Date: "2024-03-01", Amount: dec("500")},
	}
	pool := []*AppTransaction{appTxn(1, KindIncome, "2024-03-01", "500")}

	if got := AutoMatchStatement(bank, pool, now); got != 1 {
		t.Fatalf("expected exactly 1 match, got %d", got)
	}
	if !bank[0].IsReconciled {
		t.Fatal("first bank row (file order) should match")
	}
	if bank[1].IsReconciled {
		t.Fatal("second bank row must remain pending")
	}
}

func TestAutoMatchSkipsDifferentDates(t *testing.T) {
	now := time.Now()
	bank := []BankTransaction{{ID: "b1", Date: "2024-03-02", Amount: dec("500")}}
	pool := []*AppTransaction{appTxn(1, KindIncome, "2024-03-01", "500")}

	if got := AutoMatchStatement(bank, pool, now); got != 0 {
		t.Fatalf("dates differ, expected no match, got %d", got)
	}
}

func TestFilterBankTransactionsByKind(t *testing.T) {
	txns := []BankTransaction{
		{ID: "b1", Amount: dec("100")},
		{ID: "b2", Amount: dec("-50")},
		{ID: "b3", Amount: dec("25")},
	}

	income := FilterBankTransactionsByKind(txns, KindIncome)
	if len(income) != 2 {
		t.Fatalf("expected 2 income rows, got %d", len(income))
	}
	expense := FilterBankTransactionsByKind(txns, KindExpense)
	if len(expense) != 1 || expense[0].ID != "b2" {
		t.Fatalf("expected only b2 as expense, got %v", expense)
	}
	all := FilterBankTransactionsByKind(txns, "")
	if len(all) != 3 {
		t.Fatalf("empty kind should pass everything through, got %d", len(all))
	}
	// Projection only: the input is untouched.
	for _, bt := range txns {
		if bt.IsReconciled {
			t.Fatal("filtering must not mutate")
		}
	}
}

func TestFormatSessionNumber(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{1, "C-001"},
		{42, "C-042"},
		{137, "C-137"},
		{1200, "C-1200"},
	}
	for _, tc := range cases {
		if got := FormatSessionNumber(tc.n); got != tc.want {
			t.Fatalf("FormatSessionNumber(%d): want %s got %s", tc.n, tc.want, got)
		}
	}
}

func TestMultiMatchDeduplicatesBankIDs(t *testing.T) {
	db := reconcileTestDB(t)
	now := day("2024-03-15")

	at := AppTransaction{Date: day("2024-03-01"), Amount: dec("170.00"), Kind: KindExpense, Category: "rent"}
	if err := db.Create(&at).Error; err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	session := BankStatementSession{
		SessionNumber: "C-001",
		FileName:      "marzo.csv",
		UploadDate:    now,
		Transactions: []BankTransaction{
			{ID: "b1", RowIndex: 1, Date: "2024-03-01", Amount: dec("-120.00"), Concept: "RECIBO 1/2"},
			{ID: "b2", RowIndex: 2, Date: "2024-03-02", Amount: dec("-50.00"), Concept: "RECIBO 2/2"},
		},
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	// b1 submitted twice must count and sum once.
	res, err := MultiMatch(db, at.ID, []string{"b1", "b1", "b2"}, now)
	if err != nil {
		t.Fatalf("MultiMatch: %v", err)
	}
	if res.Matched != 2 {
		t.Fatalf("expected 2 matched rows, got %d", res.Matched)
	}
	if !res.BankTotal.Equal(dec("170.00")) {
		t.Fatalf("expected bank total 170.00, got %s", res.BankTotal)
	}
	if !res.AppAmount.Equal(dec("170.00")) {
		t.Fatalf("expected app amount 170.00, got %s", res.AppAmount)
	}

	var linked []BankTransaction
	if err := db.Where("is_reconciled = ?", true).Find(&linked).Error; err != nil {
		t.Fatalf("load bank rows: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("expected 2 reconciled bank rows, got %d", len(linked))
	}
}

func TestIsOpenSessionConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{
			"partial index violation",
			&pgconn.PgError{Code: "23505", ConstraintName: "idx_one_open_statement_session"},
			true,
		},
		{
			"wrapped violation",
			fmt.Errorf("create session: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_one_open_statement_session"}),
			true,
		},
		{
			"other unique index",
			&pgconn.PgError{Code: "23505", ConstraintName: "idx_bank_statement_sessions_session_number"},
			false,
		},
		{
			"other pg error",
			&pgconn.PgError{Code: "40001", ConstraintName: "idx_one_open_statement_session"},
			false,
		},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		if got := isOpenSessionConflict(tc.err); got != tc.want {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
		}
	}
}
