package library

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"library-lending/config"
)

func newManager(t *testing.T, driver string) *LibraryManager {
	dir := t.TempDir()
	cfg := config.Storage{
		Driver:     driver,
		DataDir:    filepath.Join(dir, "data"),
		SQLitePath: filepath.Join(dir, "lib.db"),
	}
	mgr, err := NewLibraryManager(context.Background(), cfg, zap.NewNop(), WithClock(fixedNow(day0)))
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestManagerCirculationOnEachDriver(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			mgr := newManager(t, driver)
			ctx := context.Background()

			if _, err := mgr.Catalog.Add(ctx, Book{ID: "B001", Title: "Dune", TotalQuantity: 1}); err != nil {
				t.Fatalf("add book: %v", err)
			}
			if _, err := mgr.Directory.Register(ctx, Member{ID: "M001", Name: "Ann", Email: "ann@example.com", Type: MemberStudent}); err != nil {
				t.Fatalf("register: %v", err)
			}
			loan, err := mgr.IssueBook(ctx, "B001", "M001")
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			if _, err := mgr.ReturnBook(ctx, loan.ID); err != nil {
				t.Fatalf("return: %v", err)
			}
			if got := testutil.ToFloat64(mgr.Catalog.opts.metrics.LoansReturned); got != 1 {
				t.Fatalf("want 1 return counted, got %v", got)
			}
			if n, err := testutil.GatherAndCount(mgr.Registry(), "library_loans_issued_total"); err != nil || n != 1 {
				t.Fatalf("issued metric: n=%d err=%v", n, err)
			}
		})
	}
}

func TestManagerReloadsState(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Storage{Driver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "lib.db")}
	ctx := context.Background()

	mgr, err := NewLibraryManager(ctx, cfg, zap.NewNop(), WithClock(fixedNow(day0)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mgr.Catalog.Add(ctx, Book{ID: "B001", Title: "Dune", TotalQuantity: 2})
	mgr.Directory.Register(ctx, Member{ID: "M001", Name: "Ann", Email: "ann@example.com", Type: MemberFaculty})
	if _, err := mgr.IssueBook(ctx, "B001", "M001"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	mgr.Close()

	mgr, err = NewLibraryManager(ctx, cfg, zap.NewNop(), WithClock(fixedNow(day0)))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer mgr.Close()
	b, err := mgr.Catalog.FindByID("B001")
	if err != nil || b.AvailableQuantity != 1 {
		t.Fatalf("book after reload: %+v %v", b, err)
	}
	m, err := mgr.Directory.FindByID("M001")
	if err != nil || m.BorrowedCount != 1 {
		t.Fatalf("member after reload: %+v %v", m, err)
	}
	if got := len(mgr.Ledger.ListIssued()); got != 1 {
		t.Fatalf("want 1 issued loan, got %d", got)
	}
	if len(mgr.Operators.List()) != 1 {
		t.Fatalf("default operator should be stored once")
	}
}

func TestOverdueReport(t *testing.T) {
	s, _ := tempFileStore(t)
	clock := newTestClock(day0)
	ctx := context.Background()
	mgr, err := NewManagerWithRepository(ctx, s, zap.NewNop(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	mgr.Catalog.Add(ctx, Book{ID: "B001", Title: "Dune", TotalQuantity: 1})
	mgr.Directory.Register(ctx, Member{ID: "M001", Name: "Ann", Email: "ann@example.com", Type: MemberStudent})
	if _, err := mgr.IssueBook(ctx, "B001", "M001"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.AddDays(20)
	lines, total := mgr.OverdueReport()
	if len(lines) != 1 {
		t.Fatalf("want 1 overdue line, got %d", len(lines))
	}
	l := lines[0]
	if l.BookTitle != "Dune" || l.MemberName != "Ann" || l.OverdueDays != 6 || l.Fine != 3000 {
		t.Fatalf("unexpected line: %+v", l)
	}
	if total != 3000 || total.String() != "30.00" {
		t.Fatalf("want total 30.00, got %s", total)
	}
}

func TestImportBooks(t *testing.T) {
	mgr := newManager(t, config.DriverFile)
	input := strings.Join([]string{
		"# id|title|author|isbn|category|total|available",
		"B001|Dune|Frank Herbert|9780441013593|Fiction|3|0",
		"B002|Emma|Jane Austen|9780141439587|Classics|1|1",
		"B001|Duplicate|Someone|1|X|1|1",
		"B003|Bad quantity|A|1|X|many|1",
		"not a book",
		"",
	}, "\n")

	res, err := mgr.ImportBooks(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Added != 2 || res.Skipped != 3 {
		t.Fatalf("want 2 added 3 skipped, got %+v", res)
	}
	b, err := mgr.Catalog.FindByID("B001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if b.AvailableQuantity != 3 {
		t.Fatalf("imported book should be fully available, got %d", b.AvailableQuantity)
	}
}

func TestPrettyHelpers(t *testing.T) {
	b := Book{ID: "B001", Title: "A Very Long Title That Will Not Fit In The Column", Author: "X", TotalQuantity: 2, AvailableQuantity: 1}
	if s := PrettyBook(b); !strings.Contains(s, "...") || !strings.Contains(s, "1/2") {
		t.Fatalf("pretty book: %q", s)
	}
	loan := Loan{ID: "TXN00001", BookID: "B001", MemberID: "M001", IssueDate: day0, DueDate: DueDateFor(day0), Status: LoanIssued}
	s := PrettyLoan(loan, day0.AddDate(0, 0, 20))
	if !strings.Contains(s, "30.00") || !strings.Contains(s, "2024-03-15") {
		t.Fatalf("pretty loan: %q", s)
	}
}

func TestOpenRepositoryRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenRepository(config.Storage{Driver: "postgres"}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestStatistics(t *testing.T) {
	s, _ := tempFileStore(t)
	clock := newTestClock(day0)
	ctx := context.Background()
	mgr, err := NewManagerWithRepository(ctx, s, zap.NewNop(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	if got := mgr.Statistics(); got != (Statistics{}) {
		t.Fatalf("want empty statistics, got %+v", got)
	}

	mgr.Catalog.Add(ctx, Book{ID: "B001", Title: "Dune", TotalQuantity: 1})
	mgr.Catalog.Add(ctx, Book{ID: "B002", Title: "Emma", TotalQuantity: 2})
	mgr.Directory.Register(ctx, Member{ID: "M001", Name: "Ann", Email: "ann@example.com", Type: MemberStudent})
	mgr.Directory.Register(ctx, Member{ID: "M002", Name: "Bo", Email: "bo@example.com", Type: MemberFaculty})
	first, err := mgr.IssueBook(ctx, "B001", "M001")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.AddDays(10)
	if _, err := mgr.IssueBook(ctx, "B002", "M002"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.IssueBook(ctx, "B002", "M001"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.ReturnBook(ctx, first.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	// day 26: both open loans (due day 24) are two days late
	clock.AddDays(16)
	want := Statistics{
		TotalBooks:       2,
		AvailableBooks:   1,
		TotalMembers:     2,
		TotalLoans:       3,
		IssuedLoans:      2,
		OverdueLoans:     2,
		OutstandingFines: 2000,
	}
	if got := mgr.Statistics(); got != want {
		t.Fatalf("statistics:\n got %+v\nwant %+v", got, want)
	}
}
