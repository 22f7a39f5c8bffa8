package library

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"library-lending/config"
)

// LibraryManager wires the stores to one repository, keeping CLI code simple.
type LibraryManager struct {
	Catalog   *Catalog
	Directory *Directory
	Ledger    *Ledger
	Operators *Operators

	repo     Repository
	registry *prometheus.Registry
	log      *zap.Logger
}

// OpenRepository opens the store selected by the storage driver.
func OpenRepository(cfg config.Storage, log *zap.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath, log)
	case config.DriverFile, "":
		return NewFileStore(cfg.DataDir, log)
	}
	return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}

// NewLibraryManager opens the configured repository and loads every collection.
func NewLibraryManager(ctx context.Context, cfg config.Storage, log *zap.Logger, opts ...Option) (*LibraryManager, error) {
	repo, err := OpenRepository(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "open repository")
	}
	lm, err := NewManagerWithRepository(ctx, repo, log, opts...)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return lm, nil
}

// NewManagerWithRepository loads every collection from repo. The manager takes
// ownership of repo and closes it in Close.
func NewManagerWithRepository(ctx context.Context, repo Repository, log *zap.Logger, opts ...Option) (*LibraryManager, error) {
	lm := &LibraryManager{
		repo:     repo,
		registry: prometheus.NewRegistry(),
		log:      log,
	}
	opts = append([]Option{WithMetrics(NewMetrics(lm.registry))}, opts...)

	// Books, members and operators are independent; loans need the first two.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lm.Catalog, err = NewCatalog(gctx, repo, log, opts...)
		return err
	})
	g.Go(func() (err error) {
		lm.Directory, err = NewDirectory(gctx, repo, log, opts...)
		return err
	})
	g.Go(func() (err error) {
		lm.Operators, err = NewOperators(gctx, repo, log, opts...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ledger, err := NewLedger(ctx, repo, lm.Catalog, lm.Directory, log, opts...)
	if err != nil {
		return nil, err
	}
	lm.Ledger = ledger
	log.Debug("library loaded",
		zap.Int("books", len(lm.Catalog.List())),
		zap.Int("members", len(lm.Directory.List())),
		zap.Int("loans", len(lm.Ledger.List())))
	return lm, nil
}

// Close closes the underlying repository.
func (lm *LibraryManager) Close() error { return lm.repo.Close() }

// Registry holds the lending metrics of this manager.
func (lm *LibraryManager) Registry() *prometheus.Registry { return lm.registry }

// ------------------ Circulation ------------------

func (lm *LibraryManager) IssueBook(ctx context.Context, bookID, memberID string) (Loan, error) {
	return lm.Ledger.Issue(ctx, bookID, memberID)
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, loanID string) (Loan, error) {
	return lm.Ledger.Return(ctx, loanID)
}

// OverdueLine is one row of the overdue report.
type OverdueLine struct {
	Loan        Loan   `json:"loan"`
	BookTitle   string `json:"book_title"`
	MemberName  string `json:"member_name"`
	OverdueDays int    `json:"overdue_days"`
	Fine        Money  `json:"fine"`
}

// OverdueReport lists overdue loans with their live fines and the total.
func (lm *LibraryManager) OverdueReport() ([]OverdueLine, Money) {
	today := lm.Ledger.Today()
	var (
		lines []OverdueLine
		total Money
	)
	for _, ln := range lm.Ledger.ListOverdue() {
		line := OverdueLine{
			Loan:        ln,
			OverdueDays: ln.OverdueDays(today),
			Fine:        ln.Fine(today),
		}
		if b, err := lm.Catalog.FindByID(ln.BookID); err == nil {
			line.BookTitle = b.Title
		}
		if m, err := lm.Directory.FindByID(ln.MemberID); err == nil {
			line.MemberName = m.Name
		}
		total += line.Fine
		lines = append(lines, line)
	}
	return lines, total
}

// Statistics summarises the library's current state.
type Statistics struct {
	TotalBooks       int   `json:"total_books"`
	AvailableBooks   int   `json:"available_books"`
	TotalMembers     int   `json:"total_members"`
	TotalLoans       int   `json:"total_loans"`
	IssuedLoans      int   `json:"issued_loans"`
	OverdueLoans     int   `json:"overdue_loans"`
	OutstandingFines Money `json:"outstanding_fines"`
}

// Statistics counts titles, members and loans. Each figure is read from its
// own collection snapshot.
func (lm *LibraryManager) Statistics() Statistics {
	return Statistics{
		TotalBooks:       len(lm.Catalog.List()),
		AvailableBooks:   len(lm.Catalog.ListAvailable()),
		TotalMembers:     len(lm.Directory.List()),
		TotalLoans:       len(lm.Ledger.List()),
		IssuedLoans:      len(lm.Ledger.ListIssued()),
		OverdueLoans:     len(lm.Ledger.ListOverdue()),
		OutstandingFines: lm.Ledger.TotalOutstandingFines(),
	}
}

// ------------------ Import ------------------

// ImportResult counts the outcome of ImportBooks.
type ImportResult struct {
	Added   int
	Skipped int
}

// ImportBooks reads book lines in the books.txt format and adds each one.
// Available quantity in the input is ignored; new books start fully
// available. Bad lines and duplicates are skipped and logged.
func (lm *LibraryManager) ImportBooks(ctx context.Context, r io.Reader) (ImportResult, error) {
	log := lm.log.Named("import")
	var res ImportResult
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b, err := DecodeBook(line)
		if err != nil {
			log.Warn("skip line", zap.Int("line", n), zap.Error(err))
			res.Skipped++
			continue
		}
		if _, err := lm.Catalog.Add(ctx, b); err != nil {
			log.Warn("skip book", zap.Int("line", n), zap.String("id", b.ID), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Added++
	}
	if err := sc.Err(); err != nil {
		return res, errors.Wrap(err, "read import")
	}
	return res, nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-8s %-30s %-22s %-14s %-12s %3d/%-3d",
		b.ID, truncate(b.Title, 30), truncate(b.Author, 22), b.ISBN, truncate(b.Category, 12),
		b.AvailableQuantity, b.TotalQuantity)
}

// PrettyMember formats a member for lists.
func PrettyMember(m Member) string {
	return fmt.Sprintf("%-8s %-24s %-28s %-12s %-8s %d/%d",
		m.ID, truncate(m.Name, 24), truncate(m.Email, 28), m.Phone, m.Type,
		m.BorrowedCount, m.MaxAllowed)
}

// PrettyLoan formats a loan for lists, with the fine as of today.
func PrettyLoan(l Loan, today time.Time) string {
	returned := "-"
	if l.ReturnDate != nil {
		returned = formatDate(*l.ReturnDate)
	}
	return fmt.Sprintf("%-9s %-8s %-8s %s %s %-10s %-8s %8s",
		l.ID, l.BookID, l.MemberID, formatDate(l.IssueDate), formatDate(l.DueDate),
		returned, l.Status, l.Fine(today))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
