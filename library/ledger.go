package library

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const loanIDFormat = "TXN%05d"

// Ledger owns loan records. It is the only component that crosses entity
// boundaries: it refers to books and members by identifier and changes their
// counters through Catalog.AdjustAvailability and Directory.AdjustBorrowedCount.
//
// Issue and Return hold the book's lock, then the member's lock, then the
// ledger lock for the whole three-way update. Nothing else takes two of these,
// so the fixed order rules out deadlock.
type Ledger struct {
	mu    sync.RWMutex
	loans []Loan
	index map[string]int
	next  int

	catalog   *Catalog
	directory *Directory

	saveMu sync.Mutex
	repo   Repository
	log    *zap.Logger
	opts   options
}

// NewLedger loads the persisted loans and seeds the identifier sequence from
// their count.
func NewLedger(ctx context.Context, repo Repository, catalog *Catalog, directory *Directory, log *zap.Logger, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		index:     make(map[string]int),
		catalog:   catalog,
		directory: directory,
		repo:      repo,
		log:       log.Named("ledger"),
		opts:      buildOptions(opts),
	}
	loans, err := repo.LoadLoans(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load loans")
	}
	for _, ln := range loans {
		key := normID(ln.ID)
		if _, dup := l.index[key]; dup {
			l.log.Warn("skip duplicate loan", zap.String("id", ln.ID))
			continue
		}
		l.index[key] = len(l.loans)
		l.loans = append(l.loans, ln)
	}
	l.next = len(l.loans) + 1
	return l, nil
}

// today is the current calendar date.
func (l *Ledger) today() time.Time { return Day(l.opts.now()) }

// nextID allocates the next loan identifier. Callers hold l.mu.
// The sequence starts from the loaded count; ids already taken (a store with
// gaps) are skipped so the sequence never reuses one.
func (l *Ledger) nextID() string {
	for {
		id := fmt.Sprintf(loanIDFormat, l.next)
		l.next++
		if _, taken := l.index[normID(id)]; !taken {
			return id
		}
	}
}

// Issue lends one copy of a book to a member. Preconditions are checked in
// order and the first failure returns without side effects:
// book exists, book has a copy available, member exists, member is below the limit.
func (l *Ledger) Issue(ctx context.Context, bookID, memberID string) (Loan, error) {
	book, releaseBook, err := l.catalog.Lock(bookID)
	defer releaseBook()
	if err != nil {
		l.opts.metrics.rejected("book_not_found")
		return Loan{}, err
	}
	if !book.IsAvailable() {
		l.opts.metrics.rejected("unavailable")
		return Loan{}, errors.Wrapf(ErrUnavailable, "book %s", book.ID)
	}
	member, releaseMember, err := l.directory.Lock(memberID)
	defer releaseMember()
	if err != nil {
		l.opts.metrics.rejected("member_not_found")
		return Loan{}, err
	}
	if !member.CanBorrow() {
		l.opts.metrics.rejected("limit_reached")
		return Loan{}, errors.Wrapf(ErrLimitReached, "member %s has %d of %d books",
			member.ID, member.BorrowedCount, member.MaxAllowed)
	}

	l.mu.Lock()
	issued := l.today()
	loan := Loan{
		ID:         l.nextID(),
		BookID:     book.ID,
		MemberID:   member.ID,
		IssueDate:  issued,
		DueDate:    DueDateFor(issued),
		FineAmount: 0,
		Status:     LoanIssued,
	}
	// Both records are held and were checked above, so neither adjustment can
	// miss or clamp.
	if err := l.catalog.AdjustAvailability(ctx, book.ID, -1); err != nil {
		l.mu.Unlock()
		return Loan{}, err
	}
	if err := l.directory.AdjustBorrowedCount(ctx, member.ID, +1); err != nil {
		_ = l.catalog.AdjustAvailability(ctx, book.ID, +1)
		l.mu.Unlock()
		return Loan{}, err
	}
	l.index[normID(loan.ID)] = len(l.loans)
	l.loans = append(l.loans, loan)
	l.mu.Unlock()

	l.persist(ctx)
	l.opts.metrics.issued()
	l.log.Info("loan issued",
		zap.String("loan", loan.ID), zap.String("book", loan.BookID),
		zap.String("member", loan.MemberID), zap.String("due", formatDate(loan.DueDate)))
	return loan, nil
}

// Return closes an issued loan. The fine is computed for today and frozen on
// the record; the book's copy and the member's slot are given back.
func (l *Ledger) Return(ctx context.Context, loanID string) (Loan, error) {
	current, err := l.FindByID(loanID)
	if err != nil {
		return Loan{}, err
	}
	if current.IsReturned() {
		return Loan{}, errors.Wrapf(ErrAlreadyReturned, "loan %s", current.ID)
	}

	_, releaseBook, bookErr := l.catalog.Lock(current.BookID)
	defer releaseBook()
	_, releaseMember, memberErr := l.directory.Lock(current.MemberID)
	defer releaseMember()

	l.mu.Lock()
	i := l.index[normID(current.ID)]
	loan := l.loans[i]
	// A concurrent Return may have won the race for the locks.
	if loan.IsReturned() {
		l.mu.Unlock()
		return Loan{}, errors.Wrapf(ErrAlreadyReturned, "loan %s", loan.ID)
	}
	today := l.today()
	loan.FineAmount = loan.Fine(today)
	loan.ReturnDate = &today
	loan.Status = LoanReturned

	// A record deleted from the store by hand must not block the return.
	if bookErr == nil {
		if err := l.catalog.AdjustAvailability(ctx, loan.BookID, +1); err != nil {
			l.log.Warn("return: book counter", zap.String("loan", loan.ID), zap.Error(err))
		}
	} else {
		l.log.Warn("return: book missing", zap.String("loan", loan.ID), zap.String("book", loan.BookID))
	}
	if memberErr == nil {
		if err := l.directory.AdjustBorrowedCount(ctx, loan.MemberID, -1); err != nil {
			l.log.Warn("return: member counter", zap.String("loan", loan.ID), zap.Error(err))
		}
	} else {
		l.log.Warn("return: member missing", zap.String("loan", loan.ID), zap.String("member", loan.MemberID))
	}
	l.loans[i] = loan
	l.mu.Unlock()

	l.persist(ctx)
	l.opts.metrics.returned(loan.FineAmount)
	l.log.Info("loan returned",
		zap.String("loan", loan.ID), zap.String("book", loan.BookID),
		zap.String("member", loan.MemberID), zap.Stringer("fine", loan.FineAmount))
	return loan, nil
}

// FindByID returns the loan with the given identifier.
func (l *Ledger) FindByID(id string) (Loan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[normID(id)]
	if !ok {
		return Loan{}, errors.Wrapf(ErrLoanNotFound, "loan %s", id)
	}
	return l.loans[i], nil
}

// List returns every loan in issue order.
func (l *Ledger) List() []Loan { return l.filter(func(Loan) bool { return true }) }

func (l *Ledger) ListByMember(memberID string) []Loan {
	key := normID(memberID)
	return l.filter(func(ln Loan) bool { return normID(ln.MemberID) == key })
}

func (l *Ledger) ListByBook(bookID string) []Loan {
	key := normID(bookID)
	return l.filter(func(ln Loan) bool { return normID(ln.BookID) == key })
}

// ListIssued returns the loans that are still out.
func (l *Ledger) ListIssued() []Loan {
	return l.filter(func(ln Loan) bool { return ln.Status == LoanIssued })
}

// ListOverdue returns issued loans whose due date is before today.
func (l *Ledger) ListOverdue() []Loan {
	today := l.today()
	return l.filter(func(ln Loan) bool { return ln.IsOverdue(today) })
}

// TotalOutstandingFines sums the live fine of every overdue loan.
func (l *Ledger) TotalOutstandingFines() Money {
	today := l.today()
	var total Money
	for _, ln := range l.ListOverdue() {
		total += ln.Fine(today)
	}
	return total
}

// Today exposes the ledger's notion of the current date, for callers that
// render live fines.
func (l *Ledger) Today() time.Time { return l.today() }

func (l *Ledger) filter(keep func(Loan) bool) []Loan {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Loan
	for _, ln := range l.loans {
		if keep(ln) {
			out = append(out, ln)
		}
	}
	return out
}

func (l *Ledger) persist(ctx context.Context) {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	l.mu.RLock()
	snap := slices.Clone(l.loans)
	l.mu.RUnlock()
	if err := l.repo.SaveLoans(ctx, snap); err != nil {
		l.log.Error("save loans", zap.Error(err))
		l.opts.metrics.persistFailed("loans")
	}
}
