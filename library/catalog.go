package library

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Catalog owns book records and their availability counters.
//
// Each book has its own lock (see Lock). Reads of a single book wait while a
// lending operation holds that book, so a decremented counter is never seen
// before the loan that caused it.
type Catalog struct {
	mu    sync.RWMutex
	books []Book
	index map[string]int

	locks  *keyedLocks
	saveMu sync.Mutex
	repo   Repository
	log    *zap.Logger
	opts   options
}

// NewCatalog loads the persisted books from repo. Books whose counters break
// 0 <= available <= total are logged and skipped.
func NewCatalog(ctx context.Context, repo Repository, log *zap.Logger, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		index: make(map[string]int),
		locks: newKeyedLocks(),
		repo:  repo,
		log:   log.Named("catalog"),
		opts:  buildOptions(opts),
	}
	books, err := repo.LoadBooks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load books")
	}
	for _, b := range books {
		key := normID(b.ID)
		if _, dup := c.index[key]; dup {
			c.log.Warn("skip duplicate book", zap.String("id", b.ID))
			continue
		}
		if b.TotalQuantity < 0 || b.AvailableQuantity < 0 || b.AvailableQuantity > b.TotalQuantity {
			c.log.Warn("skip book with counters out of range", zap.String("id", b.ID),
				zap.Int("available", b.AvailableQuantity), zap.Int("total", b.TotalQuantity))
			continue
		}
		c.index[key] = len(c.books)
		c.books = append(c.books, b)
	}
	return c, nil
}

// Add inserts a new book with every copy available.
func (c *Catalog) Add(ctx context.Context, b Book) (Book, error) {
	b.AvailableQuantity = b.TotalQuantity
	if err := check(b); err != nil {
		return Book{}, err
	}
	key := normID(b.ID)
	unlock := c.locks.Lock(key)
	defer unlock()

	c.mu.Lock()
	if _, ok := c.index[key]; ok {
		c.mu.Unlock()
		return Book{}, errors.Wrapf(ErrDuplicateID, "book %s", b.ID)
	}
	c.index[key] = len(c.books)
	c.books = append(c.books, b)
	c.mu.Unlock()

	c.persist(ctx)
	return b, nil
}

// Update replaces title, author, ISBN, category and total quantity.
// AvailableQuantity is left as is, so a new total below it is rejected.
func (c *Catalog) Update(ctx context.Context, b Book) (Book, error) {
	key := normID(b.ID)
	unlock := c.locks.Lock(key)
	defer unlock()

	c.mu.Lock()
	i, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return Book{}, errors.Wrapf(ErrBookNotFound, "book %s", b.ID)
	}
	next := c.books[i]
	next.Title, next.Author, next.ISBN, next.Category = b.Title, b.Author, b.ISBN, b.Category
	next.TotalQuantity = b.TotalQuantity
	if err := check(next); err != nil {
		c.mu.Unlock()
		return Book{}, err
	}
	c.books[i] = next
	c.mu.Unlock()

	c.persist(ctx)
	return next, nil
}

// Remove deletes a book that has no copies on loan.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	key := normID(id)
	unlock := c.locks.Lock(key)
	defer unlock()

	c.mu.Lock()
	i, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrBookNotFound, "book %s", id)
	}
	if b := c.books[i]; b.AvailableQuantity < b.TotalQuantity {
		c.mu.Unlock()
		return errors.Wrapf(ErrOutstandingCopies, "book %s has %d copies out", b.ID, b.Outstanding())
	}
	c.books = slices.Delete(c.books, i, i+1)
	c.reindex()
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// reindex rebuilds the id index. Callers hold c.mu.
func (c *Catalog) reindex() {
	clear(c.index)
	for i, b := range c.books {
		c.index[normID(b.ID)] = i
	}
}

// FindByID returns the book with the given identifier.
func (c *Catalog) FindByID(id string) (Book, error) {
	key := normID(id)
	unlock := c.locks.RLock(key)
	defer unlock()
	return c.get(key, id)
}

func (c *Catalog) get(key, id string) (Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[key]
	if !ok {
		return Book{}, errors.Wrapf(ErrBookNotFound, "book %s", id)
	}
	return c.books[i], nil
}

// Lock write-locks one book until release is called and returns the book as
// seen under the lock. When the book does not exist err is ErrBookNotFound;
// release is valid either way and must be called.
func (c *Catalog) Lock(id string) (b Book, release func(), err error) {
	key := normID(id)
	release = c.locks.Lock(key)
	b, err = c.get(key, id)
	return b, release, err
}

// AdjustAvailability moves AvailableQuantity by delta (+1 or -1). Stepping
// past 0 or TotalQuantity is a logged no-op, not an error.
// It does not take the per-book lock; the ledger calls it while holding it.
func (c *Catalog) AdjustAvailability(ctx context.Context, id string, delta int) error {
	if delta != 1 && delta != -1 {
		return errors.Wrapf(ErrInvalid, "availability delta %d", delta)
	}
	c.mu.Lock()
	i, ok := c.index[normID(id)]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrBookNotFound, "book %s", id)
	}
	b := &c.books[i]
	next := b.AvailableQuantity + delta
	if next < 0 || next > b.TotalQuantity {
		c.log.Warn("availability clamped",
			zap.String("id", b.ID), zap.Int("delta", delta),
			zap.Int("available", b.AvailableQuantity), zap.Int("total", b.TotalQuantity))
		c.mu.Unlock()
		return nil
	}
	b.AvailableQuantity = next
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// SearchByTitle matches a case-insensitive substring of the title.
func (c *Catalog) SearchByTitle(q string) []Book {
	return c.filter(func(b Book) bool { return containsFold(b.Title, q) })
}

// SearchByAuthor matches a case-insensitive substring of the author.
func (c *Catalog) SearchByAuthor(q string) []Book {
	return c.filter(func(b Book) bool { return containsFold(b.Author, q) })
}

// SearchByCategory matches the whole category, ignoring case.
func (c *Catalog) SearchByCategory(category string) []Book {
	return c.filter(func(b Book) bool { return strings.EqualFold(b.Category, category) })
}

// SearchByISBN returns the first book whose ISBN equals isbn exactly.
func (c *Catalog) SearchByISBN(isbn string) (Book, error) {
	found := c.filter(func(b Book) bool { return b.ISBN == isbn })
	if len(found) == 0 {
		return Book{}, errors.Wrapf(ErrBookNotFound, "isbn %s", isbn)
	}
	return found[0], nil
}

func (c *Catalog) List() []Book { return c.filter(func(Book) bool { return true }) }

func (c *Catalog) ListAvailable() []Book { return c.filter(Book.IsAvailable) }

// Categories lists distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, b := range c.books {
		if !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	return out
}

func (c *Catalog) filter(keep func(Book) bool) []Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Book
	for _, b := range c.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// persist writes the current collection. Failures are logged and the
// in-memory state stays authoritative.
func (c *Catalog) persist(ctx context.Context) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.RLock()
	snap := slices.Clone(c.books)
	c.mu.RUnlock()
	if err := c.repo.SaveBooks(ctx, snap); err != nil {
		c.log.Error("save books", zap.Error(err))
		c.opts.metrics.persistFailed("books")
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
