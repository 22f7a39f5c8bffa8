package library

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Directory owns member records and their borrow counters. Members are never
// deleted. Locking mirrors Catalog: one lock per member plus a collection lock.
type Directory struct {
	mu      sync.RWMutex
	members []Member
	index   map[string]int

	locks  *keyedLocks
	saveMu sync.Mutex
	repo   Repository
	log    *zap.Logger
	opts   options
}

// NewDirectory loads the persisted members from repo. MaxAllowed is always
// rederived from the type; a member holding more than that is logged and skipped.
func NewDirectory(ctx context.Context, repo Repository, log *zap.Logger, opts ...Option) (*Directory, error) {
	d := &Directory{
		index: make(map[string]int),
		locks: newKeyedLocks(),
		repo:  repo,
		log:   log.Named("directory"),
		opts:  buildOptions(opts),
	}
	members, err := repo.LoadMembers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load members")
	}
	for _, m := range members {
		key := normID(m.ID)
		if _, dup := d.index[key]; dup {
			d.log.Warn("skip duplicate member", zap.String("id", m.ID))
			continue
		}
		if want := m.Type.MaxAllowed(); m.MaxAllowed != want {
			d.log.Warn("max allowed corrected", zap.String("id", m.ID),
				zap.String("type", string(m.Type)), zap.Int("stored", m.MaxAllowed), zap.Int("max", want))
			m.MaxAllowed = want
		}
		if m.BorrowedCount < 0 || m.BorrowedCount > m.MaxAllowed {
			d.log.Warn("skip member with borrowed count out of range", zap.String("id", m.ID),
				zap.Int("borrowed", m.BorrowedCount), zap.Int("max", m.MaxAllowed))
			continue
		}
		d.index[key] = len(d.members)
		d.members = append(d.members, m)
	}
	return d, nil
}

// Register adds a member with no books borrowed. MaxAllowed follows the type
// and RegistrationDate defaults to today.
func (d *Directory) Register(ctx context.Context, m Member) (Member, error) {
	if t, ok := ParseMemberType(string(m.Type)); ok {
		m.Type = t
	}
	m.BorrowedCount = 0
	m.MaxAllowed = m.Type.MaxAllowed()
	if m.RegistrationDate.IsZero() {
		m.RegistrationDate = Day(d.opts.now())
	}
	if err := check(m); err != nil {
		return Member{}, err
	}

	key := normID(m.ID)
	unlock := d.locks.Lock(key)
	defer unlock()

	d.mu.Lock()
	if _, ok := d.index[key]; ok {
		d.mu.Unlock()
		return Member{}, errors.Wrapf(ErrDuplicateID, "member %s", m.ID)
	}
	if d.emailTaken(m.Email, "") {
		d.mu.Unlock()
		return Member{}, errors.Wrapf(ErrDuplicateEmail, "email %s", m.Email)
	}
	d.index[key] = len(d.members)
	d.members = append(d.members, m)
	d.mu.Unlock()

	d.persist(ctx)
	return m, nil
}

// Update replaces name, email, phone and type. Identifier, registration date
// and borrowed count are kept; MaxAllowed is recomputed when the type changes.
func (d *Directory) Update(ctx context.Context, m Member) (Member, error) {
	key := normID(m.ID)
	unlock := d.locks.Lock(key)
	defer unlock()

	d.mu.Lock()
	i, ok := d.index[key]
	if !ok {
		d.mu.Unlock()
		return Member{}, errors.Wrapf(ErrMemberNotFound, "member %s", m.ID)
	}
	next := d.members[i]
	next.Name, next.Email, next.Phone = m.Name, m.Email, m.Phone
	if t, ok := ParseMemberType(string(m.Type)); ok {
		m.Type = t
	}
	if m.Type != next.Type {
		next.Type = m.Type
		next.MaxAllowed = m.Type.MaxAllowed()
	}
	if err := check(next); err != nil {
		d.mu.Unlock()
		return Member{}, err
	}
	if next.BorrowedCount > next.MaxAllowed {
		d.mu.Unlock()
		return Member{}, errors.Wrapf(ErrInvalid, "member %s holds %d books, limit for %s is %d",
			next.ID, next.BorrowedCount, next.Type, next.MaxAllowed)
	}
	if d.emailTaken(next.Email, key) {
		d.mu.Unlock()
		return Member{}, errors.Wrapf(ErrDuplicateEmail, "email %s", next.Email)
	}
	d.members[i] = next
	d.mu.Unlock()

	d.persist(ctx)
	return next, nil
}

// emailTaken reports whether a member other than exceptKey uses email.
// Callers hold d.mu.
func (d *Directory) emailTaken(email, exceptKey string) bool {
	for _, m := range d.members {
		if strings.EqualFold(m.Email, email) && normID(m.ID) != exceptKey {
			return true
		}
	}
	return false
}

// FindByID returns the member with the given identifier.
func (d *Directory) FindByID(id string) (Member, error) {
	key := normID(id)
	unlock := d.locks.RLock(key)
	defer unlock()
	return d.get(key, id)
}

func (d *Directory) get(key, id string) (Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[key]
	if !ok {
		return Member{}, errors.Wrapf(ErrMemberNotFound, "member %s", id)
	}
	return d.members[i], nil
}

// FindByEmail matches the whole address, ignoring case.
func (d *Directory) FindByEmail(email string) (Member, error) {
	found := d.filter(func(m Member) bool { return strings.EqualFold(m.Email, email) })
	if len(found) == 0 {
		return Member{}, errors.Wrapf(ErrMemberNotFound, "email %s", email)
	}
	return found[0], nil
}

// SearchByName matches a case-insensitive substring of the name.
func (d *Directory) SearchByName(q string) []Member {
	return d.filter(func(m Member) bool { return containsFold(m.Name, q) })
}

func (d *Directory) List() []Member { return d.filter(func(Member) bool { return true }) }

func (d *Directory) ListByType(t MemberType) []Member {
	return d.filter(func(m Member) bool { return strings.EqualFold(string(m.Type), string(t)) })
}

// CanBorrow reports whether the member is below their borrowing limit.
func (d *Directory) CanBorrow(id string) (bool, error) {
	m, err := d.FindByID(id)
	if err != nil {
		return false, err
	}
	return m.CanBorrow(), nil
}

// Lock write-locks one member until release is called; see Catalog.Lock.
func (d *Directory) Lock(id string) (m Member, release func(), err error) {
	key := normID(id)
	release = d.locks.Lock(key)
	m, err = d.get(key, id)
	return m, release, err
}

// AdjustBorrowedCount moves BorrowedCount by delta (+1 or -1). Stepping past
// 0 or MaxAllowed is a logged no-op, not an error.
func (d *Directory) AdjustBorrowedCount(ctx context.Context, id string, delta int) error {
	if delta != 1 && delta != -1 {
		return errors.Wrapf(ErrInvalid, "borrowed count delta %d", delta)
	}
	d.mu.Lock()
	i, ok := d.index[normID(id)]
	if !ok {
		d.mu.Unlock()
		return errors.Wrapf(ErrMemberNotFound, "member %s", id)
	}
	m := &d.members[i]
	next := m.BorrowedCount + delta
	if next < 0 || next > m.MaxAllowed {
		d.log.Warn("borrowed count clamped",
			zap.String("id", m.ID), zap.Int("delta", delta),
			zap.Int("borrowed", m.BorrowedCount), zap.Int("max", m.MaxAllowed))
		d.mu.Unlock()
		return nil
	}
	m.BorrowedCount = next
	d.mu.Unlock()

	d.persist(ctx)
	return nil
}

func (d *Directory) filter(keep func(Member) bool) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Member
	for _, m := range d.members {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (d *Directory) persist(ctx context.Context) {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	d.mu.RLock()
	snap := slices.Clone(d.members)
	d.mu.RUnlock()
	if err := d.repo.SaveMembers(ctx, snap); err != nil {
		d.log.Error("save members", zap.Error(err))
		d.opts.metrics.persistFailed("members")
	}
}
