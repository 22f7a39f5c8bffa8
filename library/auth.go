package library

import (
	"context"
	"crypto/subtle"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultOperator     = "admin"
	DefaultPassword     = "admin123"
	DefaultOperatorName = "System Administrator"
)

// Session identifies one logged-in operator run of the tool.
type Session struct {
	ID        uuid.UUID
	Operator  Operator
	StartedAt time.Time
}

// Operators holds staff accounts. Passwords are stored as bcrypt hashes;
// a plain-text password left by older data files is accepted once and
// rehashed on that login.
type Operators struct {
	mu  sync.RWMutex
	ops []Operator

	saveMu sync.Mutex
	repo   Repository
	log    *zap.Logger
	opts   options
	cost   int
}

// NewOperators loads operator accounts and seeds the default account when
// there are none.
func NewOperators(ctx context.Context, repo Repository, log *zap.Logger, opts ...Option) (*Operators, error) {
	o := &Operators{
		repo: repo,
		log:  log.Named("auth"),
		opts: buildOptions(opts),
		cost: bcrypt.DefaultCost,
	}
	ops, err := repo.LoadOperators(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load operators")
	}
	o.ops = ops
	if len(o.ops) == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), o.cost)
		if err != nil {
			return nil, errors.Wrap(err, "hash default password")
		}
		o.ops = append(o.ops, Operator{Username: DefaultOperator, PasswordHash: string(hash), Name: DefaultOperatorName})
		o.log.Warn("created default operator", zap.String("username", DefaultOperator))
		o.persist(ctx)
	}
	return o, nil
}

// Login checks the credentials and opens a session. The username matches
// case-insensitively. Unknown user and wrong password fail the same way.
func (o *Operators) Login(ctx context.Context, username, password string) (Session, error) {
	o.mu.Lock()
	i := o.find(username)
	if i < 0 {
		o.mu.Unlock()
		return Session{}, errors.Wrapf(ErrInvalidCredentials, "operator %s", username)
	}
	op := o.ops[i]
	legacy, ok := matchPassword(op.PasswordHash, password)
	if !ok {
		o.mu.Unlock()
		o.log.Warn("login failed", zap.String("username", username))
		return Session{}, errors.Wrapf(ErrInvalidCredentials, "operator %s", username)
	}
	upgraded := false
	if legacy {
		if hash, err := bcrypt.GenerateFromPassword([]byte(password), o.cost); err == nil {
			o.ops[i].PasswordHash = string(hash)
			op = o.ops[i]
			upgraded = true
		}
	}
	o.mu.Unlock()

	if upgraded {
		o.persist(ctx)
	}
	s := Session{ID: uuid.New(), Operator: op, StartedAt: o.opts.now()}
	o.log.Info("login", zap.String("username", op.Username), zap.Stringer("session", s.ID))
	return s, nil
}

// ChangePassword replaces the password of username after checking the old one.
func (o *Operators) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" || strings.ContainsAny(newPassword, fieldSep+"\r\n") {
		return errors.Wrap(ErrInvalid, "new password must be non-empty and must not contain '|' or line breaks")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), o.cost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	o.mu.Lock()
	i := o.find(username)
	if i < 0 {
		o.mu.Unlock()
		return errors.Wrapf(ErrInvalidCredentials, "operator %s", username)
	}
	if _, ok := matchPassword(o.ops[i].PasswordHash, oldPassword); !ok {
		o.mu.Unlock()
		return errors.Wrapf(ErrInvalidCredentials, "operator %s", username)
	}
	o.ops[i].PasswordHash = string(hash)
	o.mu.Unlock()

	o.persist(ctx)
	o.log.Info("password changed", zap.String("username", username))
	return nil
}

// List returns the accounts; password hashes are included.
func (o *Operators) List() []Operator {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.ops)
}

// find returns the index of username or -1. Callers hold o.mu.
func (o *Operators) find(username string) int {
	return slices.IndexFunc(o.ops, func(op Operator) bool {
		return strings.EqualFold(op.Username, strings.TrimSpace(username))
	})
}

// matchPassword compares password against stored. legacy is true when stored
// was a plain-text password rather than a bcrypt hash.
func matchPassword(stored, password string) (legacy, ok bool) {
	if _, err := bcrypt.Cost([]byte(stored)); err == nil {
		return false, bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return true, subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func (o *Operators) persist(ctx context.Context) {
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	o.mu.RLock()
	snap := slices.Clone(o.ops)
	o.mu.RUnlock()
	if err := o.repo.SaveOperators(ctx, snap); err != nil {
		o.log.Error("save operators", zap.Error(err))
		o.opts.metrics.persistFailed("operators")
	}
}
