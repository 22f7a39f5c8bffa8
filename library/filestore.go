package library

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	BooksFile     = "books.txt"
	MembersFile   = "members.txt"
	LoansFile     = "transactions.txt"
	OperatorsFile = "admins.txt"
)

// FileStore keeps each collection in its own pipe-delimited text file under dir.
type FileStore struct {
	dir string
	log *zap.Logger
}

// NewFileStore creates dir when needed so first-run saves succeed.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &FileStore{dir: dir, log: log.Named("filestore")}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) LoadBooks(ctx context.Context) ([]Book, error) {
	return loadLines(ctx, s, BooksFile, DecodeBook)
}

func (s *FileStore) SaveBooks(ctx context.Context, books []Book) error {
	return saveLines(ctx, s, BooksFile, books, EncodeBook)
}

func (s *FileStore) LoadMembers(ctx context.Context) ([]Member, error) {
	return loadLines(ctx, s, MembersFile, DecodeMember)
}

func (s *FileStore) SaveMembers(ctx context.Context, members []Member) error {
	return saveLines(ctx, s, MembersFile, members, EncodeMember)
}

func (s *FileStore) LoadLoans(ctx context.Context) ([]Loan, error) {
	return loadLines(ctx, s, LoansFile, DecodeLoan)
}

func (s *FileStore) SaveLoans(ctx context.Context, loans []Loan) error {
	return saveLines(ctx, s, LoansFile, loans, EncodeLoan)
}

func (s *FileStore) LoadOperators(ctx context.Context) ([]Operator, error) {
	return loadLines(ctx, s, OperatorsFile, DecodeOperator)
}

func (s *FileStore) SaveOperators(ctx context.Context, ops []Operator) error {
	return saveLines(ctx, s, OperatorsFile, ops, EncodeOperator)
}

// loadLines decodes every non-blank line of name. A missing file is an empty
// collection; a line that fails to decode is logged and skipped.
func loadLines[T any](ctx context.Context, s *FileStore, name string, decode func(string) (T, error)) ([]T, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := decode(line)
		if err != nil {
			s.log.Warn("skip malformed line",
				zap.String("file", name), zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return out, nil
}

// saveLines rewrites name with one encoded line per item. The snapshot is
// written to a temp file in the same directory and renamed into place, so a
// crash mid-write leaves the previous file intact.
func saveLines[T any](ctx context.Context, s *FileStore, name string, items []T, encode func(T) string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", name)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, it := range items {
		if _, err := w.WriteString(encode(it) + "\n"); err != nil {
			_ = tmp.Close()
			return errors.Wrapf(err, "write %s", name)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "flush %s", name)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	// atomically move into place
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename %s", name)
	}
	return nil
}
