package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SQLiteStore is a Repository backed by a single SQLite file. Each Save call
// replaces one table inside a transaction.
type SQLiteStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log.Named("sqlite")}, nil
}

// Close closes the DB.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return errors.Wrap(err, "enable WAL")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            pos INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL,
            category TEXT NOT NULL,
            total_quantity INTEGER NOT NULL,
            available_quantity INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            pos INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            type TEXT NOT NULL,
            registration_date TEXT NOT NULL,
            borrowed_count INTEGER NOT NULL,
            max_allowed INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            pos INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            book_id TEXT NOT NULL,
            member_id TEXT NOT NULL,
            issue_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT,
            fine INTEGER NOT NULL,
            status TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS operators (
            pos INTEGER NOT NULL,
            username TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            name TEXT NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrap(err, "apply migration")
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return errors.Wrap(err, "record schema version")
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

type memberRow struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	Email            string `db:"email"`
	Phone            string `db:"phone"`
	Type             string `db:"type"`
	RegistrationDate string `db:"registration_date"`
	BorrowedCount    int    `db:"borrowed_count"`
	MaxAllowed       int    `db:"max_allowed"`
}

type loanRow struct {
	ID         string         `db:"id"`
	BookID     string         `db:"book_id"`
	MemberID   string         `db:"member_id"`
	IssueDate  string         `db:"issue_date"`
	DueDate    string         `db:"due_date"`
	ReturnDate sql.NullString `db:"return_date"`
	Fine       int64          `db:"fine"`
	Status     string         `db:"status"`
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ---------------------------------------------------------------------------
// Load / save
// ---------------------------------------------------------------------------

func (s *SQLiteStore) LoadBooks(ctx context.Context) ([]Book, error) {
	query, args, err := qb.Select("id", "title", "author", "isbn", "category", "total_quantity", "available_quantity").
		From("books").OrderBy("pos").ToSql()
	if err != nil {
		return nil, err
	}
	var books []Book
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, errors.Wrap(err, "select books")
	}
	return books, nil
}

func (s *SQLiteStore) SaveBooks(ctx context.Context, books []Book) error {
	rows := make([][]any, len(books))
	for i, b := range books {
		rows[i] = []any{i, b.ID, b.Title, b.Author, b.ISBN, b.Category, b.TotalQuantity, b.AvailableQuantity}
	}
	return s.replace(ctx, "books", []string{"pos", "id", "title", "author", "isbn", "category", "total_quantity", "available_quantity"}, rows)
}

func (s *SQLiteStore) LoadMembers(ctx context.Context) ([]Member, error) {
	query, args, err := qb.Select("id", "name", "email", "phone", "type", "registration_date", "borrowed_count", "max_allowed").
		From("members").OrderBy("pos").ToSql()
	if err != nil {
		return nil, err
	}
	var rows []memberRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select members")
	}
	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		typ, ok := ParseMemberType(r.Type)
		reg, err := parseDate(r.RegistrationDate)
		if !ok || err != nil {
			s.log.Warn("skip malformed member row", zap.String("id", r.ID))
			continue
		}
		members = append(members, Member{
			ID: r.ID, Name: r.Name, Email: r.Email, Phone: r.Phone, Type: typ,
			RegistrationDate: reg, BorrowedCount: r.BorrowedCount, MaxAllowed: r.MaxAllowed,
		})
	}
	return members, nil
}

func (s *SQLiteStore) SaveMembers(ctx context.Context, members []Member) error {
	rows := make([][]any, len(members))
	for i, m := range members {
		rows[i] = []any{i, m.ID, m.Name, m.Email, m.Phone, string(m.Type), formatDate(m.RegistrationDate), m.BorrowedCount, m.MaxAllowed}
	}
	return s.replace(ctx, "members", []string{"pos", "id", "name", "email", "phone", "type", "registration_date", "borrowed_count", "max_allowed"}, rows)
}

func (s *SQLiteStore) LoadLoans(ctx context.Context) ([]Loan, error) {
	query, args, err := qb.Select("id", "book_id", "member_id", "issue_date", "due_date", "return_date", "fine", "status").
		From("loans").OrderBy("pos").ToSql()
	if err != nil {
		return nil, err
	}
	var rows []loanRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select loans")
	}
	loans := make([]Loan, 0, len(rows))
	for _, r := range rows {
		l, err := r.toLoan()
		if err != nil {
			s.log.Warn("skip malformed loan row", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		loans = append(loans, l)
	}
	return loans, nil
}

func (r loanRow) toLoan() (Loan, error) {
	issued, err := parseDate(r.IssueDate)
	if err != nil {
		return Loan{}, err
	}
	due, err := parseDate(r.DueDate)
	if err != nil {
		return Loan{}, err
	}
	l := Loan{
		ID: r.ID, BookID: r.BookID, MemberID: r.MemberID,
		IssueDate: issued, DueDate: due,
		FineAmount: Money(r.Fine), Status: LoanStatus(r.Status),
	}
	if r.ReturnDate.Valid {
		d, err := parseDate(r.ReturnDate.String)
		if err != nil {
			return Loan{}, err
		}
		l.ReturnDate = &d
	}
	return l, nil
}

func (s *SQLiteStore) SaveLoans(ctx context.Context, loans []Loan) error {
	rows := make([][]any, len(loans))
	for i, l := range loans {
		var ret sql.NullString
		if l.ReturnDate != nil {
			ret = sql.NullString{String: formatDate(*l.ReturnDate), Valid: true}
		}
		rows[i] = []any{i, l.ID, l.BookID, l.MemberID, formatDate(l.IssueDate), formatDate(l.DueDate), ret, int64(l.FineAmount), string(l.Status)}
	}
	return s.replace(ctx, "loans", []string{"pos", "id", "book_id", "member_id", "issue_date", "due_date", "return_date", "fine", "status"}, rows)
}

func (s *SQLiteStore) LoadOperators(ctx context.Context) ([]Operator, error) {
	query, args, err := qb.Select("username", "password_hash", "name").From("operators").OrderBy("pos").ToSql()
	if err != nil {
		return nil, err
	}
	var ops []Operator
	if err := s.db.SelectContext(ctx, &ops, query, args...); err != nil {
		return nil, errors.Wrap(err, "select operators")
	}
	return ops, nil
}

func (s *SQLiteStore) SaveOperators(ctx context.Context, ops []Operator) error {
	rows := make([][]any, len(ops))
	for i, o := range ops {
		rows[i] = []any{i, o.Username, o.PasswordHash, o.Name}
	}
	return s.replace(ctx, "operators", []string{"pos", "username", "password_hash", "name"}, rows)
}

// insertBatch keeps each INSERT well below SQLite's bound-variable limit.
const insertBatch = 200

// replace swaps the contents of table for rows in one transaction.
func (s *SQLiteStore) replace(ctx context.Context, table string, cols []string, rows [][]any) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return errors.Wrapf(err, "clear %s", table)
	}
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		ins := qb.Insert(table).Columns(cols...)
		for _, r := range rows[start:end] {
			ins = ins.Values(r...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "insert %s", table)
		}
	}
	return tx.Commit()
}
