package library

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Records are stored one per line with fields joined by '|'. Field values are
// not escaped, so a value containing the separator or a line break cannot be
// stored; the singleline validator rejects such values before they reach a store.
const (
	fieldSep = "|"
	nullDate = "NULL"

	bookFields     = 7
	memberFields   = 8
	loanFields     = 8
	operatorFields = 3
)

// errFieldCount marks a line that does not have the expected number of fields.
var errFieldCount = errors.New("wrong field count")

// EncodeBook renders id|title|author|isbn|category|totalQuantity|availableQuantity.
func EncodeBook(b Book) string {
	return strings.Join([]string{
		b.ID, b.Title, b.Author, b.ISBN, b.Category,
		strconv.Itoa(b.TotalQuantity), strconv.Itoa(b.AvailableQuantity),
	}, fieldSep)
}

// DecodeBook parses a line written by EncodeBook.
func DecodeBook(line string) (Book, error) {
	p, err := splitLine(line, bookFields)
	if err != nil {
		return Book{}, err
	}
	total, err := strconv.Atoi(p[5])
	if err != nil {
		return Book{}, errors.Wrap(err, "total quantity")
	}
	avail, err := strconv.Atoi(p[6])
	if err != nil {
		return Book{}, errors.Wrap(err, "available quantity")
	}
	return Book{
		ID: p[0], Title: p[1], Author: p[2], ISBN: p[3], Category: p[4],
		TotalQuantity: total, AvailableQuantity: avail,
	}, nil
}

// EncodeMember renders id|name|email|phone|type|registrationDate|borrowedCount|maxAllowed.
func EncodeMember(m Member) string {
	return strings.Join([]string{
		m.ID, m.Name, m.Email, m.Phone, string(m.Type),
		formatDate(m.RegistrationDate),
		strconv.Itoa(m.BorrowedCount), strconv.Itoa(m.MaxAllowed),
	}, fieldSep)
}

// DecodeMember parses a line written by EncodeMember. The stored maxAllowed
// is returned as written; NewDirectory reconciles it with the type.
func DecodeMember(line string) (Member, error) {
	p, err := splitLine(line, memberFields)
	if err != nil {
		return Member{}, err
	}
	typ, ok := ParseMemberType(p[4])
	if !ok {
		return Member{}, errors.Errorf("unknown member type %q", p[4])
	}
	reg, err := parseDate(p[5])
	if err != nil {
		return Member{}, errors.Wrap(err, "registration date")
	}
	borrowed, err := strconv.Atoi(p[6])
	if err != nil {
		return Member{}, errors.Wrap(err, "borrowed count")
	}
	maxAllowed, err := strconv.Atoi(p[7])
	if err != nil {
		return Member{}, errors.Wrap(err, "max allowed")
	}
	return Member{
		ID: p[0], Name: p[1], Email: p[2], Phone: p[3], Type: typ,
		RegistrationDate: reg, BorrowedCount: borrowed, MaxAllowed: maxAllowed,
	}, nil
}

// EncodeLoan renders id|bookId|memberId|issueDate|dueDate|returnDate|fine|status,
// with the literal NULL for a loan that has not been returned.
func EncodeLoan(l Loan) string {
	ret := nullDate
	if l.ReturnDate != nil {
		ret = formatDate(*l.ReturnDate)
	}
	return strings.Join([]string{
		l.ID, l.BookID, l.MemberID,
		formatDate(l.IssueDate), formatDate(l.DueDate), ret,
		l.FineAmount.String(), string(l.Status),
	}, fieldSep)
}

// DecodeLoan parses a line written by EncodeLoan.
func DecodeLoan(line string) (Loan, error) {
	p, err := splitLine(line, loanFields)
	if err != nil {
		return Loan{}, err
	}
	issued, err := parseDate(p[3])
	if err != nil {
		return Loan{}, errors.Wrap(err, "issue date")
	}
	due, err := parseDate(p[4])
	if err != nil {
		return Loan{}, errors.Wrap(err, "due date")
	}
	var ret *time.Time
	if p[5] != nullDate {
		d, err := parseDate(p[5])
		if err != nil {
			return Loan{}, errors.Wrap(err, "return date")
		}
		ret = &d
	}
	fine, err := ParseMoney(p[6])
	if err != nil {
		return Loan{}, errors.Wrap(err, "fine")
	}
	status := LoanStatus(p[7])
	if status != LoanIssued && status != LoanReturned {
		return Loan{}, errors.Errorf("unknown loan status %q", p[7])
	}
	return Loan{
		ID: p[0], BookID: p[1], MemberID: p[2],
		IssueDate: issued, DueDate: due, ReturnDate: ret,
		FineAmount: fine, Status: status,
	}, nil
}

// EncodeOperator renders username|passwordHash|name.
func EncodeOperator(o Operator) string {
	return strings.Join([]string{o.Username, o.PasswordHash, o.Name}, fieldSep)
}

// DecodeOperator parses a line written by EncodeOperator.
func DecodeOperator(line string) (Operator, error) {
	p, err := splitLine(line, operatorFields)
	if err != nil {
		return Operator{}, err
	}
	return Operator{Username: p[0], PasswordHash: p[1], Name: p[2]}, nil
}

func splitLine(line string, want int) ([]string, error) {
	p := strings.Split(line, fieldSep)
	if len(p) != want {
		return nil, errors.Wrapf(errFieldCount, "got %d fields, want %d", len(p), want)
	}
	return p, nil
}
