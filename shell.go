package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"library-lending/library"
)

// shell runs the interactive menu until "exit" or end of input.
func (a *app) shell(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)

	fmt.Fprintf(a.out, "Welcome, %s!\n", a.session.Operator.Name)
	a.printHelp()

	for {
		fmt.Fprint(a.out, "\n> ")
		if !sc.Scan() {
			return sc.Err()
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))

		var err error
		switch cmd {
		case "":
			continue
		case "add book":
			err = a.handleAddBook(ctx, sc)
		case "update book":
			err = a.handleUpdateBook(ctx, sc)
		case "remove book":
			err = a.handleRemoveBook(ctx, sc)
		case "list books":
			err = a.printBooks(a.mgr.Catalog.List())
		case "available books":
			err = a.printBooks(a.mgr.Catalog.ListAvailable())
		case "search book":
			err = a.handleSearchBooks(sc)
		case "register member":
			err = a.handleRegisterMember(ctx, sc)
		case "update member":
			err = a.handleUpdateMember(ctx, sc)
		case "list members":
			err = a.printMembers(a.mgr.Directory.List())
		case "search member":
			err = a.handleSearchMembers(sc)
		case "issue":
			err = a.handleIssue(ctx, sc)
		case "return":
			err = a.handleReturn(ctx, sc)
		case "list loans":
			a.printLoanRows(a.mgr.Ledger.List())
		case "issued loans":
			a.printLoanRows(a.mgr.Ledger.ListIssued())
		case "member loans":
			err = a.handleMemberLoans(sc)
		case "overdue":
			lines, total := a.mgr.OverdueReport()
			a.printOverdue(lines, total)
		case "fines":
			fmt.Fprintf(a.out, "Outstanding fines: %s\n", a.mgr.Ledger.TotalOutstandingFines())
		case "change password":
			err = a.changePassword(ctx, a.passwordReader(in, sc))
		case "stats":
			err = a.printStats()
		case "help":
			a.printHelp()
		case "exit", "quit":
			a.log.Info("logout")
			fmt.Fprintf(a.out, "Goodbye, %s!\n", a.session.Operator.Name)
			return nil
		default:
			fmt.Fprintln(a.out, "Unknown command. Type 'help' to see the available commands.")
		}
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
}

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Books: add book, update book, remove book, list books, available books, search book")
	fmt.Fprintln(a.out, "  Members: register member, update member, list members, search member")
	fmt.Fprintln(a.out, "  Circulation: issue, return, list loans, issued loans, member loans, overdue, fines")
	fmt.Fprintln(a.out, "  System: change password, stats, help, exit")
}

// passwordReader masks input when the shell reads an interactive terminal.
// Otherwise passwords come from the shell's own scanner, which already owns
// any buffered input.
func (a *app) passwordReader(in io.Reader, sc *bufio.Scanner) func(string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return readPassword
	}
	return func(prompt string) (string, error) {
		v, ok := a.ask(sc, prompt)
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return v, nil
	}
}

// ask prints prompt and returns the next trimmed line. ok is false at end of input.
func (a *app) ask(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// askFields prompts for each label in turn.
func (a *app) askFields(sc *bufio.Scanner, labels ...string) ([]string, bool) {
	out := make([]string, len(labels))
	for i, l := range labels {
		v, ok := a.ask(sc, l+": ")
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (a *app) handleAddBook(ctx context.Context, sc *bufio.Scanner) error {
	f, ok := a.askFields(sc, "Book ID", "Title", "Author", "ISBN", "Category", "Quantity")
	if !ok {
		return nil
	}
	qty, err := strconv.Atoi(f[5])
	if err != nil {
		return errors.Errorf("invalid quantity %q", f[5])
	}
	b, err := a.mgr.Catalog.Add(ctx, library.Book{
		ID: f[0], Title: f[1], Author: f[2], ISBN: f[3], Category: f[4], TotalQuantity: qty,
	})
	if err != nil {
		return err
	}
	a.log.Info("book added", zap.String("id", b.ID))
	fmt.Fprintf(a.out, "Added book %s with %d copies.\n", b.ID, b.TotalQuantity)
	return nil
}

func (a *app) handleUpdateBook(ctx context.Context, sc *bufio.Scanner) error {
	id, ok := a.ask(sc, "Book ID: ")
	if !ok {
		return nil
	}
	cur, err := a.mgr.Catalog.FindByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Press Enter to keep the current value.")
	f, ok := a.askFields(sc,
		fmt.Sprintf("Title [%s]", cur.Title),
		fmt.Sprintf("Author [%s]", cur.Author),
		fmt.Sprintf("ISBN [%s]", cur.ISBN),
		fmt.Sprintf("Category [%s]", cur.Category),
		fmt.Sprintf("Total quantity [%d]", cur.TotalQuantity))
	if !ok {
		return nil
	}
	next := cur
	setIfGiven(&next.Title, f[0])
	setIfGiven(&next.Author, f[1])
	setIfGiven(&next.ISBN, f[2])
	setIfGiven(&next.Category, f[3])
	if f[4] != "" {
		if next.TotalQuantity, err = strconv.Atoi(f[4]); err != nil {
			return errors.Errorf("invalid quantity %q", f[4])
		}
	}
	b, err := a.mgr.Catalog.Update(ctx, next)
	if err != nil {
		return err
	}
	a.log.Info("book updated", zap.String("id", b.ID))
	fmt.Fprintln(a.out, library.PrettyBook(b))
	return nil
}

func (a *app) handleRemoveBook(ctx context.Context, sc *bufio.Scanner) error {
	id, ok := a.ask(sc, "Book ID: ")
	if !ok {
		return nil
	}
	if err := a.mgr.Catalog.Remove(ctx, id); err != nil {
		return err
	}
	a.log.Info("book removed", zap.String("id", id))
	fmt.Fprintf(a.out, "Removed book %s.\n", id)
	return nil
}

func (a *app) handleSearchBooks(sc *bufio.Scanner) error {
	by, ok := a.ask(sc, "Search by (title/author/category/isbn): ")
	if !ok {
		return nil
	}
	q, ok := a.ask(sc, "Query: ")
	if !ok {
		return nil
	}
	switch strings.ToLower(by) {
	case "title", "":
		return a.printBooks(a.mgr.Catalog.SearchByTitle(q))
	case "author":
		return a.printBooks(a.mgr.Catalog.SearchByAuthor(q))
	case "category":
		return a.printBooks(a.mgr.Catalog.SearchByCategory(q))
	case "isbn":
		b, err := a.mgr.Catalog.SearchByISBN(q)
		if err != nil {
			return err
		}
		return a.printBooks([]library.Book{b})
	}
	return errors.Errorf("unknown search field %q", by)
}

func (a *app) handleRegisterMember(ctx context.Context, sc *bufio.Scanner) error {
	f, ok := a.askFields(sc, "Member ID", "Name", "Email", "Phone", "Type (STUDENT/FACULTY)")
	if !ok {
		return nil
	}
	m, err := a.mgr.Directory.Register(ctx, library.Member{
		ID: f[0], Name: f[1], Email: f[2], Phone: f[3], Type: library.MemberType(f[4]),
	})
	if err != nil {
		return err
	}
	a.log.Info("member registered", zap.String("id", m.ID))
	fmt.Fprintf(a.out, "Registered member %s (%s, up to %d books).\n", m.ID, m.Type, m.MaxAllowed)
	return nil
}

func (a *app) handleUpdateMember(ctx context.Context, sc *bufio.Scanner) error {
	id, ok := a.ask(sc, "Member ID: ")
	if !ok {
		return nil
	}
	cur, err := a.mgr.Directory.FindByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Press Enter to keep the current value.")
	f, ok := a.askFields(sc,
		fmt.Sprintf("Name [%s]", cur.Name),
		fmt.Sprintf("Email [%s]", cur.Email),
		fmt.Sprintf("Phone [%s]", cur.Phone),
		fmt.Sprintf("Type [%s]", cur.Type))
	if !ok {
		return nil
	}
	next := cur
	setIfGiven(&next.Name, f[0])
	setIfGiven(&next.Email, f[1])
	setIfGiven(&next.Phone, f[2])
	if f[3] != "" {
		next.Type = library.MemberType(f[3])
	}
	m, err := a.mgr.Directory.Update(ctx, next)
	if err != nil {
		return err
	}
	a.log.Info("member updated", zap.String("id", m.ID))
	fmt.Fprintln(a.out, library.PrettyMember(m))
	return nil
}

func (a *app) handleSearchMembers(sc *bufio.Scanner) error {
	q, ok := a.ask(sc, "Name or email: ")
	if !ok {
		return nil
	}
	if strings.Contains(q, "@") {
		m, err := a.mgr.Directory.FindByEmail(q)
		if err != nil {
			return err
		}
		return a.printMembers([]library.Member{m})
	}
	return a.printMembers(a.mgr.Directory.SearchByName(q))
}

func (a *app) handleIssue(ctx context.Context, sc *bufio.Scanner) error {
	f, ok := a.askFields(sc, "Book ID", "Member ID")
	if !ok {
		return nil
	}
	loan, err := a.mgr.IssueBook(ctx, f[0], f[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Issued %s: book %s to member %s, due %s.\n",
		loan.ID, loan.BookID, loan.MemberID, loan.DueDate.Format("2006-01-02"))
	return nil
}

func (a *app) handleReturn(ctx context.Context, sc *bufio.Scanner) error {
	id, ok := a.ask(sc, "Loan ID: ")
	if !ok {
		return nil
	}
	loan, err := a.mgr.ReturnBook(ctx, id)
	if err != nil {
		return err
	}
	if loan.FineAmount > 0 {
		fmt.Fprintf(a.out, "Returned %s late. Fine due: %s\n", loan.ID, loan.FineAmount)
		return nil
	}
	fmt.Fprintf(a.out, "Returned %s on time.\n", loan.ID)
	return nil
}

func (a *app) handleMemberLoans(sc *bufio.Scanner) error {
	id, ok := a.ask(sc, "Member ID: ")
	if !ok {
		return nil
	}
	if _, err := a.mgr.Directory.FindByID(id); err != nil {
		return err
	}
	a.printLoanRows(a.mgr.Ledger.ListByMember(id))
	return nil
}

func setIfGiven(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
