package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-lending/library"
)

// ------------------ Books ------------------

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the book catalog"}

	var b library.Book
	bookFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&b.ID, "id", "", "book id")
		c.Flags().StringVar(&b.Title, "title", "", "title")
		c.Flags().StringVar(&b.Author, "author", "", "author")
		c.Flags().StringVar(&b.ISBN, "isbn", "", "ISBN")
		c.Flags().StringVar(&b.Category, "category", "", "category")
		c.Flags().IntVar(&b.TotalQuantity, "quantity", 1, "total copies")
		_ = c.MarkFlagRequired("id")
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			added, err := a.mgr.Catalog.Add(cmd.Context(), b)
			if err != nil {
				return err
			}
			a.log.Info("book added", zap.String("id", added.ID))
			return a.emit(added, func() { fmt.Fprintf(a.out, "Added book %s.\n", added.ID) })
		},
	}
	bookFlags(add)

	update := &cobra.Command{
		Use:   "update",
		Short: "Update a book; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.mgr.Catalog.FindByID(b.ID)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			keep(fl.Changed("title"), &b.Title, cur.Title)
			keep(fl.Changed("author"), &b.Author, cur.Author)
			keep(fl.Changed("isbn"), &b.ISBN, cur.ISBN)
			keep(fl.Changed("category"), &b.Category, cur.Category)
			keep(fl.Changed("quantity"), &b.TotalQuantity, cur.TotalQuantity)
			updated, err := a.mgr.Catalog.Update(cmd.Context(), b)
			if err != nil {
				return err
			}
			a.log.Info("book updated", zap.String("id", updated.ID))
			return a.emit(updated, func() { fmt.Fprintln(a.out, library.PrettyBook(updated)) })
		},
	}
	bookFlags(update)

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a book with no copies on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.Catalog.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.log.Info("book removed", zap.String("id", args[0]))
			fmt.Fprintf(a.out, "Removed book %s.\n", args[0])
			return nil
		},
	}

	var available bool
	list := &cobra.Command{
		Use:         "list",
		Short:       "List books",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{publicAnnotation: "available"},
		RunE: func(*cobra.Command, []string) error {
			books := a.mgr.Catalog.List()
			if available {
				books = a.mgr.Catalog.ListAvailable()
			}
			return a.printBooks(books)
		},
	}
	list.Flags().BoolVar(&available, "available", false, "only books with a copy available")

	var title, author, category, isbn string
	search := &cobra.Command{
		Use:         "search",
		Short:       "Search books by title, author, category or ISBN",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{publicAnnotation: "true"},
		RunE: func(*cobra.Command, []string) error {
			switch {
			case isbn != "":
				found, err := a.mgr.Catalog.SearchByISBN(isbn)
				if err != nil {
					return err
				}
				return a.printBooks([]library.Book{found})
			case title != "":
				return a.printBooks(a.mgr.Catalog.SearchByTitle(title))
			case author != "":
				return a.printBooks(a.mgr.Catalog.SearchByAuthor(author))
			case category != "":
				return a.printBooks(a.mgr.Catalog.SearchByCategory(category))
			}
			return errors.New("one of --title, --author, --category or --isbn is required")
		},
	}
	search.Flags().StringVar(&title, "title", "", "title substring")
	search.Flags().StringVar(&author, "author", "", "author substring")
	search.Flags().StringVar(&category, "category", "", "exact category")
	search.Flags().StringVar(&isbn, "isbn", "", "exact ISBN")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cats := a.mgr.Catalog.Categories()
			return a.emit(cats, func() {
				for _, c := range cats {
					fmt.Fprintln(a.out, c)
				}
			})
		},
	}

	cmd.AddCommand(add, update, remove, list, search, categories)
	return cmd
}

// keep restores *dst to cur when the flag behind dst was not given.
func keep[T any](changed bool, dst *T, cur T) {
	if !changed {
		*dst = cur
	}
}

func (a *app) printBooks(books []library.Book) error {
	return a.emit(books, func() {
		if len(books) == 0 {
			fmt.Fprintln(a.out, "No books found.")
			return
		}
		fmt.Fprintf(a.out, "%-8s %-30s %-22s %-14s %-12s %s\n", "ID", "Title", "Author", "ISBN", "Category", "Avail")
		fmt.Fprintln(a.out, strings.Repeat("-", 100))
		for _, b := range books {
			fmt.Fprintln(a.out, library.PrettyBook(b))
		}
	})
}

// ------------------ Members ------------------

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage members"}

	var (
		m        library.Member
		typeName string
	)
	memberFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&m.ID, "id", "", "member id")
		c.Flags().StringVar(&m.Name, "name", "", "full name")
		c.Flags().StringVar(&m.Email, "email", "", "email address")
		c.Flags().StringVar(&m.Phone, "phone", "", "phone number")
		c.Flags().StringVar(&typeName, "type", string(library.MemberStudent), "STUDENT or FACULTY")
		_ = c.MarkFlagRequired("id")
	}

	register := &cobra.Command{
		Use:   "register",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m.Type = library.MemberType(typeName)
			added, err := a.mgr.Directory.Register(cmd.Context(), m)
			if err != nil {
				return err
			}
			a.log.Info("member registered", zap.String("id", added.ID))
			return a.emit(added, func() {
				fmt.Fprintf(a.out, "Registered member %s (%s, up to %d books).\n", added.ID, added.Type, added.MaxAllowed)
			})
		},
	}
	memberFlags(register)

	update := &cobra.Command{
		Use:   "update",
		Short: "Update a member; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.mgr.Directory.FindByID(m.ID)
			if err != nil {
				return err
			}
			m.Type = library.MemberType(typeName)
			fl := cmd.Flags()
			keep(fl.Changed("name"), &m.Name, cur.Name)
			keep(fl.Changed("email"), &m.Email, cur.Email)
			keep(fl.Changed("phone"), &m.Phone, cur.Phone)
			keep(fl.Changed("type"), &m.Type, cur.Type)
			updated, err := a.mgr.Directory.Update(cmd.Context(), m)
			if err != nil {
				return err
			}
			a.log.Info("member updated", zap.String("id", updated.ID))
			return a.emit(updated, func() { fmt.Fprintln(a.out, library.PrettyMember(updated)) })
		},
	}
	memberFlags(update)

	var byType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if byType == "" {
				return a.printMembers(a.mgr.Directory.List())
			}
			t, ok := library.ParseMemberType(byType)
			if !ok {
				return errors.Errorf("unknown member type %q", byType)
			}
			return a.printMembers(a.mgr.Directory.ListByType(t))
		},
	}
	list.Flags().StringVar(&byType, "type", "", "only STUDENT or FACULTY members")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a member and their loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			found, err := a.mgr.Directory.FindByID(args[0])
			if err != nil {
				return err
			}
			loans := a.mgr.Ledger.ListByMember(found.ID)
			v := struct {
				Member library.Member `json:"member"`
				Loans  []library.Loan `json:"loans"`
			}{found, loans}
			return a.emit(v, func() {
				fmt.Fprintln(a.out, library.PrettyMember(found))
				a.printLoanRows(loans)
			})
		},
	}

	var name, email string
	search := &cobra.Command{
		Use:   "search",
		Short: "Search members by name or email",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			switch {
			case email != "":
				found, err := a.mgr.Directory.FindByEmail(email)
				if err != nil {
					return err
				}
				return a.printMembers([]library.Member{found})
			case name != "":
				return a.printMembers(a.mgr.Directory.SearchByName(name))
			}
			return errors.New("one of --name or --email is required")
		},
	}
	search.Flags().StringVar(&name, "name", "", "name substring")
	search.Flags().StringVar(&email, "email", "", "exact email")

	cmd.AddCommand(register, update, list, show, search)
	return cmd
}

func (a *app) printMembers(members []library.Member) error {
	return a.emit(members, func() {
		if len(members) == 0 {
			fmt.Fprintln(a.out, "No members found.")
			return
		}
		fmt.Fprintf(a.out, "%-8s %-24s %-28s %-12s %-8s %s\n", "ID", "Name", "Email", "Phone", "Type", "Books")
		fmt.Fprintln(a.out, strings.Repeat("-", 92))
		for _, m := range members {
			fmt.Fprintln(a.out, library.PrettyMember(m))
		}
	})
}

// ------------------ Loans ------------------

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Issue and return books"}

	issue := &cobra.Command{
		Use:   "issue <book-id> <member-id>",
		Short: "Issue a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := a.mgr.IssueBook(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.emit(loan, func() {
				fmt.Fprintf(a.out, "Issued %s: book %s to member %s, due %s.\n",
					loan.ID, loan.BookID, loan.MemberID, loan.DueDate.Format("2006-01-02"))
			})
		},
	}

	ret := &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a loan and settle its fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := a.mgr.ReturnBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(loan, func() {
				fmt.Fprintf(a.out, "Returned %s. Fine: %s\n", loan.ID, loan.FineAmount)
			})
		},
	}

	var member, book string
	var issued bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var loans []library.Loan
			switch {
			case member != "":
				loans = a.mgr.Ledger.ListByMember(member)
			case book != "":
				loans = a.mgr.Ledger.ListByBook(book)
			case issued:
				loans = a.mgr.Ledger.ListIssued()
			default:
				loans = a.mgr.Ledger.List()
			}
			return a.emit(loans, func() { a.printLoanRows(loans) })
		},
	}
	list.Flags().StringVar(&member, "member", "", "loans of one member")
	list.Flags().StringVar(&book, "book", "", "loans of one book")
	list.Flags().BoolVar(&issued, "issued", false, "only loans still out")

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Report overdue loans with their current fines",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			lines, total := a.mgr.OverdueReport()
			v := struct {
				Loans []library.OverdueLine `json:"loans"`
				Total library.Money         `json:"total"`
			}{lines, total}
			return a.emit(v, func() { a.printOverdue(lines, total) })
		},
	}

	fines := &cobra.Command{
		Use:   "fines",
		Short: "Total outstanding fines on overdue loans",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			total := a.mgr.Ledger.TotalOutstandingFines()
			return a.emit(map[string]library.Money{"total": total}, func() {
				fmt.Fprintf(a.out, "Outstanding fines: %s\n", total)
			})
		},
	}

	cmd.AddCommand(issue, ret, list, overdue, fines)
	return cmd
}

func (a *app) printLoanRows(loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No loans found.")
		return
	}
	fmt.Fprintf(a.out, "%-9s %-8s %-8s %-10s %-10s %-10s %-8s %8s\n",
		"ID", "Book", "Member", "Issued", "Due", "Returned", "Status", "Fine")
	fmt.Fprintln(a.out, strings.Repeat("-", 80))
	today := a.mgr.Ledger.Today()
	for _, l := range loans {
		fmt.Fprintln(a.out, library.PrettyLoan(l, today))
	}
}

func (a *app) printOverdue(lines []library.OverdueLine, total library.Money) {
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "No overdue loans.")
		return
	}
	fmt.Fprintf(a.out, "%-9s %-26s %-20s %-10s %5s %8s\n", "Loan", "Book", "Member", "Due", "Days", "Fine")
	fmt.Fprintln(a.out, strings.Repeat("-", 84))
	for _, l := range lines {
		fmt.Fprintf(a.out, "%-9s %-26s %-20s %-10s %5d %8s\n",
			l.Loan.ID, l.BookTitle, l.MemberName, l.Loan.DueDate.Format("2006-01-02"), l.OverdueDays, l.Fine)
	}
	fmt.Fprintln(a.out, strings.Repeat("-", 84))
	fmt.Fprintf(a.out, "%-73s %8s\n", "Total", total)
}

// ------------------ Operator ------------------

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the operator password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.changePassword(cmd.Context(), readPassword)
		},
	}
}

// changePassword prompts through read for the current and new password.
func (a *app) changePassword(ctx context.Context, read func(prompt string) (string, error)) error {
	oldPw, err := read("Current password: ")
	if err != nil {
		return err
	}
	newPw, err := read("New password: ")
	if err != nil {
		return err
	}
	confirm, err := read("Confirm new password: ")
	if err != nil {
		return err
	}
	if newPw != confirm {
		return errors.New("passwords do not match")
	}
	if err := a.mgr.Operators.ChangePassword(ctx, a.session.Operator.Username, oldPw, newPw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print library statistics and the lending counters of this run",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.printStats()
		},
	}
}

func (a *app) printStats() error {
	stats := a.mgr.Statistics()
	counters, err := a.runCounters()
	if err != nil {
		return err
	}
	v := struct {
		library.Statistics
		Counters map[string]float64 `json:"counters"`
	}{stats, counters}
	return a.emit(v, func() {
		fmt.Fprintln(a.out, "Library statistics")
		fmt.Fprintln(a.out, strings.Repeat("-", 36))
		fmt.Fprintf(a.out, "%-26s %9d\n", "Total books", stats.TotalBooks)
		fmt.Fprintf(a.out, "%-26s %9d\n", "Available books", stats.AvailableBooks)
		fmt.Fprintf(a.out, "%-26s %9d\n", "Total members", stats.TotalMembers)
		fmt.Fprintf(a.out, "%-26s %9d\n", "Total transactions", stats.TotalLoans)
		fmt.Fprintf(a.out, "%-26s %9d\n", "Currently issued", stats.IssuedLoans)
		fmt.Fprintf(a.out, "%-26s %9d\n", "Overdue", stats.OverdueLoans)
		fmt.Fprintf(a.out, "%-26s %9s\n", "Outstanding fines", stats.OutstandingFines)
		if len(counters) == 0 {
			return
		}
		fmt.Fprintln(a.out, "\nThis run")
		fmt.Fprintln(a.out, strings.Repeat("-", 36))
		names := make([]string, 0, len(counters))
		for name := range counters {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(a.out, "%s %g\n", name, counters[name])
		}
	})
}

// runCounters flattens the lending metrics of this process into name{labels} → value.
func (a *app) runCounters() (map[string]float64, error) {
	families, err := a.mgr.Registry().Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}
	out := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := f.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			out[name] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
