package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func tempFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := NewFileStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return s, dir
}

func TestFileStoreMissingFilesAreEmpty(t *testing.T) {
	s, _ := tempFileStore(t)
	ctx := context.Background()

	books, err := s.LoadBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
	members, err := s.LoadMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
	loans, err := s.LoadLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
	ops, err := s.LoadOperators(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestFileStoreSaveLoad(t *testing.T) {
	s, dir := tempFileStore(t)
	ctx := context.Background()

	books := []Book{
		{ID: "B001", Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", Category: "Fiction", TotalQuantity: 2, AvailableQuantity: 2},
		{ID: "B002", Title: "SICP", Author: "Abelson", ISBN: "9780262510875", Category: "CS", TotalQuantity: 1, AvailableQuantity: 0},
	}
	require.NoError(t, s.SaveBooks(ctx, books))
	got, err := s.LoadBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, books, got)

	raw, err := os.ReadFile(filepath.Join(dir, BooksFile))
	require.NoError(t, err)
	assert.Equal(t,
		"B001|Dune|Frank Herbert|9780441013593|Fiction|2|2\nB002|SICP|Abelson|9780262510875|CS|1|0\n",
		string(raw))

	issued := date(2024, time.June, 3)
	loans := []Loan{{ID: "TXN00001", BookID: "B002", MemberID: "M001", IssueDate: issued, DueDate: DueDateFor(issued), Status: LoanIssued}}
	require.NoError(t, s.SaveLoans(ctx, loans))
	gotLoans, err := s.LoadLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, loans, gotLoans)
}

func TestFileStoreSaveReplacesWholeFile(t *testing.T) {
	s, dir := tempFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBooks(ctx, []Book{
		{ID: "B001", Title: "A", TotalQuantity: 1, AvailableQuantity: 1},
		{ID: "B002", Title: "B", TotalQuantity: 1, AvailableQuantity: 1},
	}))
	require.NoError(t, s.SaveBooks(ctx, []Book{{ID: "B002", Title: "B", TotalQuantity: 1, AvailableQuantity: 1}}))

	got, err := s.LoadBooks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B002", got[0].ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file left behind")
	}
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dir := t.TempDir()
	s, err := NewFileStore(dir, zap.New(core))
	require.NoError(t, err)

	content := "B001|Dune|Frank Herbert|123|Fiction|2|2\n" +
		"B002|Broken line\n" +
		"\n" +
		"B003|Title|Author|456|Cat|x|1\n" +
		"B004|Emma|Jane Austen|789|Fiction|1|1\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(content), 0o644))

	books, err := s.LoadBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "B001", books[0].ID)
	assert.Equal(t, "B004", books[1].ID)

	skipped := logs.FilterMessage("skip malformed line").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(2), skipped[0].ContextMap()["line"])
	assert.Equal(t, int64(4), skipped[1].ContextMap()["line"])
}

func TestFileStoreCancelledContext(t *testing.T) {
	s, _ := tempFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SaveBooks(ctx, nil), context.Canceled)
}

func TestLoadedRecordsAreCheckedAgainstCounterLimits(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	dir := t.TempDir()
	s, err := NewFileStore(dir, log)
	require.NoError(t, err)
	ctx := context.Background()

	books := "B001|T|A|I|C|2|9\n" +
		"B002|T|A|I|C|2|-1\n" +
		"B003|Kept|A|I|C|2|1\n"
	members := "M001|Ann|ann@example.com|1|STUDENT|2024-01-01|0|10\n" +
		"M002|Bo|bo@example.com|2|STUDENT|2024-01-01|4|5\n" +
		"M003|Cy|cy@example.com|3|FACULTY|2024-01-01|4|3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(books), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MembersFile), []byte(members), 0o644))

	c, err := NewCatalog(ctx, s, log)
	require.NoError(t, err)
	got := c.List()
	require.Len(t, got, 1)
	assert.Equal(t, "B003", got[0].ID)
	assert.Equal(t, 2, logs.FilterMessage("skip book with counters out of range").Len())

	d, err := NewDirectory(ctx, s, log)
	require.NoError(t, err)
	ann, err := d.FindByID("M001")
	require.NoError(t, err)
	assert.Equal(t, 3, ann.MaxAllowed, "limit follows the type, not the file")
	cy, err := d.FindByID("M003")
	require.NoError(t, err)
	assert.Equal(t, 5, cy.MaxAllowed)
	_, err = d.FindByID("M002")
	assert.ErrorIs(t, err, ErrMemberNotFound, "student holding 4 books is skipped")
	assert.Equal(t, 3, logs.FilterMessage("max allowed corrected").Len())
	assert.Equal(t, 1, logs.FilterMessage("skip member with borrowed count out of range").Len())
}
