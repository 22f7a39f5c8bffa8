package library

import "context"

//go:generate mockgen -source=repository.go -destination=mock_repository_test.go -package=library

// Repository is durable storage for each entity collection. Every Save call
// replaces the whole collection with the given snapshot.
type Repository interface {
	LoadBooks(ctx context.Context) ([]Book, error)
	SaveBooks(ctx context.Context, books []Book) error
	LoadMembers(ctx context.Context) ([]Member, error)
	SaveMembers(ctx context.Context, members []Member) error
	LoadLoans(ctx context.Context) ([]Loan, error)
	SaveLoans(ctx context.Context, loans []Loan) error
	LoadOperators(ctx context.Context) ([]Operator, error)
	SaveOperators(ctx context.Context, ops []Operator) error
	Close() error
}
