package memstore

import "github.com/lib/pq"

// uniqueViolation reports duplicates the way Postgres does so callers classify both stores alike.
func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint, Message: "duplicate key value violates unique constraint"}
}
