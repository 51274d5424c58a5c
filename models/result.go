package models

// SubmitResult is returned to callers after an accepted operation: the
// players in their post-mutation state and the audit entries that were
// appended for them.
type SubmitResult struct {
	Players []*Player           `json:"players"`
	Entries []*TransactionEntry `json:"entries"`
}
