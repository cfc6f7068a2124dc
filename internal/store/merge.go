package store

import "github.com/FranksOps/leadscout/internal/lead"

// MergeDiscovery folds a rediscovered candidate into an existing row.
// Discovery-phase fields refresh only where the row had nothing yet; the
// operator-set status and any enrichment fields are left alone. Backends
// share this so upsert semantics cannot drift between them.
func MergeDiscovery(existing, incoming *lead.Lead) {
	if existing.Website == "" && incoming.Website != "" {
		existing.Website = incoming.Website
	}
	if existing.InferredNiche == "" && incoming.InferredNiche != "" {
		existing.InferredNiche = incoming.InferredNiche
	}
	if incoming.SourceQuery != "" {
		existing.SourceQuery = incoming.SourceQuery
	}
	if incoming.Followers > 0 {
		existing.Followers = incoming.Followers
	}
}
