package ingest

import "github.com/google/uuid"

type (
	// IngestionOutcome is the per-candidate result of one batch: either a
	// reference to the created asset, or the failure that prevented its
	// creation. Exactly one of AssetID / Err is set.
	IngestionOutcome struct {
		CandidateID int
		AssetID     *uuid.UUID
		FailedURL   string
		Err         error
	}

	// BatchReport is the aggregated result of one end-to-end ingestion run.
	// Outcomes are ordered by candidate page order regardless of the order
	// in which workers completed them. A report is always returned by the
	// orchestrator - a total catalog failure yields a report with
	// CatalogErr set and zero outcomes.
	BatchReport struct {
		CatalogErr error
		Outcomes   []IngestionOutcome
	}
)

func (outcome *IngestionOutcome) Succeeded() bool { return outcome.Err == nil }

// SucceededAssetIDs returns the identifiers of every asset this batch
// created, in candidate page order.
func (report *BatchReport) SucceededAssetIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		if outcome.Succeeded() {
			ids = append(ids, *outcome.AssetID)
		}
	}

	return ids
}

// Failures returns the outcomes for every candidate that could not be
// ingested.
func (report *BatchReport) Failures() []IngestionOutcome {
	failures := make([]IngestionOutcome, 0)
	for _, outcome := range report.Outcomes {
		if !outcome.Succeeded() {
			failures = append(failures, outcome)
		}
	}

	return failures
}

func (report *BatchReport) SucceededCount() int { return len(report.Outcomes) - len(report.Failures()) }
func (report *BatchReport) FailedCount() int    { return len(report.Failures()) }
