package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

type digestJSON struct {
	RunID          string       `json:"run_id"`
	GeneratedAt    time.Time    `json:"generated_at"`
	Partial        bool         `json:"partial"`
	TruncatedCount int          `json:"truncated_count"`
	Results        []resultJSON `json:"results"`
	Metrics        metricsJSON  `json:"metrics"`
}

type resultJSON struct {
	Repo              string       `json:"repo"`
	Number            int          `json:"number"`
	Title             string       `json:"title"`
	URL               string       `json:"url"`
	Author            string       `json:"author"`
	CreatedAt         time.Time    `json:"created_at"`
	StalenessDays     float64      `json:"staleness_days"`
	Category          string       `json:"category"`
	Approvals         int          `json:"approvals"`
	RequiredApprovals int          `json:"required_approvals"`
	ApprovalLost      bool         `json:"approval_lost"`
	PendingMembers    []memberJSON `json:"pending_members"`
}

type memberJSON struct {
	Handle    string `json:"handle"`
	MentionID string `json:"mention_id,omitempty"`
}

type metricsJSON struct {
	SearchCalls    int `json:"search_calls"`
	DetailCalls    int `json:"detail_calls"`
	BatchedSavings int `json:"batched_savings"`
	GroupCalls     int `json:"group_calls"`
	QuotaCalls     int `json:"quota_calls"`
	Retries        int `json:"retries"`
	Failures       int `json:"failures"`
}

// WriteJSON writes d as indented JSON.
func WriteJSON(w io.Writer, d *model.Digest) error {
	out := digestJSON{
		RunID:          d.RunID,
		GeneratedAt:    d.GeneratedAt,
		Partial:        d.Partial,
		TruncatedCount: d.TruncatedCount,
		Results:        make([]resultJSON, 0, len(d.Results)),
		Metrics:        metricsJSON(d.Metrics),
	}

	for _, r := range d.Results {
		members := make([]memberJSON, 0, len(r.PendingMembers))
		for _, m := range r.PendingMembers {
			members = append(members, memberJSON{Handle: m.Handle, MentionID: m.MentionID})
		}
		out.Results = append(out.Results, resultJSON{
			Repo:              r.PR.Repo,
			Number:            r.PR.Number,
			Title:             r.PR.Title,
			URL:               r.PR.URL,
			Author:            r.PR.Author,
			CreatedAt:         r.PR.CreatedAt,
			StalenessDays:     r.StalenessDays,
			Category:          string(r.Category),
			Approvals:         r.PR.Approvals,
			RequiredApprovals: r.PR.RequiredApprovals,
			ApprovalLost:      r.PR.ApprovalLost(),
			PendingMembers:    members,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
