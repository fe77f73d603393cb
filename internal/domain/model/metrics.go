package model

// CallMetrics counts remote activity during one run. Reported at the end of the run only.
type CallMetrics struct {
	SearchCalls    int
	DetailCalls    int
	BatchedSavings int // Detail round-trips avoided by batching.
	GroupCalls     int
	QuotaCalls     int
	Retries        int
	Failures       int
}

// LogAttrs flattens the metrics into slog key/value pairs.
func (m CallMetrics) LogAttrs() []any {
	return []any{
		"search_calls", m.SearchCalls,
		"detail_calls", m.DetailCalls,
		"batched_savings", m.BatchedSavings,
		"group_calls", m.GroupCalls,
		"quota_calls", m.QuotaCalls,
		"retries", m.Retries,
		"failures", m.Failures,
	}
}
