package model

// ReviewState is the overall review decision of a pull request.
type ReviewState string

const (
	ReviewStateNone     ReviewState = "NONE"
	ReviewStateRequired ReviewState = "REQUIRED"
	ReviewStateApproved ReviewState = "APPROVED"
)

// SearchOrigin names the search query that found a pull request.
type SearchOrigin string

const (
	// OriginNone is the "no reviews submitted" query.
	OriginNone SearchOrigin = "none"
	// OriginRequired is the "reviews submitted but more required" query.
	OriginRequired SearchOrigin = "required"
	// OriginApproved is the "approved" filter. The pipeline does not query it.
	OriginApproved SearchOrigin = "approved"
)

// SearchQuery is one search request against the remote PR-search interface.
type SearchQuery struct {
	Reviewer string
	Review   SearchOrigin
	Since    string // YYYY-MM-DD
	Org      string // Optional org: qualifier.
	Limit    int
}
