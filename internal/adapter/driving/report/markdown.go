package report

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// Markdown renders d as a chat message. Members with a mention ID are mentioned with
// <@id>; others are written as @handle.
func Markdown(d *model.Digest) string {
	return markdown(d, model.TrackedMember.Mention)
}

// markdown renders the digest table, formatting each pending member with mention.
func markdown(d *model.Digest, mention func(model.TrackedMember) string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Review digest** (%d pull requests waiting on review)\n\n", len(d.Results)+d.TruncatedCount)

	if d.Partial {
		b.WriteString("> **Warning:** partial results. Some data could not be fetched during this dry run.\n\n")
	}

	if len(d.Results) == 0 {
		b.WriteString("No pull requests are waiting on review.\n")
		return b.String()
	}

	b.WriteString("| Status | Business days | Pull request | Author | Waiting on |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range d.Results {
		fmt.Fprintf(&b, "| %s | %.1f | [%s](%s) %s | @%s | %s |\n",
			r.Category,
			r.StalenessDays,
			r.PR.Key(),
			r.PR.URL,
			escapeCell(r.PR.Title),
			r.PR.Author,
			waitingOn(r.PendingMembers, mention),
		)
	}

	if d.TruncatedCount > 0 {
		fmt.Fprintf(&b, "\n_%d more not shown._\n", d.TruncatedCount)
	}

	return b.String()
}

func waitingOn(members []model.TrackedMember, mention func(model.TrackedMember) string) string {
	if len(members) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, mention(m))
	}
	return strings.Join(parts, ", ")
}

// escapeCell keeps a value from breaking the table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
