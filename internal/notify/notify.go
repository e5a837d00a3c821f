package notify

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/neargov/gateway/pkg/gov"
)

// FormatNewProposal renders the announcement text for a freshly
// created proposal. All user-authored fields are HTML-escaped; the
// text is handed to downstream notification dispatch as-is.
func FormatNewProposal(p *gov.Proposal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New proposal #%d: %s\n", p.ID, html.EscapeString(p.Title))

	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(truncate(p.Description, 280)))
	}

	if p.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", html.EscapeString(p.Link))
	}

	fmt.Fprintf(&b, "Status: %s", html.EscapeString(p.Status))

	return b.String()
}

// FormatProposalApproval renders the announcement text for a proposal
// that entered its voting period.
func FormatProposalApproval(p *gov.Proposal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Proposal #%d is now open for voting: %s\n", p.ID, html.EscapeString(p.Title))

	if len(p.VotingOptions) > 0 {
		escaped := make([]string, len(p.VotingOptions))
		for i, opt := range p.VotingOptions {
			escaped[i] = html.EscapeString(opt)
		}
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(escaped, " / "))
	}

	if p.Deadline != "" {
		fmt.Fprintf(&b, "Voting closes: %s\n", html.EscapeString(p.Deadline))
	}

	if p.SnapshotAndState != nil {
		fmt.Fprintf(&b, "Voting power snapshot at block %d", p.SnapshotAndState.Snapshot.BlockHeight)
	}

	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts on a rune boundary so multi-byte text stays valid.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + "..."
}
