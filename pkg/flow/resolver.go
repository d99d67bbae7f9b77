package flow

import (
	"log/slog"
	"strings"

	"github.com/zapflow/zapflow/pkg/models"
)

// OverridePolicy controls whether an exact keyword match may interrupt a
// suspended execution. The default keeps the suspension: a reply to an open
// question is an answer, not a new trigger.
type OverridePolicy string

const (
	// ResumeWins resumes the suspended execution even when the message also
	// matches a keyword. Default.
	ResumeWins OverridePolicy = "resume_wins"
	// KeywordWins lets an exact keyword match restart the matched flow,
	// abandoning the suspended execution. Lets contacts escape a stuck flow.
	KeywordWins OverridePolicy = "keyword_wins"
)

// ResolutionKind identifies which rule of the priority protocol matched.
type ResolutionKind string

const (
	ResolutionResume    ResolutionKind = "resume"
	ResolutionKeyword   ResolutionKind = "keyword"
	ResolutionUniversal ResolutionKind = "universal"
	ResolutionNoOp      ResolutionKind = "noop"
)

// Resolution is the outcome of trigger resolution for one inbound message.
// Flow carries the chosen definition with its version pinned for the lifetime
// of the execution; a republish never changes the graph under an in-flight
// conversation.
type Resolution struct {
	Kind    ResolutionKind
	Flow    *models.Flow
	NodeID  string // Resume target for ResolutionResume, start node otherwise
	Keyword string // Matched keyword for ResolutionKeyword
}

// Resolver selects the flow (if any) an inbound message should start or
// resume, using a fixed priority protocol: resume, keyword, universal, no-op.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a trigger resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("module", "trigger_resolver")}
}

// Resolve applies the priority protocol. flows must be the organization's
// published flows ordered oldest first; conversation may be nil for a
// first-contact message.
func (r *Resolver) Resolve(conversation *models.Conversation, flows []*models.Flow, text string, policy OverridePolicy) Resolution {
	normalized := normalize(text)

	suspended := conversation != nil && conversation.HasSuspendedExecution()
	if suspended {
		if policy == KeywordWins {
			if flow, keyword := exactKeywordMatch(flows, normalized); flow != nil {
				r.logger.Info("Keyword override interrupting suspended execution",
					"organization_id", conversation.OrganizationID,
					"contact_id", conversation.ContactID,
					"flow_id", flow.ID,
					"keyword", keyword)

				return Resolution{Kind: ResolutionKeyword, Flow: flow, Keyword: keyword}
			}
		}

		return Resolution{Kind: ResolutionResume, NodeID: conversation.CurrentNodeID}
	}

	if flow, keyword := bestKeywordMatch(flows, normalized); flow != nil {
		return Resolution{Kind: ResolutionKeyword, Flow: flow, Keyword: keyword}
	}

	if flow := r.universalFlow(flows); flow != nil {
		return Resolution{Kind: ResolutionUniversal, Flow: flow}
	}

	return Resolution{Kind: ResolutionNoOp}
}

// bestKeywordMatch finds the flow whose keyword best matches the text: exact
// or substring match, longest keyword first, then oldest flow. flows are
// already ordered oldest first, so the first flow holding the longest match
// wins.
func bestKeywordMatch(flows []*models.Flow, normalized string) (*models.Flow, string) {
	if normalized == "" {
		return nil, ""
	}

	var (
		best        *models.Flow
		bestKeyword string
	)

	for _, flow := range flows {
		for _, keyword := range flow.Trigger.Keywords {
			candidate := normalize(keyword)
			if candidate == "" {
				continue
			}

			if normalized != candidate && !strings.Contains(normalized, candidate) {
				continue
			}

			if len(candidate) > len(bestKeyword) {
				best = flow
				bestKeyword = candidate
			}
		}
	}

	return best, bestKeyword
}

// exactKeywordMatch is the stricter variant used by the keyword-override
// exception: only a message that is exactly a keyword may interrupt a
// suspended execution.
func exactKeywordMatch(flows []*models.Flow, normalized string) (*models.Flow, string) {
	for _, flow := range flows {
		for _, keyword := range flow.Trigger.Keywords {
			if normalized == normalize(keyword) && normalized != "" {
				return flow, normalized
			}
		}
	}

	return nil, ""
}

// universalFlow returns the organization's fallback flow. More than one
// universal flow is a misconfiguration: warn and pick the most recently
// updated one deterministically.
func (r *Resolver) universalFlow(flows []*models.Flow) *models.Flow {
	var candidates []*models.Flow

	for _, flow := range flows {
		if flow.Trigger.IsUniversal {
			candidates = append(candidates, flow)
		}
	}

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	chosen := candidates[0]
	for _, flow := range candidates[1:] {
		if flow.UpdatedAt.After(chosen.UpdatedAt) {
			chosen = flow
		}
	}

	r.logger.Warn("Multiple universal flows configured, choosing most recently updated",
		"organization_id", chosen.OrganizationID,
		"chosen_flow_id", chosen.ID,
		"universal_count", len(candidates))

	return chosen
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
