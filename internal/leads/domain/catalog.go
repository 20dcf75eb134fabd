package domain

// OutcomeTag identifies an entry in the outcome catalog. Tags are the
// stable workflow identifiers; labels are display-only and may change.
type OutcomeTag string

const (
	OutcomeCallBackRequest  OutcomeTag = "call_back_request"
	OutcomeNoAnswer         OutcomeTag = "no_answer"
	OutcomeInterested       OutcomeTag = "interested"
	OutcomeMeetingScheduled OutcomeTag = "meeting_scheduled"
	OutcomeUnderOffer       OutcomeTag = "under_offer"
	OutcomeDealWon          OutcomeTag = "deal_won"
	OutcomeDealLost         OutcomeTag = "deal_lost"
	OutcomeInvalid          OutcomeTag = "invalid"
)

// DBOutcome is the coarse disposition category stored alongside each
// outcome record, used for reporting across the fine-grained tags.
type DBOutcome string

const (
	DBOutcomeContactAttempt   DBOutcome = "contact_attempt"
	DBOutcomePipelineProgress DBOutcome = "pipeline_progress"
	DBOutcomeWon              DBOutcome = "won"
	DBOutcomeLost             DBOutcome = "lost"
	DBOutcomeInvalid          DBOutcome = "invalid"
)

// Reason is one selectable entry of an outcome's reason list.
type Reason struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ReasonNoAnswerMultipleAttempts is the reason stamped on the synthetic
// deal_lost record written when repeated no_answer outcomes force a lead
// to lost.
const ReasonNoAnswerMultipleAttempts = "no_answer_multiple_attempts"

// InvalidReasons are the selectable reasons for the invalid outcome.
var InvalidReasons = []Reason{
	{ID: "developer", Label: "Developer"},
	{ID: "agent", Label: "Agent"},
	{ID: "marketing", Label: "Marketing"},
	{ID: "test_junk_data", Label: "Test / Junk Data"},
	{ID: "incorrect_contact_details", Label: "Incorrect Contact Details"},
	{ID: "existing_client", Label: "Existing Client"},
	{ID: "only_researching", Label: "Only Researching"},
	{ID: ReasonNoAnswerMultipleAttempts, Label: "No Answer After Multiple Attempts"},
}

// DealLostReasons are the selectable reasons for the deal_lost outcome.
var DealLostReasons = []Reason{
	{ID: "property_not_available", Label: "Property Not Available"},
	{ID: "seller_backed_out", Label: "Seller Backed Out"},
	{ID: "financing_issues", Label: "Financing Issues"},
	{ID: "lost_to_competitor", Label: "Lost to Competitor"},
	{ID: "legal_compliance_issue", Label: "Legal / Compliance Issue"},
	{ID: "no_suitable_property", Label: "Couldn't Find Suitable Property"},
	{ID: ReasonNoAnswerMultipleAttempts, Label: "No Answer After Multiple Attempts"},
	{ID: "offer_rejected", Label: "Offer Rejected"},
	{ID: "budget_too_low", Label: "Budget Too Low"},
}

// CatalogEntry describes one recordable outcome: its workflow identity,
// validation requirements and reporting category. Repeatable entries stay
// selectable after being recorded; one-time entries are consumed.
type CatalogEntry struct {
	Tag            OutcomeTag
	Label          string
	DBOutcome      DBOutcome
	RequiresReason bool
	RequiresDueAt  bool
	Repeatable     bool
	Reasons        []Reason
}

var catalog = []CatalogEntry{
	{
		Tag:           OutcomeCallBackRequest,
		Label:         "Call back requested",
		DBOutcome:     DBOutcomeContactAttempt,
		RequiresDueAt: true,
		Repeatable:    true,
	},
	{
		Tag:           OutcomeNoAnswer,
		Label:         "No answer",
		DBOutcome:     DBOutcomeContactAttempt,
		RequiresDueAt: true,
		Repeatable:    true,
	},
	{
		Tag:           OutcomeInterested,
		Label:         "Interested",
		DBOutcome:     DBOutcomePipelineProgress,
		RequiresDueAt: true,
	},
	{
		Tag:           OutcomeMeetingScheduled,
		Label:         "Meeting scheduled",
		DBOutcome:     DBOutcomePipelineProgress,
		RequiresDueAt: true,
		Repeatable:    true,
	},
	{
		Tag:           OutcomeUnderOffer,
		Label:         "Under offer",
		DBOutcome:     DBOutcomePipelineProgress,
		RequiresDueAt: true,
	},
	{
		Tag:       OutcomeDealWon,
		Label:     "Deal won",
		DBOutcome: DBOutcomeWon,
	},
	{
		Tag:            OutcomeDealLost,
		Label:          "Deal lost",
		DBOutcome:      DBOutcomeLost,
		RequiresReason: true,
		Reasons:        DealLostReasons,
	},
	{
		Tag:            OutcomeInvalid,
		Label:          "Invalid lead",
		DBOutcome:      DBOutcomeInvalid,
		RequiresReason: true,
		Reasons:        InvalidReasons,
	},
}

var catalogByTag = func() map[OutcomeTag]CatalogEntry {
	m := make(map[OutcomeTag]CatalogEntry, len(catalog))
	for _, e := range catalog {
		m[e.Tag] = e
	}
	return m
}()

// Catalog returns every outcome entry in display order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// LookupOutcome resolves a tag against the catalog.
func LookupOutcome(tag OutcomeTag) (CatalogEntry, error) {
	entry, ok := catalogByTag[tag]
	if !ok {
		return CatalogEntry{}, ErrUnknownOutcome
	}
	return entry, nil
}

// ValidReason reports whether reasonID belongs to the entry's reason list.
func (e CatalogEntry) ValidReason(reasonID string) bool {
	for _, r := range e.Reasons {
		if r.ID == reasonID {
			return true
		}
	}
	return false
}
