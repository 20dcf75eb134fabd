package domain

// SelectableOutcomes returns the outcome tags an agent may record for the
// lead, in catalog order. A terminal lead gets an empty list. The filter
// rules, applied in order over the full catalog:
//
//  1. deal_won is hidden until the lead is negotiating.
//  2. Stage contacted also hides under_offer and deal_lost; early exits at
//     that point go through invalid instead.
//  3. One-time outcomes already recorded are consumed. Repeatable outcomes
//     (call_back_request, no_answer, meeting_scheduled) stay selectable,
//     meeting_scheduled so follow-up meetings can be booked mid-pipeline.
func SelectableOutcomes(lead Lead) []OutcomeTag {
	if lead.Terminal() {
		return nil
	}

	out := make([]OutcomeTag, 0, len(catalog))
	for _, entry := range catalog {
		if entry.Tag == OutcomeDealWon && lead.Stage != StageNegotiating {
			continue
		}
		if lead.Stage == StageContacted &&
			(entry.Tag == OutcomeUnderOffer || entry.Tag == OutcomeDealLost) {
			continue
		}
		if !entry.Repeatable && lead.OutcomesSelected.Has(entry.Tag) {
			continue
		}
		out = append(out, entry.Tag)
	}
	return out
}

// SelectableEntries hydrates SelectableOutcomes with full catalog entries
// for API responses.
func SelectableEntries(lead Lead) []CatalogEntry {
	tags := SelectableOutcomes(lead)
	entries := make([]CatalogEntry, 0, len(tags))
	for _, tag := range tags {
		entries = append(entries, catalogByTag[tag])
	}
	return entries
}
