package models

// AggregateStatus derives the overall search outcome from its platform rows.
// done is false while any selected platform is still running. Once all are
// terminal the search is complete if at least one selected platform
// completed, otherwise failed. A completed platform counts as success even
// with zero results.
func AggregateStatus(platforms []Platform) (status SearchStatus, done bool) {
	succeeded := false
	for _, p := range platforms {
		if !p.Selected {
			continue
		}
		if !p.Status.IsTerminal() {
			return "", false
		}
		if p.Status == PlatformCompleted {
			succeeded = true
		}
	}
	if succeeded {
		return SearchComplete, true
	}
	return SearchFailed, true
}

// searchStatusRank orders the non-terminal search statuses so updates only
// move a search forward.
var searchStatusRank = map[SearchStatus]int{
	SearchPending:   0,
	SearchAnalyzing: 1,
	SearchSearching: 2,
}

// StatusesBefore returns the statuses a search may move to target from.
func StatusesBefore(target SearchStatus) []SearchStatus {
	rank, ok := searchStatusRank[target]
	if !ok {
		return nil
	}
	var from []SearchStatus
	for _, s := range []SearchStatus{SearchPending, SearchAnalyzing, SearchSearching} {
		if searchStatusRank[s] <= rank {
			from = append(from, s)
		}
	}
	return from
}

var platformStatusRank = map[PlatformStatus]int{
	PlatformPending:   0,
	PlatformAnalyzing: 1,
	PlatformSearching: 2,
}

// PlatformStatusesBefore returns the statuses a platform may move to a
// running target from. Terminal targets have no ordering and return nil.
func PlatformStatusesBefore(target PlatformStatus) []PlatformStatus {
	rank, ok := platformStatusRank[target]
	if !ok {
		return nil
	}
	var from []PlatformStatus
	for _, s := range []PlatformStatus{PlatformPending, PlatformAnalyzing, PlatformSearching} {
		if platformStatusRank[s] <= rank {
			from = append(from, s)
		}
	}
	return from
}
