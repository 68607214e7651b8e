package keyword

import (
	"fmt"
	"sort"
	"strings"
)

// Merge collapses raw observations that share (owner_id, topic_id, keyword)
// into one canonical record.
//
// Field rule: numeric fields come from the candidate with the latest
// fetched_at; on equal timestamps the higher source priority wins. Intent
// prefers any non-unknown value, most recent on disagreement. Related
// keywords are the case-insensitive union ordered highest-priority source
// first. The output carries the max fetched_at and no scores; callers
// rescore after every merge.
//
// Given the same candidate slice the output is identical on repeated runs.
func Merge(candidates []Record) (Record, error) {
	if len(candidates) == 0 {
		return Record{}, fmt.Errorf("merge requires at least one candidate")
	}

	identity := candidates[0].Identity()
	for _, c := range candidates[1:] {
		if c.Identity() != identity {
			return Record{}, fmt.Errorf("merge candidates have mixed identities: %q vs %q",
				candidates[0].Keyword, c.Keyword)
		}
	}

	// Stable order: recency first, then source priority. ordered[0] wins
	// every numeric field.
	ordered := make([]Record, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].FetchedAt.Equal(ordered[j].FetchedAt) {
			return ordered[i].FetchedAt.After(ordered[j].FetchedAt)
		}
		return ordered[i].Source.Priority() > ordered[j].Source.Priority()
	})

	winner := ordered[0]
	merged := Record{
		Keyword:         winner.Keyword,
		OwnerID:         winner.OwnerID,
		TopicID:         winner.TopicID,
		Source:          winner.Source,
		SearchVolume:    winner.SearchVolume,
		Difficulty:      winner.Difficulty,
		CPC:             winner.CPC,
		Competition:     winner.Competition,
		TrendPercentage: winner.TrendPercentage,
		Intent:          mergeIntent(ordered),
		FetchedAt:       winner.FetchedAt,
	}

	for _, c := range ordered {
		if c.FetchedAt.After(merged.FetchedAt) {
			merged.FetchedAt = c.FetchedAt
		}
	}

	// Related keywords: highest-priority source's insertion order first,
	// then novel entries from the rest.
	byPriority := make([]Record, len(candidates))
	copy(byPriority, candidates)
	sort.SliceStable(byPriority, func(i, j int) bool {
		if byPriority[i].Source.Priority() != byPriority[j].Source.Priority() {
			return byPriority[i].Source.Priority() > byPriority[j].Source.Priority()
		}
		return byPriority[i].FetchedAt.After(byPriority[j].FetchedAt)
	})
	for _, c := range byPriority {
		for _, related := range c.RelatedKeywords {
			merged.RelatedKeywords = appendUniqueFold(merged.RelatedKeywords, related)
		}
	}

	return merged, nil
}

// mergeIntent prefers any non-unknown intent; on disagreement the most
// recent candidate wins. ordered must already be sorted most recent first.
func mergeIntent(ordered []Record) Intent {
	for _, c := range ordered {
		if c.Intent != IntentUnknown && c.Intent != "" {
			return c.Intent
		}
	}
	return IntentUnknown
}

// appendUniqueFold appends s unless an existing entry matches
// case-insensitively, preserving insertion order.
func appendUniqueFold(list []string, s string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, s) {
			return list
		}
	}
	return append(list, s)
}

// GroupByIdentity buckets candidates by (owner_id, topic_id, keyword),
// preserving first-seen group order for deterministic batch output.
func GroupByIdentity(candidates []Record) [][]Record {
	index := make(map[string]int)
	var groups [][]Record
	for _, c := range candidates {
		id := c.Identity()
		if i, ok := index[id]; ok {
			groups[i] = append(groups[i], c)
			continue
		}
		index[id] = len(groups)
		groups = append(groups, []Record{c})
	}
	return groups
}
