package core

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// GroupByDate partitions rows by DateText. Rows with an empty DateText land in
// the OtherBucket group. Groups come out newest first with undated groups
// last, ties keeping first-occurrence order.
func GroupByDate(rows []Row) []DateGroup {
	index := make(map[string]int)
	var groups []DateGroup

	for _, r := range rows {
		key := r.DateText
		if key == "" {
			key = OtherBucket
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{
				DateText:   key,
				Date:       r.Date,
				TotalSpend: decimal.Zero,
			})
		}
		g := &groups[i]
		g.TotalSpend = g.TotalSpend.Add(r.Spend)
		g.TotalMessages = addCount(g.TotalMessages, r.Messages)
		g.Campaigns = append(g.Campaigns, r.Campaign)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return newerFirst(groups[i].Date, groups[j].Date)
	})
	return groups
}

// UniqueCampaigns returns the group's campaign names without duplicates, in
// first-seen order.
func (g DateGroup) UniqueCampaigns() []string {
	return lo.Uniq(g.Campaigns)
}

// Campaigns lists the distinct campaign names across rows, in row order.
func Campaigns(rows []Row) []string {
	return lo.Uniq(lo.Map(rows, func(r Row, _ int) string { return r.Campaign }))
}
