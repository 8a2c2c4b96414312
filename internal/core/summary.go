package core

import "github.com/shopspring/decimal"

// Summarize computes the KPIs over rows. The average cost per message is zero
// when no messages were started.
func Summarize(rows []Row) KPI {
	k := KPI{TotalSpend: decimal.Zero}
	for _, r := range rows {
		k.TotalSpend = k.TotalSpend.Add(r.Spend)
		k.TotalMessages = addCount(k.TotalMessages, r.Messages)
	}
	k.AvgCostPerMessage = CostPerMessage(k.TotalSpend, k.TotalMessages)
	return k
}
