package core

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func row(dateText string, spend int64, messages int64, campaign string) Row {
	return Row{
		DateText: dateText,
		Date:     ParseDate(dateText, LayoutDMY),
		Spend:    decimal.NewFromInt(spend),
		Messages: messages,
		Campaign: campaign,
	}
}

func TestGroupByDateEndToEnd(t *testing.T) {
	n := NewNormalizer(testSchema, LayoutDMY, "")
	rows := n.NormalizeAll([]RawRecord{
		{"Date": "01/02/2024", "Spend": "1000", "Messages": "", "Campaign": "A"},
		{"Date": "01/02/2024", "Spend": "500", "Messages": "5", "Campaign": "B"},
	})

	groups := GroupByDate(rows)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.DateText != "01/02/2024" {
		t.Fatalf("DateText = %q", g.DateText)
	}
	if !g.TotalSpend.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("TotalSpend = %s", g.TotalSpend)
	}
	if g.TotalMessages != 5 {
		t.Fatalf("TotalMessages = %d", g.TotalMessages)
	}
	if !reflect.DeepEqual(g.Campaigns, []string{"A", "B"}) {
		t.Fatalf("Campaigns = %v", g.Campaigns)
	}
}

func TestGroupByDateIsLosslessPartition(t *testing.T) {
	rows := []Row{
		row("01/01/2024", 100, 1, "a"),
		row("", 40, 2, "b"),
		row("02/01/2024", 250, 0, "c"),
		row("01/01/2024", 7, 3, "a"),
		row("bad", 11, 9, "d"),
		row("", 3, 0, "e"),
	}

	var groupSpend decimal.Decimal
	var groupMsgs int64
	for _, g := range GroupByDate(rows) {
		groupSpend = groupSpend.Add(g.TotalSpend)
		groupMsgs += g.TotalMessages
	}

	k := Summarize(rows)
	if !groupSpend.Equal(k.TotalSpend) {
		t.Fatalf("group spend %s != row spend %s", groupSpend, k.TotalSpend)
	}
	if groupMsgs != k.TotalMessages {
		t.Fatalf("group messages %d != row messages %d", groupMsgs, k.TotalMessages)
	}
}

func TestGroupByDateOrdering(t *testing.T) {
	rows := []Row{
		row("", 1, 0, "x"),
		row("05/01/2024", 1, 0, "x"),
		row("bad", 1, 0, "x"),
		row("20/01/2024", 1, 0, "x"),
		row("10/01/2024", 1, 0, "x"),
	}
	var got []string
	for _, g := range GroupByDate(rows) {
		got = append(got, g.DateText)
	}
	want := []string{"20/01/2024", "10/01/2024", "05/01/2024", OtherBucket, "bad"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestGroupByDateEmpty(t *testing.T) {
	if got := GroupByDate(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
}

func TestUniqueCampaigns(t *testing.T) {
	g := DateGroup{Campaigns: []string{"B", "A", "B", "C", "A"}}
	if got := g.UniqueCampaigns(); !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Fatalf("UniqueCampaigns = %v", got)
	}
}
