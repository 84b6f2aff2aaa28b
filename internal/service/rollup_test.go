package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

func agentSale(agentID string, at time.Time) models.Sale {
	id := agentID
	return models.Sale{AgentID: &id, SaleDate: at, SaleType: models.SaleNormal}
}

func TestActivityClassification(t *testing.T) {
	a1 := models.Agent{ID: "a1", Name: "A1", Status: models.AgentActive}
	a2 := models.Agent{ID: "a2", Name: "A2", Status: models.AgentActive}
	sales := []models.Sale{
		agentSale("a1", time.Date(2024, 3, 4, 9, 0, 0, 0, eat)),
		agentSale("a2", time.Date(2024, 2, 20, 9, 0, 0, 0, eat)),
	}

	active := activeAgents([]models.Agent{a1, a2}, sales, testNow, eat)
	assert.True(t, active["a1"])
	assert.False(t, active["a2"])
}

func TestActivityIgnoresUnknownAgents(t *testing.T) {
	sales := []models.Sale{agentSale("ghost", testNow)}
	assert.Empty(t, activeAgents(nil, sales, testNow, eat))
}

func TestMonthBoundaries(t *testing.T) {
	// 22:00 UTC on Feb 29 is already March in East Africa.
	lateFeb := time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC)
	assert.True(t, inMonth(lateFeb, testNow, eat))
	assert.False(t, inMonth(lateFeb, testNow, time.UTC))

	jan := time.Date(2024, 1, 10, 12, 0, 0, 0, eat)
	prev := previousMonth(jan, eat)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, eat), prev)
	assert.Equal(t, "2023-12", PeriodOf(prev, eat))

	// March 31 minus a month must not overflow into March again.
	endOfMarch := time.Date(2024, 3, 31, 23, 0, 0, 0, eat)
	assert.Equal(t, "2024-02", PeriodOf(previousMonth(endOfMarch, eat), eat))
}

func TestAgentMonthlyFiguresAcrossYear(t *testing.T) {
	ref := time.Date(2024, 1, 10, 12, 0, 0, 0, eat)
	sales := []models.Sale{
		agentSale("a1", time.Date(2024, 1, 2, 8, 0, 0, 0, eat)),
		agentSale("a1", time.Date(2023, 12, 31, 20, 0, 0, 0, eat)),
		agentSale("a1", time.Date(2023, 12, 1, 0, 0, 0, 0, eat)),
		agentSale("a1", time.Date(2023, 11, 30, 23, 59, 0, 0, eat)),
		agentSale("a2", time.Date(2024, 1, 3, 8, 0, 0, 0, eat)),
	}
	holder := "a1"
	stock := []models.StockUnit{
		{Status: models.StockInHand, AssignedToAgentID: &holder},
		{Status: models.StockInHand, AssignedToAgentID: &holder},
		{Status: models.StockSold, AssignedToAgentID: &holder},
		{Status: models.StockInStore},
	}

	f := AgentMonthlyFigures("a1", sales, stock, ref, eat)
	assert.Equal(t, "a1", f.AgentID)
	assert.Equal(t, 1, f.ThisMonthSales)
	assert.Equal(t, 2, f.LastMonthSales)
	assert.Equal(t, 2, f.StockAvailable)
}

func TestParsePeriod(t *testing.T) {
	start, err := ParsePeriod("2024-02", eat)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, eat), start)

	for _, bad := range []string{"", "2024-2", "2024/02", "2024-13", "Feb 2024"} {
		_, err := ParsePeriod(bad, eat)
		assert.ErrorIs(t, err, utils.ErrValidation, bad)
	}
}

func TestRegionalRollup(t *testing.T) {
	coast, north := "r-coast", "r-north"
	regions := []models.Region{
		{ID: north, Name: "Northern"},
		{ID: coast, Name: "Coast"},
		{ID: "r-empty", Name: "Lake"},
	}
	ghostRegion := "r-deleted"
	agents := []models.Agent{
		{ID: "a1", RegionID: &coast},
		{ID: "a2", RegionID: &coast},
		{ID: "a3", RegionID: &north},
		{ID: "a4"},
		{ID: "a5", RegionID: &ghostRegion},
	}
	sales := []models.Sale{
		agentSale("a1", time.Date(2024, 3, 1, 9, 0, 0, 0, eat)),
		agentSale("a1", time.Date(2024, 1, 1, 9, 0, 0, 0, eat)),
		agentSale("a3", time.Date(2023, 11, 1, 9, 0, 0, 0, eat)),
		agentSale("a4", time.Date(2024, 3, 2, 9, 0, 0, 0, eat)),
		{SaleDate: testNow, SaleType: models.SaleDVS},
	}

	rows := RegionalRollup(regions, agents, sales, testNow, eat)
	require.Len(t, rows, 5)

	names := []string{}
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Coast", "Lake", "Northern", "Unassigned", "Total"}, names)

	assert.Equal(t, models.RegionRollup{Kind: models.RollupRegion, RegionID: &coast, Name: "Coast",
		AgentCount: 2, ActiveAgentCount: 1, InactiveAgentCount: 1, SalesCount: 2}, rows[0])
	assert.Equal(t, 0, rows[1].AgentCount)
	assert.Equal(t, 1, rows[2].InactiveAgentCount)
	assert.Equal(t, 1, rows[2].SalesCount)

	unassigned := rows[3]
	assert.Equal(t, models.RollupUnassigned, unassigned.Kind)
	assert.Nil(t, unassigned.RegionID)
	assert.Equal(t, 2, unassigned.AgentCount)
	assert.Equal(t, 1, unassigned.ActiveAgentCount)

	total := rows[4]
	assert.Equal(t, models.RollupTotal, total.Kind)
	assert.Equal(t, len(agents), total.AgentCount)
	assert.Equal(t, 2, total.ActiveAgentCount)
	assert.Equal(t, 4, total.SalesCount)
	for _, r := range rows {
		assert.Equal(t, r.AgentCount, r.ActiveAgentCount+r.InactiveAgentCount, r.Name)
	}
}

func TestRegionalRollupWithoutUnassignedAgents(t *testing.T) {
	region := "r1"
	rows := RegionalRollup(
		[]models.Region{{ID: region, Name: "Dar"}},
		[]models.Agent{{ID: "a1", RegionID: &region}},
		nil, testNow, eat,
	)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dar", rows[0].Name)
	assert.Equal(t, models.RollupTotal, rows[1].Kind)
	assert.Equal(t, 1, rows[1].InactiveAgentCount)
}

func metricNames(r models.ChannelReport) []string {
	names := make([]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		names = append(names, m.Name)
	}
	return names
}

func funnelFixture() ([]models.Agent, []models.Sale) {
	agents := []models.Agent{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	sales := []models.Sale{
		agentSale("a1", time.Date(2024, 3, 1, 9, 0, 0, 0, eat)),
		agentSale("a1", time.Date(2024, 3, 2, 9, 0, 0, 0, eat)),
		agentSale("a2", time.Date(2024, 3, 3, 9, 0, 0, 0, eat)),
		agentSale("a3", time.Date(2024, 2, 10, 9, 0, 0, 0, eat)),
		{SaleDate: time.Date(2024, 3, 4, 9, 0, 0, 0, eat), SaleType: models.SaleDVS},
	}
	return agents, sales
}

func TestChannelFunnelWithoutPriorPeriod(t *testing.T) {
	agents, sales := funnelFixture()
	r := ChannelFunnel(agents, sales, nil, false, testNow, eat)

	assert.Equal(t, "2024-03", r.Period)
	assert.False(t, r.HasPriorPeriod)
	assert.Equal(t, channelMetricOrder, metricNames(r))
	assert.Equal(t, 2.0, r.Metric(MetricOpeningESP))
	assert.Equal(t, 4.0, r.Metric(MetricSalesTotal))
	assert.Equal(t, 4.0, r.Metric(MetricSalesNew))
	for _, name := range []string{MetricNewESP, MetricExistingESP, MetricChurnedESP, MetricClosingESP,
		MetricSalesExisting, MetricProdNew, MetricProdExisting, MetricProdTotal} {
		assert.Zero(t, r.Metric(name), name)
	}
}

func TestChannelFunnelWithPriorPeriod(t *testing.T) {
	agents, sales := funnelFixture()
	prior := []models.PeriodSnapshot{
		{Period: "2024-02", AgentID: "a1", SalesCount: 3},
		{Period: "2024-02", AgentID: "a3", SalesCount: 1},
	}
	r := ChannelFunnel(agents, sales, prior, true, testNow, eat)

	assert.True(t, r.HasPriorPeriod)
	assert.Equal(t, channelMetricOrder, metricNames(r))
	assert.Equal(t, 1.0, r.Metric(MetricNewESP))
	assert.Equal(t, 1.0, r.Metric(MetricExistingESP))
	assert.Equal(t, 1.0, r.Metric(MetricChurnedESP))
	assert.Equal(t, 2.0, r.Metric(MetricClosingESP))
	assert.Equal(t, r.Metric(MetricClosingESP), r.Metric(MetricNewESP)+r.Metric(MetricExistingESP))
	assert.Equal(t, float64(len(prior))-r.Metric(MetricExistingESP), r.Metric(MetricChurnedESP))

	assert.Equal(t, 1.0, r.Metric(MetricSalesNew))
	assert.Equal(t, 2.0, r.Metric(MetricSalesExisting))
	assert.Equal(t, 4.0, r.Metric(MetricSalesTotal))
	assert.Equal(t, 1.0, r.Metric(MetricProdNew))
	assert.Equal(t, 2.0, r.Metric(MetricProdExisting))
	assert.Equal(t, 2.0, r.Metric(MetricProdTotal))
}

func TestChannelFunnelEmptyMonth(t *testing.T) {
	r := ChannelFunnel(nil, nil, []models.PeriodSnapshot{{AgentID: "a1"}}, true, testNow, eat)
	assert.Equal(t, 1.0, r.Metric(MetricChurnedESP))
	assert.Zero(t, r.Metric(MetricProdTotal))
	assert.Len(t, r.Metrics, len(channelMetricOrder))
}

func TestTopAgentsAndRecentSales(t *testing.T) {
	agents := []models.Agent{
		{ID: "a1", Status: models.AgentActive, TotalSales: 3},
		{ID: "a2", Status: models.AgentInactive, TotalSales: 50},
		{ID: "a3", Status: models.AgentActive, TotalSales: 9},
		{ID: "a4", Status: models.AgentActive, TotalSales: 1},
	}
	top := TopAgents(agents, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a3", top[0].ID)
	assert.Equal(t, "a1", top[1].ID)

	sales := []models.Sale{
		{ID: "s1", SaleDate: time.Date(2024, 3, 1, 0, 0, 0, 0, eat)},
		{ID: "s2", SaleDate: time.Date(2024, 3, 9, 0, 0, 0, 0, eat)},
		{ID: "s3", SaleDate: time.Date(2024, 3, 5, 0, 0, 0, 0, eat)},
	}
	recent := RecentSales(sales, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "s2", recent[0].ID)
	assert.Equal(t, "s3", recent[1].ID)
	assert.Equal(t, "s1", sales[0].ID)

	stats := SaleStatsOf([]models.Sale{{IsPaid: true}, {}, {}})
	assert.Equal(t, models.SaleStats{Total: 3, Paid: 1, Unpaid: 2}, stats)
}
