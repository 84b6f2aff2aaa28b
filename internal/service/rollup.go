package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// Channel funnel metric names, in display order.
const (
	MetricOpeningESP     = "Opening ESP Count"
	MetricNewESP         = "New ESP Count"
	MetricExistingESP    = "Existing ESP Count"
	MetricChurnedESP     = "Churned ESP Count"
	MetricClosingESP     = "Closing ESP Count"
	MetricSalesNew       = "Sales (New ESP)"
	MetricSalesExisting  = "Sales (Existing ESP)"
	MetricSalesTotal     = "Sales (Total ESP)"
	MetricProdNew        = "Prod/ESP (New ESP)"
	MetricProdExisting   = "Prod/ESP (Existing ESP)"
	MetricProdTotal      = "Prod/ESP (Total ESP)"
	unassignedRegionName = "Unassigned"
	totalRegionName      = "Total"
)

var channelMetricOrder = []string{
	MetricOpeningESP,
	MetricNewESP,
	MetricExistingESP,
	MetricChurnedESP,
	MetricClosingESP,
	MetricSalesNew,
	MetricSalesExisting,
	MetricSalesTotal,
	MetricProdNew,
	MetricProdExisting,
	MetricProdTotal,
}

// inMonth reports whether t falls in ref's calendar month, both read in loc.
func inMonth(t, ref time.Time, loc *time.Location) bool {
	t, ref = t.In(loc), ref.In(loc)
	return t.Year() == ref.Year() && t.Month() == ref.Month()
}

// monthStart returns midnight of the first day of ref's month in loc.
func monthStart(ref time.Time, loc *time.Location) time.Time {
	ref = ref.In(loc)
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
}

// previousMonth returns the start of the month before ref. January rolls
// back to December of the previous year.
func previousMonth(ref time.Time, loc *time.Location) time.Time {
	return monthStart(ref, loc).AddDate(0, -1, 0)
}

// PeriodOf formats the month containing t as YYYY-MM.
func PeriodOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(models.PeriodLayout)
}

// ParsePeriod parses YYYY-MM into the start of that month in loc.
func ParsePeriod(period string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(models.PeriodLayout, period, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: period must be YYYY-MM", utils.ErrValidation)
	}
	return t, nil
}

// activeAgents returns the ids of known agents with a sale in ref's month.
func activeAgents(agents []models.Agent, sales []models.Sale, ref time.Time, loc *time.Location) map[string]bool {
	known := make(map[string]bool, len(agents))
	for _, a := range agents {
		known[a.ID] = true
	}
	active := map[string]bool{}
	for _, s := range sales {
		if s.AgentID != nil && known[*s.AgentID] && inMonth(s.SaleDate, ref, loc) {
			active[*s.AgentID] = true
		}
	}
	return active
}

// RegionalRollup builds one row per region ordered by name, an Unassigned row
// when some agent has no known region, and a closing Total row. Activity is
// measured in ref's month, sales counts are all-time.
func RegionalRollup(regions []models.Region, agents []models.Agent, sales []models.Sale, ref time.Time, loc *time.Location) []models.RegionRollup {
	sorted := make([]models.Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([]models.RegionRollup, 0, len(sorted)+2)
	index := make(map[string]int, len(sorted))
	for _, r := range sorted {
		id := r.ID
		index[r.ID] = len(rows)
		rows = append(rows, models.RegionRollup{Kind: models.RollupRegion, RegionID: &id, Name: r.Name})
	}

	unassigned := models.RegionRollup{Kind: models.RollupUnassigned, Name: unassignedRegionName}
	active := activeAgents(agents, sales, ref, loc)

	salesByAgent := map[string]int{}
	for _, s := range sales {
		if s.AgentID != nil {
			salesByAgent[*s.AgentID]++
		}
	}

	for _, a := range agents {
		row := &unassigned
		if a.RegionID != nil {
			if i, ok := index[*a.RegionID]; ok {
				row = &rows[i]
			}
		}
		row.AgentCount++
		if active[a.ID] {
			row.ActiveAgentCount++
		} else {
			row.InactiveAgentCount++
		}
		row.SalesCount += salesByAgent[a.ID]
	}

	if unassigned.AgentCount > 0 {
		rows = append(rows, unassigned)
	}

	total := models.RegionRollup{Kind: models.RollupTotal, Name: totalRegionName}
	for _, r := range rows {
		total.AgentCount += r.AgentCount
		total.ActiveAgentCount += r.ActiveAgentCount
		total.InactiveAgentCount += r.InactiveAgentCount
		total.SalesCount += r.SalesCount
	}
	return append(rows, total)
}

// ChannelFunnel computes the ESP funnel for ref's month. prior holds the
// snapshot of the previous month and is only consulted when hasPrior is set.
func ChannelFunnel(agents []models.Agent, sales []models.Sale, prior []models.PeriodSnapshot, hasPrior bool, ref time.Time, loc *time.Location) models.ChannelReport {
	cur := activeAgents(agents, sales, ref, loc)

	var monthSales []models.Sale
	for _, s := range sales {
		if inMonth(s.SaleDate, ref, loc) {
			monthSales = append(monthSales, s)
		}
	}

	values := map[string]float64{
		MetricOpeningESP: float64(len(cur)),
		MetricSalesTotal: float64(len(monthSales)),
	}

	if !hasPrior {
		values[MetricSalesNew] = float64(len(monthSales))
	} else {
		prev := make(map[string]bool, len(prior))
		for _, p := range prior {
			prev[p.AgentID] = true
		}

		var newCount, existing, churned int
		for id := range cur {
			if prev[id] {
				existing++
			} else {
				newCount++
			}
		}
		for id := range prev {
			if !cur[id] {
				churned++
			}
		}

		var salesNew, salesExisting int
		for _, s := range monthSales {
			if s.AgentID == nil || !cur[*s.AgentID] {
				continue
			}
			if prev[*s.AgentID] {
				salesExisting++
			} else {
				salesNew++
			}
		}

		values[MetricNewESP] = float64(newCount)
		values[MetricExistingESP] = float64(existing)
		values[MetricChurnedESP] = float64(churned)
		values[MetricClosingESP] = float64(len(cur))
		values[MetricSalesNew] = float64(salesNew)
		values[MetricSalesExisting] = float64(salesExisting)
		values[MetricProdNew] = ratio(salesNew, newCount)
		values[MetricProdExisting] = ratio(salesExisting, existing)
		values[MetricProdTotal] = ratio(len(monthSales), len(cur))
	}

	report := models.ChannelReport{
		Period:         PeriodOf(ref, loc),
		HasPriorPeriod: hasPrior,
		Metrics:        make([]models.ChannelMetric, 0, len(channelMetricOrder)),
	}
	for _, name := range channelMetricOrder {
		report.Metrics = append(report.Metrics, models.ChannelMetric{Name: name, Value: values[name]})
	}
	return report
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// AgentMonthlyFigures counts an agent's sales in ref's month and the month
// before, and the units currently in its hands.
func AgentMonthlyFigures(agentID string, sales []models.Sale, stock []models.StockUnit, ref time.Time, loc *time.Location) models.AgentFigures {
	f := models.AgentFigures{AgentID: agentID}
	last := previousMonth(ref, loc)
	for _, s := range sales {
		if !s.HasAgent(agentID) {
			continue
		}
		switch {
		case inMonth(s.SaleDate, ref, loc):
			f.ThisMonthSales++
		case inMonth(s.SaleDate, last, loc):
			f.LastMonthSales++
		}
	}
	for _, u := range stock {
		if u.Status == models.StockInHand && u.AssignedToAgentID != nil && *u.AssignedToAgentID == agentID {
			f.StockAvailable++
		}
	}
	return f
}

// SaleStatsOf counts sales by payment state.
func SaleStatsOf(sales []models.Sale) models.SaleStats {
	st := models.SaleStats{Total: len(sales)}
	for _, s := range sales {
		if s.IsPaid {
			st.Paid++
		}
	}
	st.Unpaid = st.Total - st.Paid
	return st
}

// TopAgents returns up to n active agents with the highest total_sales.
func TopAgents(agents []models.Agent, n int) []models.Agent {
	top := []models.Agent{}
	for _, a := range agents {
		if a.IsActive() {
			top = append(top, a)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].TotalSales > top[j].TotalSales })
	if len(top) > n {
		top = top[:n]
	}
	return top
}

// RecentSales returns the n most recent sales.
func RecentSales(sales []models.Sale, n int) []models.Sale {
	recent := make([]models.Sale, len(sales))
	copy(recent, sales)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].SaleDate.After(recent[j].SaleDate) })
	if len(recent) > n {
		recent = recent[:n]
	}
	return recent
}
