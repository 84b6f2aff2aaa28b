package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/gtd_stock/internal/models"
)

const (
	sheetRegions  = "Regional Performance"
	sheetChannel  = "Channel Metrics"
	sheetAgents   = "Agents"
	sheetSales    = "Sales"
	saleDateCells = "2006-01-02 15:04"
)

// MonthlySource computes the rollups a report is built from.
type MonthlySource interface {
	Monthly(ctx context.Context, period string) (*MonthlyRollup, error)
}

// ReportService renders monthly rollups as xlsx workbooks.
type ReportService struct {
	source MonthlySource
}

// NewReportService constructs a ReportService.
func NewReportService(source MonthlySource) *ReportService {
	return &ReportService{source: source}
}

// Monthly builds the workbook for period and returns it with the resolved
// period.
func (s *ReportService) Monthly(ctx context.Context, period string) ([]byte, string, error) {
	m, err := s.source.Monthly(ctx, period)
	if err != nil {
		return nil, "", err
	}
	data, err := BuildWorkbook(m)
	if err != nil {
		return nil, "", err
	}
	return data, m.Period, nil
}

// BuildWorkbook writes the four report sheets.
func BuildWorkbook(m *MonthlyRollup) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetRegions); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range []string{sheetChannel, sheetAgents, sheetSales} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	regions := [][]any{{"Region", "Agents", "Active", "Inactive", "Sales"}}
	for _, r := range m.Regions {
		regions = append(regions, []any{r.Name, r.AgentCount, r.ActiveAgentCount, r.InactiveAgentCount, r.SalesCount})
	}

	channel := [][]any{{"Metric", m.Period}}
	for _, metric := range m.Channel.Metrics {
		channel = append(channel, []any{metric.Name, metric.Value})
	}
	if !m.Channel.HasPriorPeriod {
		channel = append(channel, []any{}, []any{"Previous month not closed; churn figures are zero."})
	}

	agents := [][]any{{"Agent", "Phone", "Region", "Status", "Total Sales", "Last Month", "This Month", "Stock Available"}}
	for _, a := range m.Agents {
		region := ""
		if a.Agent.Region != nil {
			region = a.Agent.Region.Name
		}
		agents = append(agents, []any{
			a.Agent.Name, deref(a.Agent.Phone), region, string(a.Agent.Status), a.Agent.TotalSales,
			a.Figures.LastMonthSales, a.Figures.ThisMonthSales, a.Figures.StockAvailable,
		})
	}

	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	sales := [][]any{{"Date", "Smartcard", "Agent", "Type", "Package", "Price", "Paid", "Customer"}}
	for _, sale := range m.Sales {
		smartcard, agent := "", ""
		if sale.Inventory != nil {
			smartcard = sale.Inventory.Smartcard
		}
		if sale.Agent != nil {
			agent = sale.Agent.Name
		}
		var price any = ""
		if sale.SalePrice.Valid {
			price = sale.SalePrice.Decimal.InexactFloat64()
		}
		sales = append(sales, []any{
			sale.SaleDate.In(loc).Format(saleDateCells), smartcard, agent, string(sale.SaleType),
			models.PackageLabel(deref(sale.PackageType)), price, sale.IsPaid, deref(sale.CustomerName),
		})
	}

	for sheet, rows := range map[string][][]any{
		sheetRegions: regions,
		sheetChannel: channel,
		sheetAgents:  agents,
		sheetSales:   sales,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
