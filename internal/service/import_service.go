package service

import (
	"strings"
)

// StockRow is one parsed line of a stock import.
type StockRow struct {
	Smartcard    string  `json:"smartcard"`
	SerialNumber string  `json:"serialNumber"`
	BatchNumber  *string `json:"batchNumber,omitempty"`
}

// AgentRow is one parsed line of an agent import.
type AgentRow struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// splitImport breaks text into trimmed, unquoted fields per line and drops
// the first line when it looks like a header carrying headerWord.
func splitImport(text, headerWord string) [][]string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if strings.Contains(strings.ToLower(lines[0]), headerWord) {
		lines = lines[1:]
	}

	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(strings.TrimRight(line, "\r"), ",")
		for i, f := range fields {
			fields[i] = strings.ReplaceAll(strings.TrimSpace(f), `"`, "")
		}
		records = append(records, fields)
	}
	return records
}

func field(fields []string, i int) *string {
	if i >= len(fields) || fields[i] == "" {
		return nil
	}
	v := fields[i]
	return &v
}

// ParseStockImport reads "smartcard,serial_number[,batch_number]" lines.
// Lines with fewer than two columns or an empty required value are skipped.
func ParseStockImport(text string) (rows []StockRow, skipped int) {
	for _, f := range splitImport(text, "smartcard") {
		if len(f) < 2 || f[0] == "" || f[1] == "" {
			skipped++
			continue
		}
		rows = append(rows, StockRow{Smartcard: f[0], SerialNumber: f[1], BatchNumber: field(f, 2)})
	}
	return rows, skipped
}

// ParseAgentImport reads "name[,phone[,email]]" lines. Lines without a name
// are skipped.
func ParseAgentImport(text string) (rows []AgentRow, skipped int) {
	for _, f := range splitImport(text, "name") {
		if f[0] == "" {
			skipped++
			continue
		}
		rows = append(rows, AgentRow{Name: f[0], Phone: field(f, 1), Email: field(f, 2)})
	}
	return rows, skipped
}
