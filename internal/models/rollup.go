package models

// RollupKind distinguishes real regions from the synthetic rows.
type RollupKind string

const (
	RollupRegion     RollupKind = "region"
	RollupUnassigned RollupKind = "unassigned"
	RollupTotal      RollupKind = "total"
)

// RegionRollup is one row of the regional performance table.
type RegionRollup struct {
	Kind               RollupKind `json:"kind"`
	RegionID           *string    `json:"regionId,omitempty"`
	Name               string     `json:"name"`
	AgentCount         int        `json:"agentCount"`
	ActiveAgentCount   int        `json:"activeAgentCount"`
	InactiveAgentCount int        `json:"inactiveAgentCount"`
	SalesCount         int        `json:"salesCount"`
}

// ChannelMetric is one named figure of the ESP funnel.
type ChannelMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChannelReport is the ESP funnel for one month.
type ChannelReport struct {
	Period         string          `json:"period"`
	HasPriorPeriod bool            `json:"hasPriorPeriod"`
	Metrics        []ChannelMetric `json:"metrics"`
}

// Metric returns the value of the named metric, or 0.
func (r *ChannelReport) Metric(name string) float64 {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value
		}
	}
	return 0
}

// AgentFigures are the per-agent monthly numbers.
type AgentFigures struct {
	AgentID        string `json:"agentId"`
	LastMonthSales int    `json:"lastMonthSales"`
	ThisMonthSales int    `json:"thisMonthSales"`
	StockAvailable int    `json:"stockAvailable"`
}

// AgentDetail is an agent with its figures and the units it currently holds.
type AgentDetail struct {
	Agent   *Agent       `json:"agent"`
	Figures AgentFigures `json:"figures"`
	InHand  []StockUnit  `json:"inHand"`
}

// Dashboard is the cached landing-page aggregate.
type Dashboard struct {
	Period      string         `json:"period"`
	Stock       StockStats     `json:"stock"`
	Sales       SaleStats      `json:"sales"`
	Regions     []RegionRollup `json:"regions"`
	TopAgents   []Agent        `json:"topAgents"`
	RecentSales []Sale         `json:"recentSales"`
	ActiveESP   int            `json:"activeEsp"`
	TotalAgents int            `json:"totalAgents"`
}
