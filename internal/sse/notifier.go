package sse

import (
	"time"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// Notifier is the interface services use to emit change events.
type Notifier interface {
	NotifyStock(event EventType, unit *models.StockUnit)
	NotifySale(event EventType, sale *models.Sale)
	NotifyAgent(agent *models.Agent)
	NotifyPeriod(closure *models.PeriodClosure)
	NotifyRegion(event EventType, id string)
}

// HubNotifier implements Notifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
	now func() time.Time
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub, now: time.Now}
}

func (n *HubNotifier) NotifyStock(event EventType, unit *models.StockUnit) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:     event,
		EntityID:  unit.ID,
		Status:    string(unit.Status),
		AgentID:   unit.AssignedToAgentID,
		Smartcard: unit.Smartcard,
		Timestamp: n.now(),
	})
}

func (n *HubNotifier) NotifySale(event EventType, sale *models.Sale) {
	if n.hub.ClientCount() == 0 {
		return
	}
	e := &Event{
		Event:     event,
		EntityID:  sale.ID,
		AgentID:   sale.AgentID,
		Timestamp: n.now(),
	}
	if sale.Inventory != nil {
		e.Smartcard = sale.Inventory.Smartcard
	}
	n.hub.Broadcast(e)
}

func (n *HubNotifier) NotifyAgent(agent *models.Agent) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:     EventAgentChanged,
		EntityID:  agent.ID,
		Status:    string(agent.Status),
		Timestamp: n.now(),
	})
}

func (n *HubNotifier) NotifyPeriod(closure *models.PeriodClosure) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:     EventPeriodClosed,
		EntityID:  closure.Period,
		Timestamp: n.now(),
	})
}

func (n *HubNotifier) NotifyRegion(event EventType, id string) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{Event: event, EntityID: id, Timestamp: n.now()})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyStock(EventType, *models.StockUnit) {}
func (NopNotifier) NotifySale(EventType, *models.Sale)       {}
func (NopNotifier) NotifyAgent(*models.Agent)                {}
func (NopNotifier) NotifyPeriod(*models.PeriodClosure)       {}
func (NopNotifier) NotifyRegion(EventType, string)           {}
