package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

var eat = time.FixedZone("EAT", 3*3600)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

// memStore is an in-memory stand-in for the postgres repositories. Execute
// restores the previous state when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	regions   map[string]models.Region
	teams     map[string]models.Team
	agents    map[string]models.Agent
	units     map[string]models.StockUnit
	sales     map[string]models.Sale
	closures  map[string]models.PeriodClosure
	snapshots []models.PeriodSnapshot

	// failSaleCreate, when set, is returned by the next Sales().Create.
	failSaleCreate error
	// beforeAssign runs at the start of Stock().Assign.
	beforeAssign func()
	tick         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		regions:  map[string]models.Region{},
		teams:    map[string]models.Team{},
		agents:   map[string]models.Agent{},
		units:    map[string]models.StockUnit{},
		sales:    map[string]models.Sale{},
		closures: map[string]models.PeriodClosure{},
		tick:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) stamp() time.Time {
	m.tick = m.tick.Add(time.Second)
	return m.tick
}

type memState struct {
	regions   map[string]models.Region
	teams     map[string]models.Team
	agents    map[string]models.Agent
	units     map[string]models.StockUnit
	sales     map[string]models.Sale
	closures  map[string]models.PeriodClosure
	snapshots []models.PeriodSnapshot
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) save() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memState{
		regions:   cloneMap(m.regions),
		teams:     cloneMap(m.teams),
		agents:    cloneMap(m.agents),
		units:     cloneMap(m.units),
		sales:     cloneMap(m.sales),
		closures:  cloneMap(m.closures),
		snapshots: append([]models.PeriodSnapshot(nil), m.snapshots...),
	}
}

func (m *memStore) restore(s memState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions, m.teams, m.agents, m.units = s.regions, s.teams, s.agents, s.units
	m.sales, m.closures, m.snapshots = s.sales, s.closures, s.snapshots
}

func (m *memStore) Execute(ctx context.Context, fn func(scope repository.Scope) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	state := m.save()
	if err := fn(m); err != nil {
		m.restore(state)
		return err
	}
	return nil
}

func (m *memStore) Agents() repository.AgentStore       { return memAgents{m} }
func (m *memStore) Stock() repository.StockStore        { return memStock{m} }
func (m *memStore) Sales() repository.SaleStore         { return memSales{m} }
func (m *memStore) Snapshots() repository.SnapshotStore { return memSnapshots{m} }
func (m *memStore) Regions() repository.RegionStore     { return memRegions{m} }

// regions

type memRegions struct{ m *memStore }

func (r memRegions) ListRegions(context.Context) ([]models.Region, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Region{}
	for _, v := range r.m.regions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memRegions) GetRegion(_ context.Context, id string) (*models.Region, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	v, ok := r.m.regions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &v, nil
}

func (r memRegions) CreateRegion(_ context.Context, region *models.Region) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	region.ID = uuid.NewString()
	region.CreatedAt = r.m.stamp()
	r.m.regions[region.ID] = *region
	return nil
}

func (r memRegions) ListTeams(context.Context) ([]models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Team{}
	for _, v := range r.m.teams {
		out = append(out, v)
	}
	return out, nil
}

func (r memRegions) CreateTeam(_ context.Context, team *models.Team) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	team.ID = uuid.NewString()
	team.CreatedAt = r.m.stamp()
	r.m.teams[team.ID] = *team
	return nil
}

// agents

type memAgents struct{ m *memStore }

func (a memAgents) List(_ context.Context, f repository.AgentFilter) ([]models.Agent, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	out := []models.Agent{}
	for _, v := range a.m.agents {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.RegionID != "" && (v.RegionID == nil || *v.RegionID != f.RegionID) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(v.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (a memAgents) GetByID(_ context.Context, id string) (*models.Agent, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	v, ok := a.m.agents[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &v, nil
}

func (a memAgents) Search(_ context.Context, q string, limit int) ([]models.Agent, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	out := []models.Agent{}
	q = strings.ToLower(q)
	for _, v := range a.m.agents {
		phone := ""
		if v.Phone != nil {
			phone = *v.Phone
		}
		if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(phone, q) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a memAgents) Create(_ context.Context, agent *models.Agent) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if agent.Status == "" {
		agent.Status = models.AgentActive
	}
	agent.ID = uuid.NewString()
	agent.CreatedAt = a.m.stamp()
	agent.UpdatedAt = agent.CreatedAt
	a.m.agents[agent.ID] = *agent
	return nil
}

func (a memAgents) Update(_ context.Context, agent *models.Agent) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if _, ok := a.m.agents[agent.ID]; !ok {
		return utils.ErrNotFound
	}
	agent.UpdatedAt = a.m.stamp()
	a.m.agents[agent.ID] = *agent
	return nil
}

func (a memAgents) SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error) {
	a.m.mu.Lock()
	v, ok := a.m.agents[id]
	if ok {
		v.Status = status
		a.m.agents[id] = v
	}
	a.m.mu.Unlock()
	if !ok {
		return nil, utils.ErrNotFound
	}
	return a.GetByID(ctx, id)
}

func (a memAgents) Delete(_ context.Context, id string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if _, ok := a.m.agents[id]; !ok {
		return utils.ErrNotFound
	}
	for _, u := range a.m.units {
		if u.AssignedToAgentID != nil && *u.AssignedToAgentID == id {
			return utils.ErrReferentialConflict
		}
	}
	for _, s := range a.m.sales {
		if s.HasAgent(id) {
			return utils.ErrReferentialConflict
		}
	}
	delete(a.m.agents, id)
	return nil
}

func (a memAgents) IncrementTotalSales(_ context.Context, id string, delta int) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	v, ok := a.m.agents[id]
	if !ok {
		return utils.ErrNotFound
	}
	v.TotalSales += delta
	a.m.agents[id] = v
	return nil
}

func (a memAgents) ReconcileTotalSales(context.Context) (int64, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	counts := map[string]int{}
	for _, s := range a.m.sales {
		if s.AgentID != nil {
			counts[*s.AgentID]++
		}
	}
	var changed int64
	for id, v := range a.m.agents {
		if v.TotalSales != counts[id] {
			v.TotalSales = counts[id]
			a.m.agents[id] = v
			changed++
		}
	}
	return changed, nil
}

// stock

type memStock struct{ m *memStore }

func (s memStock) expand(u models.StockUnit) *models.StockUnit {
	if u.AssignedToAgentID != nil {
		if a, ok := s.m.agents[*u.AssignedToAgentID]; ok {
			u.Agent = &a
		}
	}
	if u.RegionID != nil {
		if r, ok := s.m.regions[*u.RegionID]; ok {
			u.Region = &r
		}
	}
	return &u
}

func (s memStock) List(_ context.Context, f repository.StockFilter) ([]models.StockUnit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.StockUnit{}
	for _, u := range s.m.units {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.StockType != "" && u.StockType != f.StockType {
			continue
		}
		if f.AgentID != "" && (u.AssignedToAgentID == nil || *u.AssignedToAgentID != f.AgentID) {
			continue
		}
		if f.RegionID != "" && (u.RegionID == nil || *u.RegionID != f.RegionID) {
			continue
		}
		if f.Query != "" && !strings.Contains(u.Smartcard, f.Query) && !strings.Contains(u.SerialNumber, f.Query) {
			continue
		}
		out = append(out, *s.expand(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memStock) GetByID(_ context.Context, id string) (*models.StockUnit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.units[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return s.expand(u), nil
}

func (s memStock) GetByIDForUpdate(_ context.Context, id string) (*models.StockUnit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.units[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &u, nil
}

func (s memStock) FindByCode(_ context.Context, code string) (*models.StockUnit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.units {
		if u.Smartcard == code || u.SerialNumber == code {
			return s.expand(u), nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s memStock) ExistingCodes(_ context.Context, smartcards, serials []string) (map[string]bool, map[string]bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	wantSC, wantSN := map[string]bool{}, map[string]bool{}
	for _, c := range smartcards {
		wantSC[c] = true
	}
	for _, c := range serials {
		wantSN[c] = true
	}
	sc, sn := map[string]bool{}, map[string]bool{}
	for _, u := range s.m.units {
		if wantSC[u.Smartcard] || wantSN[u.SerialNumber] {
			sc[u.Smartcard] = true
			sn[u.SerialNumber] = true
		}
	}
	return sc, sn, nil
}

func (s memStock) Create(_ context.Context, unit *models.StockUnit) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.units {
		if u.Smartcard == unit.Smartcard || u.SerialNumber == unit.SerialNumber {
			return utils.ErrDuplicateStock
		}
	}
	if unit.Status == "" {
		unit.Status = models.StockInStore
	}
	unit.ID = uuid.NewString()
	unit.CreatedAt = s.m.stamp()
	unit.UpdatedAt = unit.CreatedAt
	s.m.units[unit.ID] = *unit
	return nil
}

func (s memStock) transition(ctx context.Context, id string, from models.StockStatus, apply func(u *models.StockUnit)) (*models.StockUnit, error) {
	return s.transitionIf(ctx, id, from, nil, apply)
}

// transitionIf applies the change only while guard, checked under the store
// lock, holds.
func (s memStock) transitionIf(ctx context.Context, id string, from models.StockStatus, guard func() bool, apply func(u *models.StockUnit)) (*models.StockUnit, error) {
	s.m.mu.Lock()
	u, ok := s.m.units[id]
	if !ok || u.Status != from || (guard != nil && !guard()) {
		s.m.mu.Unlock()
		return nil, repository.ErrStaleStatus
	}
	apply(&u)
	u.UpdatedAt = s.m.stamp()
	s.m.units[id] = u
	s.m.mu.Unlock()
	return s.GetByID(ctx, id)
}

func (s memStock) Assign(ctx context.Context, id, agentID string, at time.Time) (*models.StockUnit, error) {
	if s.m.beforeAssign != nil {
		s.m.beforeAssign()
	}
	agentActive := func() bool { return s.m.agents[agentID].Status == models.AgentActive }
	return s.transitionIf(ctx, id, models.StockInStore, agentActive, func(u *models.StockUnit) {
		u.Status = models.StockInHand
		u.AssignedToAgentID = &agentID
		u.AssignedAt = &at
	})
}

func (s memStock) Unassign(ctx context.Context, id string) (*models.StockUnit, error) {
	return s.transition(ctx, id, models.StockInHand, func(u *models.StockUnit) {
		u.Status = models.StockInStore
		u.AssignedToAgentID = nil
		u.AssignedAt = nil
	})
}

func (s memStock) MarkSold(ctx context.Context, id string) (*models.StockUnit, error) {
	return s.transition(ctx, id, models.StockInHand, func(u *models.StockUnit) {
		u.Status = models.StockSold
	})
}

func (s memStock) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.units[id]
	if !ok || u.Status == models.StockSold {
		return repository.ErrStaleStatus
	}
	delete(s.m.units, id)
	return nil
}

func (s memStock) Stats(context.Context) (models.StockStats, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var st models.StockStats
	for _, u := range s.m.units {
		st.Total++
		switch u.Status {
		case models.StockInStore:
			st.InStore++
		case models.StockInHand:
			st.InHand++
		case models.StockSold:
			st.Sold++
		}
		if u.StockType == models.StockFullSet {
			st.FullSet++
		} else {
			st.DecoderOnly++
		}
	}
	return st, nil
}

// sales

type memSales struct{ m *memStore }

func (s memSales) expand(sale models.Sale) *models.Sale {
	if u, ok := s.m.units[sale.InventoryID]; ok {
		sale.Inventory = &u
	}
	if sale.AgentID != nil {
		if a, ok := s.m.agents[*sale.AgentID]; ok {
			sale.Agent = &a
		}
	}
	return &sale
}

func (s memSales) List(_ context.Context, f repository.SaleFilter) ([]models.Sale, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.Sale{}
	for _, sale := range s.m.sales {
		if f.AgentID != "" && !sale.HasAgent(f.AgentID) {
			continue
		}
		if f.SaleType != "" && sale.SaleType != f.SaleType {
			continue
		}
		if f.Paid != nil && sale.IsPaid != *f.Paid {
			continue
		}
		out = append(out, *s.expand(sale))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleDate.After(out[j].SaleDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s memSales) GetByID(_ context.Context, id string) (*models.Sale, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sale, ok := s.m.sales[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return s.expand(sale), nil
}

func (s memSales) GetByInventoryID(_ context.Context, inventoryID string) (*models.Sale, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, sale := range s.m.sales {
		if sale.InventoryID == inventoryID {
			return s.expand(sale), nil
		}
	}
	return nil, utils.ErrNotFound
}

func (s memSales) Create(_ context.Context, sale *models.Sale) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failSaleCreate; err != nil {
		s.m.failSaleCreate = nil
		return err
	}
	for _, existing := range s.m.sales {
		if existing.InventoryID == sale.InventoryID {
			return utils.ErrInvalidTransition
		}
	}
	if sale.SaleType == "" {
		sale.SaleType = models.SaleNormal
	}
	sale.ID = uuid.NewString()
	sale.CreatedAt = s.m.stamp()
	s.m.sales[sale.ID] = *sale
	return nil
}

func (s memSales) Update(_ context.Context, sale *models.Sale) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sales[sale.ID]; !ok {
		return utils.ErrNotFound
	}
	stored := *sale
	stored.Inventory, stored.Agent = nil, nil
	s.m.sales[sale.ID] = stored
	return nil
}

// snapshots

type memSnapshots struct{ m *memStore }

func (s memSnapshots) GetClosure(_ context.Context, period string) (*models.PeriodClosure, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.closures[period]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &c, nil
}

func (s memSnapshots) ListClosures(context.Context) ([]models.PeriodClosure, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.PeriodClosure{}
	for _, c := range s.m.closures {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out, nil
}

func (s memSnapshots) ListByPeriod(_ context.Context, period string) ([]models.PeriodSnapshot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.PeriodSnapshot{}
	for _, snap := range s.m.snapshots {
		if snap.Period == period {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s memSnapshots) CreateClosure(_ context.Context, c *models.PeriodClosure) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.closures[c.Period]; ok {
		return utils.ErrPeriodClosed
	}
	s.m.closures[c.Period] = *c
	return nil
}

func (s memSnapshots) CreateSnapshots(_ context.Context, snaps []models.PeriodSnapshot) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i := range snaps {
		snaps[i].ID = uuid.NewString()
		s.m.snapshots = append(s.m.snapshots, snaps[i])
	}
	return nil
}

func (s memSnapshots) SetArchiveKey(_ context.Context, period, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.closures[period]
	if !ok {
		return utils.ErrNotFound
	}
	c.ArchiveKey = &key
	s.m.closures[period] = c
	return nil
}

// helpers

func (m *memStore) addAgent(name string, status models.AgentStatus, regionID *string) models.Agent {
	a := models.Agent{Name: name, Status: status, RegionID: regionID}
	_ = memAgents{m}.Create(context.Background(), &a)
	return a
}

func (m *memStore) addUnit(smartcard, serial string) models.StockUnit {
	u := models.StockUnit{Smartcard: smartcard, SerialNumber: serial, StockType: models.StockFullSet}
	_ = memStock{m}.Create(context.Background(), &u)
	return u
}

func (m *memStore) addSale(agentID *string, at time.Time) models.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Sale{ID: uuid.NewString(), InventoryID: uuid.NewString(), AgentID: agentID, SaleDate: at, SaleType: models.SaleNormal}
	m.sales[s.ID] = s
	return s
}

func (m *memStore) unitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.units)
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []sse.EventType
}

func (r *recordingNotifier) add(e sse.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) NotifyStock(e sse.EventType, _ *models.StockUnit) { r.add(e) }
func (r *recordingNotifier) NotifySale(e sse.EventType, _ *models.Sale)       { r.add(e) }
func (r *recordingNotifier) NotifyAgent(*models.Agent)                        { r.add(sse.EventAgentChanged) }
func (r *recordingNotifier) NotifyPeriod(*models.PeriodClosure)               { r.add(sse.EventPeriodClosed) }
func (r *recordingNotifier) NotifyRegion(e sse.EventType, _ string)           { r.add(e) }
