package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_stock/internal/config"
	"github.com/GTDGit/gtd_stock/internal/database"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

var regionNames = []string{"Coast", "Lake", "Northern"}

// main fills a development database with regions, agents, stock and sales
// and prints a token for calling the API.
func main() {
	agentCount := flag.Int("agents", 20, "number of agents to create")
	unitCount := flag.Int("units", 120, "number of stock units to create")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	s := &seeder{
		faker:   gofakeit.New(*seed),
		regions: service.NewRegionService(repository.NewRegionRepository(db), sse.NopNotifier{}),
	}
	tx := repository.NewTxScope(db)
	agentRepo := repository.NewAgentRepository(db)
	stockRepo := repository.NewStockRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	now := service.ClockIn(cfg.Location)
	notifier := sse.NopNotifier{}
	s.agents = service.NewAgentService(tx, agentRepo, stockRepo, saleRepo, notifier, now, cfg.PhoneDefaultRegion)
	s.stock = service.NewStockService(tx, stockRepo, agentRepo, notifier, nil, now)
	s.sales = service.NewSaleService(tx, saleRepo, notifier, nil, now)

	if err := s.run(ctx, *agentCount, *unitCount); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	token, err := utils.NewJWTValidator(cfg.JWTSecret).Sign("seed", "seed@localhost", 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(token)
}

type seeder struct {
	faker   *gofakeit.Faker
	regions *service.RegionService
	agents  *service.AgentService
	stock   *service.StockService
	sales   *service.SaleService
}

func (s *seeder) run(ctx context.Context, agentCount, unitCount int) error {
	var regionIDs, teamIDs []string
	for _, name := range regionNames {
		region, err := s.regions.CreateRegion(ctx, &service.CreateRegionRequest{Name: name})
		if err != nil {
			return err
		}
		team, err := s.regions.CreateTeam(ctx, &service.CreateTeamRequest{Name: name + " Team", RegionID: &region.ID})
		if err != nil {
			return err
		}
		regionIDs = append(regionIDs, region.ID)
		teamIDs = append(teamIDs, team.ID)
	}

	agents := make([]*models.Agent, 0, agentCount)
	for i := 0; i < agentCount; i++ {
		req := &service.CreateAgentRequest{
			Name:     s.faker.Name(),
			Phone:    ptr("07" + s.faker.Numerify("########")),
			District: ptr(s.faker.City()),
		}
		// A few agents carry neither team nor region and roll up as Unassigned.
		if i%7 != 6 {
			k := i % len(regionIDs)
			if s.faker.Bool() {
				req.TeamID = &teamIDs[k]
			} else {
				req.RegionID = &regionIDs[k]
			}
		}
		if s.faker.Float64() < 0.1 {
			email := s.faker.Email()
			req.Email = &email
		}
		agent, err := s.agents.Create(ctx, req)
		if err != nil {
			return err
		}
		agents = append(agents, agent)
	}
	log.Info().Int("regions", len(regionIDs)).Int("agents", len(agents)).Msg("agents seeded")

	units, err := s.importUnits(ctx, unitCount, regionIDs)
	if err != nil {
		return err
	}

	packages := models.Packages()
	assigned, sold := 0, 0
	for _, unit := range units {
		if len(agents) == 0 || s.faker.Float64() < 0.3 {
			continue
		}
		agent := agents[s.faker.IntN(len(agents))]
		if _, err := s.stock.Assign(ctx, unit.ID, agent.ID); err != nil {
			return err
		}
		assigned++
		if !s.faker.Bool() {
			continue
		}

		pkg := packages[s.faker.IntN(len(packages))]
		req := &service.RecordSaleRequest{
			InventoryID:   &unit.ID,
			PackageType:   &pkg.Value,
			SalePrice:     decimal.NewNullDecimal(pkg.Price),
			CustomerName:  ptr(s.faker.Name()),
			CustomerPhone: ptr("07" + s.faker.Numerify("########")),
		}
		if _, err := s.sales.Record(ctx, req); err != nil {
			return err
		}
		sold++
	}

	// DVS sales are always entered by hand.
	for i := 0; i < len(agents)/4; i++ {
		agent := agents[s.faker.IntN(len(agents))]
		if agent.Status != models.AgentActive {
			continue
		}
		req := &service.RecordSaleRequest{
			ManualSmartcard: ptr(s.faker.Numerify("##########")),
			ManualSerial:    ptr("SN" + s.faker.Numerify("##########")),
			AgentID:         &agent.ID,
			SaleType:        models.SaleDVS,
			CustomerName:    ptr(s.faker.Name()),
		}
		if _, err := s.sales.Record(ctx, req); err != nil {
			return err
		}
		sold++
	}
	log.Info().Int("units", len(units)).Int("assigned", assigned).Int("sold", sold).Msg("stock seeded")
	return nil
}

// importUnits registers unitCount units, two thirds full sets and the rest
// decoder only, spread over the regions.
func (s *seeder) importUnits(ctx context.Context, unitCount int, regionIDs []string) ([]models.StockUnit, error) {
	batch := "B" + s.faker.Numerify("####")
	byType := map[models.StockType][]service.StockRow{}
	for i := 0; i < unitCount; i++ {
		stockType := models.StockFullSet
		if i%3 == 2 {
			stockType = models.StockDecoderOnly
		}
		byType[stockType] = append(byType[stockType], service.StockRow{
			Smartcard:    s.faker.Numerify("##########"),
			SerialNumber: "SN" + s.faker.Numerify("##########"),
			BatchNumber:  &batch,
		})
	}

	var units []models.StockUnit
	for stockType, rows := range byType {
		if len(rows) == 0 {
			continue
		}
		region := regionIDs[s.faker.IntN(len(regionIDs))]
		result, err := s.stock.BulkCreate(ctx, &service.BulkStockRequest{StockType: stockType, RegionID: &region, Rows: rows})
		if err != nil {
			return nil, err
		}
		units = append(units, result.Items...)
	}
	return units, nil
}

func ptr(s string) *string { return &s }
