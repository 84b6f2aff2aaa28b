package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

const searchAgentLimit = 5

// SearchService resolves a free-text query against stock codes and agents.
type SearchService struct {
	stock  repository.StockStore
	sales  repository.SaleStore
	agents repository.AgentStore
}

// NewSearchService constructs a SearchService.
func NewSearchService(stock repository.StockStore, sales repository.SaleStore, agents repository.AgentStore) *SearchService {
	return &SearchService{stock: stock, sales: sales, agents: agents}
}

// Search returns the unit whose smartcard or serial equals query (with its
// sale when sold) and up to five agents whose name or phone contains it.
func (s *SearchService) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	result := &models.SearchResult{Agents: []models.Agent{}}
	q := strings.TrimSpace(query)
	if q == "" {
		return result, nil
	}

	unit, err := s.stock.FindByCode(ctx, q)
	switch {
	case err == nil:
		hit := &models.StockHit{StockUnit: *unit}
		if unit.Status == models.StockSold {
			sale, err := s.sales.GetByInventoryID(ctx, unit.ID)
			if err != nil && !errors.Is(err, utils.ErrNotFound) {
				return nil, unavailable(err)
			}
			hit.Sale = sale
		}
		result.StockUnit = hit
	case !errors.Is(err, utils.ErrNotFound):
		return nil, unavailable(err)
	}

	agents, err := s.agents.Search(ctx, q, searchAgentLimit)
	if err != nil {
		return nil, unavailable(err)
	}
	result.Agents = agents
	return result, nil
}

func unavailable(err error) error {
	if errors.Is(err, utils.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", utils.ErrStoreUnavailable, err)
}
