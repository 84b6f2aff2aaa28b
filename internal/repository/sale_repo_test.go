package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

var saleCols = []string{
	"id", "inventory_id", "agent_id", "sale_date", "sale_type", "package_type", "sale_price",
	"customer_name", "customer_phone", "is_paid", "created_at",
	"i_id", "i_smartcard", "i_serial", "i_type", "i_status",
	"a_id", "a_name", "a_phone", "a_status",
}

func TestSaleGetByInventoryIDExpands(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSaleRepository(db)
	now := time.Now()

	mock.ExpectQuery(`WHERE s.inventory_id = \$1`).
		WithArgs("unit-1").
		WillReturnRows(sqlmock.NewRows(saleCols).AddRow(
			"sale-1", "unit-1", "agent-1", now, "normal", "compact", "68000.00",
			"Neema", nil, false, now,
			"unit-1", "SC-1", "SN-1", "full_set", "sold",
			"agent-1", "Asha", nil, "active",
		))

	sale, err := repo.GetByInventoryID(context.Background(), "unit-1")
	require.NoError(t, err)
	assert.True(t, sale.SalePrice.Valid)
	assert.True(t, sale.SalePrice.Decimal.Equal(decimal.NewFromInt(68000)))
	require.NotNil(t, sale.Inventory)
	assert.Equal(t, models.StockSold, sale.Inventory.Status)
	require.NotNil(t, sale.Agent)
	assert.Equal(t, "Asha", sale.Agent.Name)
}

func TestSaleListPaidFilterAndLimit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSaleRepository(db)
	paid := false

	mock.ExpectQuery(`AND s.is_paid = \$1 ORDER BY s.sale_date DESC LIMIT \$2`).
		WithArgs(false, 5).
		WillReturnRows(sqlmock.NewRows(saleCols))

	sales, err := repo.List(context.Background(), SaleFilter{Paid: &paid, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestSaleCreateDuplicateUnit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSaleRepository(db)

	mock.ExpectQuery(`INSERT INTO sales`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "sales_inventory_id_key"})

	err := repo.Create(context.Background(), &models.Sale{InventoryID: "unit-1", SaleDate: time.Now()})
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestSaleUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSaleRepository(db)

	mock.ExpectQuery(`UPDATE sales`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	err := repo.Update(context.Background(), &models.Sale{ID: "sale-404"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
