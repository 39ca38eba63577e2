package repository

import (
	"testing"

	"akppos/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDecrementStockTx_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1.*WHERE .*id = \$\d+ AND tenant_id = \$\d+ AND stock >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DecrementStockTx(db, uuid.New(), uuid.New(), 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStockTx_GuardRejects(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	// The stock >= qty predicate matched nothing: a concurrent sale got there first.
	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DecrementStockTx(db, uuid.New(), uuid.New(), 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindForUpdateTx_LocksInIDOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	tenant := uuid.New()
	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "category_id", "name", "price", "stock", "is_active"}).
		AddRow(id.String(), tenant.String(), uuid.NewString(), "Cola", "1.50", 10, true)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE .*tenant_id = \$1 AND id IN \(\$2\).* ORDER BY id ASC FOR UPDATE`).
		WillReturnRows(rows)

	products, err := repo.FindForUpdateTx(db, tenant, []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, id, products[0].ID)
	assert.Equal(t, 10, products[0].Stock)
	assert.Equal(t, "1.5", products[0].Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStockTx_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "stock"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStockTx(db, uuid.New(), uuid.New(), 20)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivate_ScopedByTenant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "is_active"=\$1.*WHERE .*tenant_id = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(t.Context(), uuid.New(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTx_WritesOnlyNamedColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "price"=\$1,"updated_at"=\$2 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &model.Product{ID: uuid.New(), TenantID: uuid.New(), Name: "stale name", Price: decimal.RequireFromString("1.75")}
	require.NoError(t, repo.UpdateTx(db, p, []string{"price"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTx_RejectsNonMetadataColumn(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	err := repo.UpdateTx(db, &model.Product{ID: uuid.New(), TenantID: uuid.New()}, []string{"stock"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
