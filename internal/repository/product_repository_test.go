package repository

import (
	"context"
	"testing"

	"delivery_api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"Pizza", `%pizza%`},
		{"%", `%\%%`},
		{"50%_off", `%50\%\_off%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.search))
		})
	}
}

func TestProductList_SearchIsLiteral(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`LOWER\(products.name\) LIKE \$\d+ OR LOWER\(products.description\) LIKE \$\d+`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), `%\%%`, `%\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	products, err := repo.List(context.Background(), models.ProductFilter{Search: " % "})

	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}
