package counter_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/counter"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestRepository_GetNextValue(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	assert.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO entity_counters")).
		WithArgs("emp-1", counter.TypeShift).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(int64(42)))

	got, err := counter.NewRepository(db).GetNextValue(context.Background(), "emp-1", counter.TypeShift)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftReference(t *testing.T) {
	assert.Equal(t, "SHF-000123", counter.ShiftReference(123))
	assert.Equal(t, "SHF-1234567", counter.ShiftReference(1234567))
}
