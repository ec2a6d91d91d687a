package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	migrations, err := Migrations().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "0001_orders.sql", migrations[0].Id)
	assert.Equal(t, "0002_order_numbers.sql", migrations[1].Id)

	up := strings.Join(migrations[1].Up, "\n")
	assert.Contains(t, up, "CREATE TABLE sc_order_number")
	assert.Contains(t, up, "MAX(number_seq)")
	assert.NotEmpty(t, migrations[1].Down)
}
