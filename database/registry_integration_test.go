//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/diagnostics"
	"github.com/gaborage/go-tables/database/table"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
	"github.com/gaborage/go-tables/testing/containers"
)

func TestRegistryIntegration(t *testing.T) {
	tests := []struct {
		name   string
		start  func(context.Context, *testing.T) *config.ConnectionConfig
		create string
	}{
		{
			name:   "mysql",
			start:  containers.StartMySQL,
			create: "CREATE TABLE products (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64), price DECIMAL(10,2))",
		},
		{
			name:   "postgresql",
			start:  containers.StartPostgreSQL,
			create: "CREATE TABLE products (id SERIAL PRIMARY KEY, name VARCHAR(64), price NUMERIC(10,2))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := tt.start(ctx, t)
			cfg.Charset = "UTF8"

			diag := diagnostics.New()
			reg := NewRegistry(nil, logger.Nop(), Options{Diagnostics: diag})
			defer reg.Close()

			conn, err := reg.Open(ctx, "it", cfg)
			require.NoError(t, err)
			require.NoError(t, conn.Health(ctx))

			_, err = conn.Session().Exec(ctx, tt.create)
			require.NoError(t, err)

			products, err := conn.Table("products")
			require.NoError(t, err)

			for _, row := range []map[string]any{
				{"name": "lamp", "price": 19.5},
				{"name": "desk", "price": 120},
				{"name": "chair", "price": 45.25},
			} {
				products.Insert(ctx, row, func(res table.ExecResult, err error) {
					require.NoError(t, err)
					assert.EqualValues(t, 1, res.Affected)
				})
			}

			var rows []types.Row
			products.Select("name", "price").
				FilterOp("price", ">", 40).
				Order("price", "DESC").
				FormatNumber("price", table.NumberFormat{Decimals: 1, DecimalSep: ",", ThousandsSep: "."}).
				Execute(ctx, func(r []types.Row, err error) {
					require.NoError(t, err)
					rows = r
				})
			require.Len(t, rows, 2)
			assert.Equal(t, "desk", rows[0].Get("name"))
			assert.Equal(t, "120,0", rows[0].Get("price"))
			assert.Equal(t, "chair", rows[1].Get("name"))

			products.Update(ctx, map[string]any{"price": 99}, map[string]any{"name": "desk"}, 1, func(res table.ExecResult, err error) {
				require.NoError(t, err)
				assert.EqualValues(t, 1, res.Affected)
			})
			assert.True(t, products.Exists(ctx, map[string]any{"name": "desk", "price": 99}))

			products.Delete(ctx, map[string]any{"name": "lamp"}, 1, func(res table.ExecResult, err error) {
				require.NoError(t, err)
				assert.EqualValues(t, 1, res.Affected)
			})
			assert.False(t, products.Exists(ctx, map[string]any{"name": "lamp"}))

			for _, e := range diag.List() {
				assert.Empty(t, e.Error, e.Statement)
			}
		})
	}
}
