// Package store elige el driver del record store según la configuración.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/store/memory"
	"github.com/dropDatabas3/scaflow/internal/store/pg"
)

// Config selecciona y parametriza el driver.
type Config struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Postgres struct {
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MinIdleConns    int    `yaml:"min_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
}

// Stores agrupa el repositorio abierto y su cierre.
type Stores struct {
	Repository repository.AuthorisationRepository
	Close      func()
}

// Open abre el record store del driver configurado.
func Open(ctx context.Context, cfg Config) (*Stores, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return &Stores{Repository: memory.New(), Close: func() {}}, nil
	case "postgres", "pg", "postgresql":
		st, err := pg.New(ctx, cfg.DSN, pg.Tuning{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MinIdleConns:    cfg.Postgres.MinIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return &Stores{Repository: st, Close: st.Close}, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
