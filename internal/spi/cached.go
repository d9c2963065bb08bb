package spi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/scaflow/internal/cache"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
)

// CachedConnector decora un Connector memoizando ListAvailableMethods: la
// lista de métodos de un PSU cambia poco y el TPP suele pedirla varias veces
// durante un mismo flujo. El resto de las operaciones pasan directo; nunca se
// cachean veredictos de autenticación ni ejecuciones.
type CachedConnector struct {
	Connector
	cache cache.Client
	ttl   time.Duration
}

// NewCachedConnector envuelve inner con un cache de métodos SCA.
// ttl 0 usa 2 minutos.
func NewCachedConnector(inner Connector, c cache.Client, ttl time.Duration) *CachedConnector {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CachedConnector{Connector: inner, cache: c, ttl: ttl}
}

func methodsKey(data ContextData) string {
	return fmt.Sprintf("sca-methods:%s:%s:%s", data.Type, data.ParentID, data.PsuData.PsuID)
}

func (c *CachedConnector) ListAvailableMethods(ctx context.Context, data ContextData) (*AvailableMethodsResult, error) {
	key := methodsKey(data)

	if raw, err := c.cache.Get(ctx, key); err == nil {
		var res AvailableMethodsResult
		if json.Unmarshal([]byte(raw), &res) == nil {
			return &res, nil
		}
		// Entrada corrupta: se descarta y se repuebla.
		_ = c.cache.Delete(ctx, key)
	}

	res, err := c.Connector.ListAvailableMethods(ctx, data)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(res); err == nil {
		if err := c.cache.Set(ctx, key, string(raw), c.ttl); err != nil {
			logger.From(ctx).Warn("sca method cache write failed", logger.Err(err))
		}
	}
	return res, nil
}
