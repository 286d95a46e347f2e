package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-mastery/internal/data/db"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-mastery/internal/platform/redisx"
	"github.com/yungbote/neurobridge-mastery/internal/realtime/bus"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx"
)

// Clients holds the infrastructure connections. Redis, Neo4j and Temporal are
// optional and stay nil when unconfigured.
type Clients struct {
	DB       *db.Service
	Redis    *goredis.Client
	Neo4j    *neo4jdb.Client
	Temporal temporalsdkclient.Client
	Bus      bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, withTemporal bool) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	dbs, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	c.DB = dbs

	rdb, err := redisx.New(ctx, log, cfg.Redis)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("init redis: %w", err)
	}
	c.Redis = rdb

	if rdb != nil {
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		c.Bus = b
	} else {
		c.Bus = bus.NewMemoryBus()
	}

	nc, err := neo4jdb.New(ctx, log, cfg.Neo4j)
	if err != nil {
		// The graph mirror is best effort; the engine runs without it.
		log.Warn("neo4j unavailable; graph mirror disabled", "error", err)
		nc = nil
	}
	c.Neo4j = nc

	if withTemporal && cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("init temporal: %w", err)
		}
		c.Temporal = tc
	}
	return c, nil
}

// redisUniversal avoids handing a typed-nil client to interfaces.
func (c *Clients) redisUniversal() goredis.UniversalClient {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.Redis
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
