package api

import (
	"os"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/db"
	"verbindung/mitgliederamt/internal/db/repositories"
	"verbindung/mitgliederamt/internal/logging"
	"verbindung/mitgliederamt/internal/metrics"
	"verbindung/mitgliederamt/internal/providers"
	"verbindung/mitgliederamt/internal/services"
)

type Repositories struct {
	Member     *repositories.MemberRepository
	MemberGorm *repositories.MemberRepositoryGORM
	Ref        *repositories.RefRepository
}

type Services struct {
	Cache  common.CacheInterface
	Groups *services.GroupSyncService
	Engine *services.MemberSyncService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Provider *providers.KeycloakProvider
	Metrics  *metrics.MetricsRegistry
}

func InitDependencies(metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {

	repos := &Repositories{
		Member:     repositories.NewMemberRepository(db.DB),
		MemberGorm: repositories.NewMemberRepositoryGORM(db.PgDB),
		Ref:        repositories.NewRefRepository(db.DB),
	}

	// Redis when configured, in-memory otherwise. Both back the admin token
	// and group-resolution caches.
	var cacheSvc common.CacheInterface
	if os.Getenv("REDIS_HOST") != "" {
		redisSvc, err := common.NewRedisCacheService()
		if err != nil {
			logging.Warn("Redis unavailable, falling back to in-memory cache", "error", err.Error())
			cacheSvc = common.NewCacheService(60, 600)
		} else {
			cacheSvc = redisSvc
		}
	} else {
		cacheSvc = common.NewCacheService(60, 600)
	}

	provider := providers.NewKeycloakProvider(cacheSvc, metricsReg)
	groupSvc := services.NewGroupSyncService(provider, cacheSvc)
	engine := services.NewMemberSyncService(repos.MemberGorm, provider, groupSvc)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:  cacheSvc,
			Groups: groupSvc,
			Engine: engine,
		},
		Provider: provider,
		Metrics:  metricsReg,
	}, nil
}
