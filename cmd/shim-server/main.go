// Command shim-server runs the third-party authorization service: it drives
// users through provider OAuth flows and stores the resulting access
// credentials.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/shimkit/handler"
	"github.com/dmitrymomot/shimkit/pkg/config"
	"github.com/dmitrymomot/shimkit/pkg/httpserver"
	"github.com/dmitrymomot/shimkit/pkg/logger"
	"github.com/dmitrymomot/shimkit/pkg/mongo"
	"github.com/dmitrymomot/shimkit/pkg/mongostore"
	"github.com/dmitrymomot/shimkit/pkg/redis"
	"github.com/dmitrymomot/shimkit/pkg/redisstore"
	"github.com/dmitrymomot/shimkit/pkg/shim"
)

// pendingConfig controls the pending-authorization store. Pending records
// are TTL-eligible; never-completed attempts expire after the window.
type pendingConfig struct {
	Store        string        `env:"PENDING_STORE" envDefault:"redis"`           // Store selects the pending backend: redis or mongo.
	TTL          time.Duration `env:"PENDING_AUTHORIZATION_TTL" envDefault:"10m"` // TTL bounds how long a begun flow may stay incomplete.
	SettingsFile string        `env:"SHIM_SETTINGS_FILE"`                         // SettingsFile optionally supplies provider credentials from YAML.
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithAttr(slog.String("app", "shim-server")))
	logger.SetAsDefault(log)

	if err := run(ctx, log); err != nil {
		log.Error("shim-server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		serverCfg  shim.ServerConfig
		httpCfg    httpserver.Config
		mongoCfg   mongo.Config
		redisCfg   redis.Config
		pendingCfg pendingConfig
	)
	config.MustLoad(&serverCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&pendingCfg)

	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	credentials := mongostore.NewCredentialStore(db)
	if err := credentials.EnsureIndexes(ctx); err != nil {
		return err
	}

	var pending shim.PendingAuthorizationStore
	switch pendingCfg.Store {
	case "mongo":
		store := mongostore.NewPendingAuthorizationStore(db, pendingCfg.TTL)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		pending = store
	case "redis":
		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		pending = redisstore.NewPendingAuthorizationStore(redisClient, pendingCfg.TTL)
	default:
		return fmt.Errorf("unknown pending store %q", pendingCfg.Store)
	}

	registry, err := buildRegistry(credentials, serverCfg, pendingCfg.SettingsFile, log)
	if err != nil {
		return err
	}
	log.Info("shim registry ready", slog.Any("shims", registry.Keys()))

	orchestrator := shim.NewOrchestrator(registry, credentials, pending, shim.WithLogger(log))
	h := handler.New(orchestrator, handler.WithLogger(log))

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, h.Router())
}

// buildRegistry loads per-provider client credentials from the environment,
// letting an optional YAML settings catalog fill in any left empty.
func buildRegistry(credentials shim.CredentialStore, serverCfg shim.ServerConfig, settingsPath string, log *slog.Logger) (*shim.Registry, error) {
	var (
		fitbitCfg    shim.FitbitConfig
		withingsCfg  shim.WithingsConfig
		fatsecretCfg shim.FatsecretConfig
		runkeeperCfg shim.RunkeeperConfig
		jawboneCfg   shim.JawboneConfig
		movesCfg     shim.MovesConfig
	)
	config.MustLoad(&fitbitCfg)
	config.MustLoad(&withingsCfg)
	config.MustLoad(&fatsecretCfg)
	config.MustLoad(&runkeeperCfg)
	config.MustLoad(&jawboneCfg)
	config.MustLoad(&movesCfg)

	if settingsPath != "" {
		settings, err := shim.LoadSettingsFile(settingsPath)
		if err != nil {
			return nil, err
		}
		applyFileCredentials(settings, shim.KeyFitbit, &fitbitCfg.ClientID, &fitbitCfg.ClientSecret)
		applyFileCredentials(settings, shim.KeyWithings, &withingsCfg.ClientID, &withingsCfg.ClientSecret)
		applyFileCredentials(settings, shim.KeyFatsecret, &fatsecretCfg.ClientID, &fatsecretCfg.ClientSecret)
		applyFileCredentials(settings, shim.KeyRunkeeper, &runkeeperCfg.ClientID, &runkeeperCfg.ClientSecret)
		applyFileCredentials(settings, shim.KeyJawbone, &jawboneCfg.ClientID, &jawboneCfg.ClientSecret)
		applyFileCredentials(settings, shim.KeyMoves, &movesCfg.ClientID, &movesCfg.ClientSecret)
	}

	adapterLogger := shim.WithAdapterLogger(log)
	return shim.NewRegistry(
		shim.NewFitbitShim(fitbitCfg, credentials, serverCfg, adapterLogger),
		shim.NewWithingsShim(withingsCfg, credentials, serverCfg, adapterLogger),
		shim.NewFatsecretShim(fatsecretCfg, credentials, serverCfg, adapterLogger),
		shim.NewRunkeeperShim(runkeeperCfg, credentials, serverCfg, adapterLogger),
		shim.NewJawboneShim(jawboneCfg, credentials, serverCfg, adapterLogger),
		shim.NewMovesShim(movesCfg, credentials, serverCfg, adapterLogger),
	), nil
}

func applyFileCredentials(settings *shim.SettingsFile, key string, clientID, clientSecret *string) {
	fileID, fileSecret, ok := settings.Credentials(key)
	if !ok {
		return
	}
	if *clientID == "" {
		*clientID = fileID
	}
	if *clientSecret == "" {
		*clientSecret = fileSecret
	}
}
