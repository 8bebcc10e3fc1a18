package applib

import (
	"context"
	"fmt"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/config"
	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/broadcast"
	"github.com/VacantAardvark/joseki/state"
)

// OpenDatabase connects and synchronizes the schema. A failure here is fatal
// to startup.
func OpenDatabase(cfg config.Config, serverVersion string) (*database.Database, error) {
	db, err := database.Connect(cfg.DatabaseURL, serverVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	state.Register(db)
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to synchronize schema: %w", err)
	}
	return db, nil
}

// Init assembles the application from a resolved configuration.
func Init(ctx context.Context, cfg config.Config, serverVersion string) (*Application, error) {
	ttl, err := cfg.TokenTTLDuration()
	if err != nil {
		return nil, err
	}
	secret, err := auth.LoadSecretKey(cfg.JWTSecretPath)
	if err != nil {
		return nil, err
	}

	db, err := OpenDatabase(cfg, serverVersion)
	if err != nil {
		return nil, err
	}

	broadcaster, err := broadcast.New(ctx, cfg.RedisURL, cfg.RedisChannel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up broadcaster: %w", err)
	}

	return NewApplication(serverVersion, cfg, db, auth.NewIssuer(secret, ttl), broadcaster), nil
}
