package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saransh1220/notification-service/internal/gateway"
	"github.com/saransh1220/notification-service/internal/gateway/middleware"
	"github.com/saransh1220/notification-service/internal/modules/notification"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/events"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/database"
	"github.com/saransh1220/notification-service/internal/shared/utils"
	"github.com/saransh1220/notification-service/migrations"
	"github.com/saransh1220/notification-service/pkg/migration"
	"github.com/urfave/cli/v3"
)

func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and websocket feed",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "auto-migrate",
				Usage:   "apply pending migrations before serving",
				Sources: cli.EnvVars("AUTO_MIGRATE"),
				Value:   true,
			},
		},
		Action: a.serve,
	}
}

func (a *app) serve(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("auto-migrate") {
		if err := migration.AutoMigrate(a.migrationConfig(c)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := database.NewPostgresDB(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	rdb, err := database.NewRedis(a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	module, err := notification.NewModule(ctx, db, rdb, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer module.Shutdown()

	handler := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(a.cfg.JWT.Secret),
		NotificationHandler: module.HTTPHandler(),
		AllowedOrigins:      a.cfg.Server.AllowedOrigins,
	})

	a.logger.Info("notification service ready",
		"port", a.cfg.Server.Port,
		"sinks", module.SinkCount(),
		"archive", a.cfg.Archive.Enabled,
	)
	return gateway.NewServer(a.cfg.Server.Port, handler).Start(ctx)
}

func (a *app) consumeCmd() *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "Read notification events from the stream and log them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "group",
				Usage:   "consumer group name",
				Sources: cli.EnvVars("EVENTS_GROUP"),
			},
			&cli.DurationFlag{
				Name:  "block",
				Usage: "how long one read waits for new entries",
				Value: 2 * time.Second,
			},
		},
		Action: a.consume,
	}
}

func (a *app) consume(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := database.NewRedis(a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	group := c.String("group")
	if group == "" {
		group = a.cfg.Events.Group
	}
	consumer := events.NewStreamConsumer(rdb, events.ConsumerConfig{
		Stream:   a.cfg.Events.Topic,
		Group:    group,
		Consumer: a.cfg.Events.Consumer,
		Block:    c.Duration("block"),
	}, events.LogHandler(a.logger), a.logger)

	return consumer.Run(ctx)
}

func (a *app) migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "read migrations from this directory instead of the embedded set",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return migration.NewRunner(a.migrationConfig(c)).Up()
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the last migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					return migration.NewRunner(a.migrationConfig(c)).Down()
				},
			},
			{
				Name:      "force",
				Usage:     "Mark a version as applied without running it",
				ArgsUsage: "<version>",
				Action: func(ctx context.Context, c *cli.Command) error {
					v, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("force needs a numeric version: %w", err)
					}
					return migration.NewRunner(a.migrationConfig(c)).Force(v)
				},
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: func(ctx context.Context, c *cli.Command) error {
					st, err := migration.NewRunner(a.migrationConfig(c)).Status()
					if err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "version=%d dirty=%t\n", st.Version, st.Dirty)
					return nil
				},
			},
		},
	}
}

// migrationConfig picks --path, then MIGRATIONS_PATH, then the schema compiled into the binary.
func (a *app) migrationConfig(c *cli.Command) migration.Config {
	cfg := migration.Config{
		DatabaseURL: a.cfg.Database.URL(),
		Logger:      a.logger,
	}
	path := c.String("path")
	if path == "" {
		path = a.cfg.Server.MigrationsPath
	}
	if path != "" {
		cfg.MigrationsPath = path
	} else {
		cfg.Source = migrations.FS
	}
	return cfg
}

func (a *app) tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a signed bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "subject",
				Usage:    "who the token identifies",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "role claim, publisher may write",
				Value: middleware.RolePublisher,
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "token lifetime, defaults to JWT_EXPIRATION",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ttl := c.Duration("ttl")
			if ttl <= 0 {
				ttl = a.cfg.JWT.Expiry
			}
			token, err := utils.GenerateToken(c.String("subject"), c.String("role"), a.cfg.JWT.Secret, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(c.Root().Writer, token)
			return nil
		},
	}
}
