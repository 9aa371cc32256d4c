// Package main provides collabctl, the CollabHub maintenance CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/collabhub/internal/app/bootstrap"
	"github.com/dalemusser/collabhub/internal/app/system/indexes"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/app/system/validators"
	"github.com/dalemusser/collabhub/internal/app/system/workers"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const Version = "0.1.0"

type globals struct {
	mongoURI string
	database string
	timeout  time.Duration
	verbose  bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "collabctl",
		Short: "CollabHub maintenance tasks",
		Long: `collabctl runs one-off maintenance against a CollabHub database.

It provides:
- schema: create collections, validators and indexes
- relock: close every project edit window that has expired`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.mongoURI, "mongo-uri", envOr("COLLABHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&g.database, "db", envOr("COLLABHUB_MONGO_DATABASE", "collabhub"), "MongoDB database name")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 2*time.Minute, "Overall deadline for the command")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(schemaCmd(g), relockCmd(g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "collabctl version %s\n", Version)
		},
	})
	return cmd
}

func schemaCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "schema",
		Aliases: []string{"indexes"},
		Short:   "Create collections, validators and indexes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
				if err := validators.EnsureAll(ctx, db, log); err != nil {
					return err
				}
				if err := indexes.EnsureAll(ctx, db, log); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func relockCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "relock",
		Short: "Relock projects whose edit window has expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
				svcs := bootstrap.NewServices(kit.Base{Log: log}, bootstrap.MongoStores(db), txn.NewRunner(db, log), nil, nil, "collabhub")
				n := workers.NewLockExpiry(svcs.Projects, log, time.Minute).Sweep()
				fmt.Fprintf(cmd.OutOrStdout(), "relocked %d project(s)\n", n)
				return nil
			})
		},
	}
}

func (g *globals) withDB(parent context.Context, fn func(ctx context.Context, db *mongo.Database, log *zap.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, g.timeout)
	defer cancel()

	log, err := g.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(g.mongoURI).SetAppName("collabctl"))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return fn(ctx, client.Database(g.database), log)
}

func (g *globals) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if g.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
