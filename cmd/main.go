package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-chi/chi"
	"github.com/go-chi/docgen"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"

	"github.com/bookdepot/stock-service/api"
	"github.com/bookdepot/stock-service/config"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/db/bundlerepo"
	"github.com/bookdepot/stock-service/db/fulfillrepo"
	"github.com/bookdepot/stock-service/db/ledgerrepo"
	"github.com/bookdepot/stock-service/db/usrrepo"
	"github.com/bookdepot/stock-service/queue"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()

	configLogging(cfg)
	printLogHeader(cfg)
	cfg.Print()

	dbPool, err := db.ConnectDb(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the database")
	}

	bq := rabbit(cfg)
	q := configQueue(bq, cfg)
	policy := user.ScopePolicy{}

	log.Info().Msg("creating user service...")
	userService := user.NewService(usrrepo.NewPostgresRepo(dbPool))

	log.Info().Msg("creating bundle service...")
	bundleService := bundle.NewService(bundlerepo.NewPostgresRepo(dbPool), policy)

	log.Info().Msg("creating stock service...")
	stockService := ledger.NewService(ledgerrepo.NewPostgresRepo(dbPool), q, bundleService, policy)

	log.Info().Msg("creating fulfillment service...")
	fulfillmentService := fulfillment.NewService(fulfillrepo.NewPostgresRepo(dbPool), q, policy)

	log.Info().Msg("configuring metrics...")
	api.ConfigureMetrics()

	log.Info().Msg("configuring router...")
	r := api.ConfigureRouter(cfg, stockService, stockService, bundleService, fulfillmentService, userService)

	if cfg.GenerateRoutes {
		createRouteDocs(r)
	}

	log.Info().Msg("consuming receipts...")
	receiptQueue := queue.NewReceiptQueue(bq, cfg.RabbitMQ.Receipt.Queue, cfg.RabbitMQ.Receipt.Dlt.Exchange)
	go receiptQueue.ConsumeReceipts(ctx, stockService)

	log.Info().Dur("interval", cfg.Reconcile.Interval).Msg("starting reconciliation sweeps...")
	go reconcileForever(ctx, cfg, stockService)

	log.Info().Str("port", cfg.Port).Msg("listening")
	log.Fatal().Err(http.ListenAndServe(":"+cfg.Port, r)).Send()
}

func configQueue(bq *bunnyq.BunnyQ, cfg *config.Config) queue.Queue {
	if cfg.RabbitMQ.Mock {
		log.Info().Msg("creating mock queue...")
		return queue.NewMockQueue()
	}

	log.Info().Msg("connecting to rabbitmq...")
	return queue.New(bq, cfg.RabbitMQ.Stock.Exchange, cfg.RabbitMQ.Fulfillment.Exchange)
}

// reconcileForever sweeps every batch on a fixed interval, comparing running
// availability against the ledger. Drift is logged by the service; the sweep
// never repairs anything.
func reconcileForever(ctx context.Context, cfg *config.Config, svc ledger.Service) {
	ticker := time.NewTicker(cfg.Reconcile.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drift, err := svc.ReconcileAll(ctx, cfg.Reconcile.PageSize)
			if err != nil {
				log.Error().Err(err).Msg("reconciliation sweep failed")
				continue
			}
			log.Info().Int("drifted", len(drift)).Msg("reconciliation sweep complete")
		}
	}
}

func rabbit(cfg *config.Config) *bunnyq.BunnyQ {
	osChannel := make(chan os.Signal, 1)
	signal.Notify(osChannel, syscall.SIGTERM)

	return bunnyq.New(context.Background(),
		bunnyq.Address{
			User: cfg.RabbitMQ.User,
			Pass: cfg.RabbitMQ.Pass,
			Host: cfg.RabbitMQ.Host,
			Port: cfg.RabbitMQ.Port,
		},
		osChannel,
		bunnyq.LogHandler(logger{}),
	)
}

type logger struct {
}

func (l logger) Log(_ context.Context, level bunnyq.LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case bunnyq.LogLevelTrace:
		evt = log.Trace()
	case bunnyq.LogLevelDebug:
		evt = log.Debug()
	case bunnyq.LogLevelInfo:
		evt = log.Info()
	case bunnyq.LogLevelWarn:
		evt = log.Warn()
	case bunnyq.LogLevelError:
		evt = log.Error()
	case bunnyq.LogLevelNone:
		evt = log.Info()
	default:
		evt = log.Info()
	}

	for k, v := range data {
		evt.Interface(k, v)
	}

	evt.Msg(msg)
}

func createRouteDocs(r chi.Router) {
	log.Info().Msg("generating route documentation...")

	doc := docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
		ProjectPath: "github.com/bookdepot/stock-service",
		Intro:       "Book depot stock service routes.",
	})

	if err := os.WriteFile("routes.md", []byte(doc), 0644); err != nil {
		log.Fatal().Err(err).Msg("failed to write route documentation")
	}

	log.Info().Msg("route documentation written to routes.md")
	os.Exit(0)
}

func printLogHeader(cfg *config.Config) {
	if cfg.Log.Structured {
		log.Info().Str("application", cfg.AppName).
			Str("revision", cfg.Revision).
			Str("version", cfg.AppVersion).
			Str("sha1ver", cfg.Sha1Version).
			Str("build-time", cfg.BuildTime).
			Str("profile", cfg.Profile).
			Str("config-source", cfg.Config.Source).
			Str("config-branch", cfg.Config.Spring.Branch).
			Send()
	} else {
		f := figure.NewFigure(cfg.AppName, "", true)
		f.Print()

		log.Info().Msg("=============================================")
		log.Info().Msg(fmt.Sprintf("       Revision: %s", cfg.Revision))
		log.Info().Msg(fmt.Sprintf("        Profile: %s", cfg.Profile))
		log.Info().Msg(fmt.Sprintf("  Config Server: %s - %s", cfg.Config.Source, cfg.Config.Spring.Branch))
		log.Info().Msg(fmt.Sprintf("    Tag Version: %s", cfg.AppVersion))
		log.Info().Msg(fmt.Sprintf("   Sha1 Version: %s", cfg.Sha1Version))
		log.Info().Msg(fmt.Sprintf("     Build Time: %s", cfg.BuildTime))
		log.Info().Msg("=============================================")
	}
}

func configLogging(cfg *config.Config) {
	log.Info().Msg("configuring logging...")

	if !cfg.Log.Structured {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("loglevel", cfg.Log.Level).Err(err).Msg("defaulting to info")
		level = zerolog.InfoLevel
	}
	log.Info().Str("loglevel", level.String()).Msg("setting log level")
	zerolog.SetGlobalLevel(level)
}
