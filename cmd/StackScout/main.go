// Package main is the entry point of the StackScout service.
// It initializes the Kratos application with the HTTP server and the
// background maintenance jobs.
package main

import (
	"flag"
	"os"

	"StackScout/internal/conf"
	zapLogger "StackScout/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "stackscout"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, jobs *Maintenance) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			jobs,
		),
	)
}

func main() {
	flag.Parse()

	// Load configuration using Viper with environment variable and CLI flag support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.version", Version,
	)

	zapLogger.NewLogHelper(logger).Startup("StackScout service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.env", zapLogger.Environment(bc.Log),
		"log.output_file", bc.Log.OutputFile,
		"cache.backend", bc.Cache.Backend,
		"providers", len(bc.Providers),
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Auth, bc.Breaker, bc.Cache, bc.Providers, bc.Research, bc.Classifier, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
