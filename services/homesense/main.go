package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/relabs-tech/homesense/core"
	"github.com/relabs-tech/homesense/core/backend"
	"github.com/relabs-tech/homesense/core/csql"
	"github.com/relabs-tech/homesense/core/kafka"
	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/core/store"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string `env:"POSTGRES,optional" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	Schema           string `env:"SCHEMA,optional,default=homesense" description:"the database schema of the tables"`
	Port             int    `env:"PORT,optional,default=3000" description:"the port the API listens on"`
	LogLevel         string `env:"LOG_LEVEL,optional,default=info" description:"The level used for logger, can be debug, warning, info, error"`
	AccessLog        bool   `env:"ACCESS_LOG,optional,default=false" description:"log every request in combined log format"`
	KafkaBrokers     string `env:"KAFKA_BROKERS,optional" description:"comma separated Kafka brokers, change notifications are disabled if empty"`
	KafkaTopic       string `env:"KAFKA_TOPIC,optional,default=homesense.changes" description:"the topic of change notifications"`
	Memory           bool   `env:"MEMORY,optional,default=false" description:"keep all data in memory instead of Postgres"`
}

func main() {
	// a .env file is optional
	_ = godotenv.Load()

	service := &Service{}
	if err := envdecode.Decode(service); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}
	logger.InitLogger(logger.ParseLevel(service.LogLevel))
	rlog := logger.Default()

	builder := &backend.Builder{
		Router:       mux.NewRouter(),
		UpdateSchema: true,
	}

	switch {
	case service.Memory:
		rlog.Infoln("using in-memory store")
		builder.Store = store.NewMemory()
	case service.Postgres != "":
		db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, service.Schema)
		defer db.Close()
		builder.DB = db
	default:
		rlog.Fatalln("either POSTGRES or MEMORY must be set")
	}

	if service.KafkaBrokers != "" {
		notifier := kafka.NewNotifier(service.KafkaBrokers, service.KafkaTopic)
		defer notifier.Close()
		builder.Notifier = notifier
		rlog.Infoln("change notifications go to kafka topic", service.KafkaTopic)
	} else {
		builder.Notifier = core.NotifierFunc(func(ctx context.Context, resource string, operation core.Operation, payload []byte) {
			logger.FromContext(ctx).Debugln("change:", resource, operation)
		})
	}

	backend.New(builder)

	var handler http.Handler = builder.Router
	if service.AccessLog {
		handler = handlers.CombinedLoggingHandler(rlog.Writer(), handler)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(service.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		rlog.Infoln("listen on port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rlog.WithError(err).Fatalln("cannot listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	rlog.Infoln("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		rlog.WithError(err).Errorln("shutdown")
	}
}
