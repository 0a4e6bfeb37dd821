package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/api"
	"github.com/ajayykmr/crm-dispatch-go/internal/config"
	"github.com/ajayykmr/crm-dispatch-go/internal/dispatch"
	"github.com/ajayykmr/crm-dispatch-go/internal/events"
	"github.com/ajayykmr/crm-dispatch-go/internal/logger"
	emailprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/email"
	smsprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/sms"
	waprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/whatsapp"
	"github.com/ajayykmr/crm-dispatch-go/internal/provision"
	"github.com/ajayykmr/crm-dispatch-go/internal/store"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	configStore, err := tenantconf.NewPostgresStore(db)
	if err != nil {
		return err
	}

	var resolverStore tenantconf.Store = configStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		cached, err := tenantconf.NewCachedStore(configStore, rdb, cfg.Redis.CacheTTL, log)
		if err != nil {
			return err
		}
		resolverStore = cached
		log.Info().Str("addr", cfg.Redis.Addr).Msg("service config cache enabled")
	}

	resolver, err := tenantconf.NewResolver(resolverStore, log)
	if err != nil {
		return err
	}

	sink, err := store.NewPostgresStore(db)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Timeouts.ProviderTimeout}

	resendClient := emailprovider.NewResendClient(log,
		emailprovider.WithResendHTTPClient(httpClient),
		emailprovider.WithResendBaseURL(cfg.Providers.ResendBaseURL),
	)
	smtpClient := emailprovider.NewSMTPClient(log)
	smsClient := smsprovider.NewFast2SMSClient(log,
		smsprovider.WithFast2SMSHTTPClient(httpClient),
		smsprovider.WithFast2SMSBaseURL(cfg.Providers.Fast2SMSBaseURL),
	)
	cloudClient := waprovider.NewCloudClient(log,
		waprovider.WithCloudHTTPClient(httpClient),
		waprovider.WithCloudBaseURL(cfg.Providers.GraphBaseURL),
		waprovider.WithCloudVersion(cfg.Providers.GraphVersion),
	)

	emailSender, err := dispatch.NewEmailSender(resolver, resendClient, smtpClient, log)
	if err != nil {
		return err
	}
	smsSender, err := dispatch.NewSMSSender(resolver, smsClient, log)
	if err != nil {
		return err
	}
	waSender, err := dispatch.NewWhatsAppSender(resolver, cloudClient, log)
	if err != nil {
		return err
	}

	var dispatcherOpts []dispatch.DispatcherOption
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, log,
			events.WithProducerConfig(func(sc *sarama.Config) {
				sc.ClientID = "crm-dispatch"
			}),
		)
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher := events.NewDispatchPublisher(producer, cfg.Kafka.DispatchTopic, log)
		dispatcherOpts = append(dispatcherOpts, dispatch.WithEventPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.DispatchTopic).
			Msg("dispatch audit events enabled")
	}

	dispatcher, err := dispatch.NewDispatcher(emailSender, smsSender, waSender, sink, log, dispatcherOpts...)
	if err != nil {
		return err
	}

	provisioner, err := provision.NewProvisioner(resolver, cloudClient, sink, log)
	if err != nil {
		return err
	}

	handlers, err := api.NewHandlers(dispatcher, provisioner, log)
	if err != nil {
		return err
	}

	router := api.NewRouter(handlers, api.NewStaticTokenResolver(cfg.Auth.StaticTokens))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.App.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
