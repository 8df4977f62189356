package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/auth"
	"github.com/yangakandeni/kwella/internal/shared/config"
	"github.com/yangakandeni/kwella/internal/shared/db"
	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/mq"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/ws"
	"github.com/yangakandeni/kwella/internal/trip/adapter/in/in_ws"
	"github.com/yangakandeni/kwella/internal/trip/adapter/out/repo"
	"github.com/yangakandeni/kwella/internal/trip/application/usecase"
)

// Run собирает и запускает trip service: инфраструктура, use cases,
// адаптеры, HTTP сервер. Блокируется до отмены ctx.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "trip_service_starting", Message: "initializing trip service"})

	// Инфраструктура: PostgreSQL
	pool, err := db.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db.Close(pool, log)

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// Trust service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Storage service
	users := user.NewPgRepository(pool, log)
	trips := repo.NewTripPgRepository(pool, log)

	// Group registry: in-memory для одного инстанса, RabbitMQ fanout
	// для нескольких
	var registry ws.Registry
	switch cfg.WebSocket.Backend {
	case "rabbitmq":
		mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "rabbitmq_connection_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		defer mqConn.Close()

		queueName, err := mq.SetupTopology(mqConn, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "rabbitmq_topology_setup_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}

		registry, err = ws.NewAMQPRegistry(ctx, mqConn, queueName, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "amqp_registry_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}

	default:
		registry = ws.NewInMemoryRegistry(log)
	}

	// Use cases
	createTrip := usecase.NewCreateTripService(trips, users, log)
	updateTrip := usecase.NewUpdateTripService(trips, users, log)

	// WebSocket адаптер
	authn := in_ws.NewAuthenticator(jwtService, users, log)
	wsHandler := in_ws.NewTripWSHandler(registry, authn, createTrip, updateTrip, trips, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /ws/trip", wsHandler.ServeWS)
	mux.HandleFunc("GET /ws/trip/{$}", wsHandler.ServeWS)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebSocket.Port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(logger.Entry{
		Action:  "ws_server_started",
		Message: fmt.Sprintf("listening on :%d", cfg.WebSocket.Port),
		Additional: map[string]any{
			"backend": cfg.WebSocket.Backend,
		},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(logger.Entry{
			Action:  "ws_server_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	log.Info(logger.Entry{Action: "trip_service_stopped", Message: "server shut down"})
}
