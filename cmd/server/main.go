package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/attendance"
	"github.com/ukydev/school-transit/internal/auth"
	"github.com/ukydev/school-transit/internal/broadcast"
	"github.com/ukydev/school-transit/internal/config"
	"github.com/ukydev/school-transit/internal/db"
	"github.com/ukydev/school-transit/internal/gateway"
	"github.com/ukydev/school-transit/internal/handlers"
	"github.com/ukydev/school-transit/internal/metrics"
	"github.com/ukydev/school-transit/internal/middleware"
	"github.com/ukydev/school-transit/internal/pipeline"
	"github.com/ukydev/school-transit/internal/publisher"
	"github.com/ukydev/school-transit/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	database := client.Database(cfg.MongoDB)

	gpsLog := &db.MongoCollection{Collection: database.Collection("gps_log")}
	zones := &db.MongoCollection{Collection: database.Collection("zones")}
	students := &db.MongoCollection{Collection: database.Collection("students")}
	trips := &db.MongoCollection{Collection: database.Collection("trips")}
	records := &db.MongoCollection{Collection: database.Collection("attendance")}
	vehicles := &db.MongoCollection{Collection: database.Collection("vehicles")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize auth service")
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		go collector.Serve(cfg.MetricsAddr)
	}

	states := state.NewStore()
	hub := broadcast.NewHub(states, cfg.SessionQueueSize, collector)

	sinks := []pipeline.EventSink{hub}
	if cfg.NATSURL != "" {
		natsPub, err := publisher.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer natsPub.Close()
		sinks = append(sinks, natsPub)
	}

	pipeCfg := pipeline.Config{
		SpeedLimit:    cfg.SpeedLimit,
		HighDelta:     cfg.HighDelta,
		CriticalDelta: cfg.CriticalDelta,
		HysteresisM:   cfg.HysteresisM,
	}
	pipe := pipeline.New(pipeCfg, states, vehicles, zones, gpsLog, sinks...)

	if cfg.MQTTBrokerURL != "" {
		gw, err := gateway.NewMQTTGateway(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopic, pipe)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		if err := gw.Start(); err != nil {
			log.WithError(err).Fatal("Failed to subscribe to position topic")
		}
		defer gw.Stop()
	}

	engine := attendance.NewEngine(students, trips, records)
	recorder := attendance.NewRecorder(records, trips)

	authHandler := handlers.NewAuthHandler(authService, users, students)
	positionHandler := handlers.NewPositionHandler(pipe, collector)
	wsHandler := handlers.NewWSHandler(authService, hub)
	tripHandler := handlers.NewTripHandler(engine)
	attendanceHandler := handlers.NewAttendanceHandler(recorder)

	authMw := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	// Registration is open to anonymous parents; an admin token on the same
	// endpoint creates driver and staff accounts.
	mux.Handle("/api/auth/register", authMw.OptionalAuthenticate(http.HandlerFunc(authHandler.Register)))
	mux.Handle("/api/auth/profile", authMw.Authenticate(http.HandlerFunc(authHandler.GetProfile)))
	mux.Handle("/api/auth/password", authMw.Authenticate(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("/api/positions", authMw.Authenticate(
		authMw.RequirePermission("ingest_positions")(http.HandlerFunc(positionHandler.Ingest))))
	mux.Handle("/api/trips/", authMw.Authenticate(
		authMw.RequirePermission("view_attendance")(http.HandlerFunc(tripHandler.Absentees))))
	mux.Handle("/api/attendance", authMw.Authenticate(
		authMw.RequirePermission("record_attendance")(http.HandlerFunc(attendanceHandler.Record))))
	mux.HandleFunc("/ws", wsHandler.Serve)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rateLimiter.RateLimit(300, 60)(mux),
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP shutdown failed")
	}
}
