package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/studyon/course-market/internal/config"
	"github.com/studyon/course-market/internal/handlers"
	"github.com/studyon/course-market/internal/repository"
	"github.com/studyon/course-market/internal/services"
	xhttp "github.com/studyon/course-market/pkg/http"
	"github.com/studyon/course-market/pkg/logger"
	"github.com/studyon/course-market/pkg/pg"
	"github.com/studyon/course-market/pkg/prom"
	"github.com/studyon/course-market/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	tokenStore := services.NewRedisTokenStore(redisAdap)

	// services
	paymentService := services.NewPaymentService(userRepo, transactionRepo)
	courseService := services.NewCourseService(courseRepo)
	userService := services.NewUserService(userRepo, paymentService, tokenStore, services.UserServiceConfig{
		JWTSecret:       []byte(config.Get().JWTSecret),
		AccessTokenTTL:  config.Get().AccessTokenTTL,
		RefreshTokenTTL: config.Get().RefreshTokenTTL,
		StartAmount:     config.Get().StartAmount,
	})
	healthService := services.NewHealthService(db)

	authenticator := handlers.NewAuthenticator(userRepo, []byte(config.Get().JWTSecret))

	// v1 handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(authenticator)
	courseHandler := handlers.NewCourseHandler(courseService, paymentService, authenticator)
	transactionHandler := handlers.NewTransactionHandler(paymentService, authenticator)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterAuthRoutes(g, authHandler)
	handlers.RegisterUserRoutes(g, userHandler)
	handlers.RegisterCourseRoutes(g, courseHandler)
	handlers.RegisterTransactionRoutes(g, transactionHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
