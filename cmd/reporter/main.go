package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/studyon/course-market/internal/config"
	gateway "github.com/studyon/course-market/internal/gateways"
	"github.com/studyon/course-market/internal/queue"
	"github.com/studyon/course-market/internal/repository"
	"github.com/studyon/course-market/internal/services"
	"github.com/studyon/course-market/pkg/logger"
	"github.com/studyon/course-market/pkg/pg"
	"github.com/studyon/course-market/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Scheduled job. Without flags it publishes a queue notice for every rental
// expiring within the next day; with --monthly it mails the revenue summary
// for the past month to the back-office address.
func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

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

	db, err := pg.CreateReadWrite(readConf, writeConf, false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	transactionRepo := repository.NewTransactionRepository(db)
	reportService := services.NewReportService(transactionRepo)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if argContainsFlag("--monthly") {
		runMonthlyReport(ctx, reportService)
		return
	}
	runExpiryNotices(ctx, reportService)
}

func runExpiryNotices(ctx context.Context, reportService *services.ReportService) {
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

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	rentals, err := reportService.ExpiringSoon(ctx)
	if err != nil {
		logger.Error("failed to load expiring rentals", "error", err)
		return
	}

	published := 0
	for _, r := range rentals {
		_, err := q.PublishNotice(ctx, r.Notice())
		if err != nil {
			logger.Error("failed to publish expiry notice",
				"transaction_id", r.TransactionID, "error", err)
			continue
		}
		published++
	}
	logger.Info("expiry notices published", "found", len(rentals), "published", published)
}

func runMonthlyReport(ctx context.Context, reportService *services.ReportService) {
	if config.Get().ReportEmail == "" {
		logger.Error("REPORT_EMAIL is not set, nowhere to send the report")
		return
	}

	client, err := gateway.NewClient(&gateway.Config{
		Providers: []gateway.ProviderConfig{
			{Name: "primary", URL: config.Get().ProviderPrimaryUrl},
			{Name: "secondary", URL: config.Get().ProviderSecondaryUrl},
			{Name: "backup", URL: config.Get().ProviderBackupUrl},
		},
		Timeout:    time.Second * 5,
		MaxRetries: 3,
		RetryDelay: time.Millisecond * 100,
	})
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}

	end := time.Now()
	rows, total, err := reportService.MonthlyRevenue(ctx, end)
	if err != nil {
		logger.Error("failed to build revenue summary", "error", err)
		return
	}

	req := &gateway.ReportRequest{
		Email:       config.Get().ReportEmail,
		PeriodStart: end.AddDate(0, -1, 0),
		PeriodEnd:   end,
		Total:       total,
	}
	for _, row := range rows {
		req.Rows = append(req.Rows, gateway.ReportRow{
			Title: row.Title,
			Type:  row.Type.String(),
			Count: row.Count,
			Total: row.Total,
		})
	}

	if err := client.SendReport(ctx, req); err != nil {
		logger.Error("failed to send revenue report", "error", err)
		return
	}
	logger.Info("revenue report sent", "email", config.Get().ReportEmail,
		"rows", len(rows), "total", total)
}

func argContainsFlag(name string) bool {
	for _, v := range os.Args[1:] {
		if v == name {
			return true
		}
	}
	return false
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
