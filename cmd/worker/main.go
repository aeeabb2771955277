package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/glowdesk/messaging-backend/internal/config"
	"github.com/glowdesk/messaging-backend/internal/db"
	"github.com/glowdesk/messaging-backend/internal/queue"
	"github.com/glowdesk/messaging-backend/internal/repository"
	"github.com/glowdesk/messaging-backend/internal/service"
	"github.com/glowdesk/messaging-backend/internal/transport"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}

	var events queue.EventPublisher = queue.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpConn, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpConn.Close()

		publisher, err := queue.NewAMQPPublisher(amqpConn, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal("Failed to declare event queue:", err)
		}
		defer publisher.Close()
		events = publisher
	}

	messageRepo := &repository.MessageRepository{DB: conn}
	ruleRepo := &repository.RuleRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}

	expander := &service.Expander{
		Rules:    ruleRepo,
		Contacts: contactRepo,
		Messages: messageRepo,
	}

	sender := transport.NewHTTPSender(cfg.SMS)
	dispatcher := service.NewDispatcher(messageRepo, sender, events, cfg.Pipeline.BatchSize, cfg.Pipeline.MaxRetries)
	sweeper := &service.Sweeper{Messages: messageRepo, Timeout: cfg.Pipeline.ProcessingTimeout}

	c := cron.New()

	_, err = c.AddFunc(cfg.Pipeline.ExpandSchedule, func() {
		result, err := expander.Run(time.Now())
		if err != nil {
			log.Println("[Worker] expansion run failed:", err)
			return
		}
		log.Printf("[Worker] expansion: rules=%d queued=%d skipped=%d failed=%d",
			result.RulesProcessed, result.Queued, result.Skipped, result.Failed)
	})
	if err != nil {
		log.Fatal("invalid EXPAND_SCHEDULE:", err)
	}

	_, err = c.AddFunc(cfg.Pipeline.DispatchSchedule, func() {
		now := time.Now()

		released, err := sweeper.ReleaseStale(now)
		if err != nil {
			log.Println("[Worker] stale sweep failed:", err)
		} else if released > 0 {
			log.Printf("[Worker] released %d stale processing messages", released)
		}

		result, err := dispatcher.Drain(context.Background(), now)
		if err != nil {
			log.Println("[Worker] dispatch cycle failed:", err)
			return
		}
		log.Printf("[Worker] dispatch: examined=%d sent=%d retried=%d failed=%d skipped=%d",
			result.Examined, result.Sent, result.Retried, result.Failed, result.Skipped)
	})
	if err != nil {
		log.Fatal("invalid DISPATCH_SCHEDULE:", err)
	}

	c.Start()
	log.Println("🚀 Worker running, schedules:", cfg.Pipeline.ExpandSchedule, "/", cfg.Pipeline.DispatchSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx := c.Stop()
	<-ctx.Done()
	log.Println("Worker stopped")
}
