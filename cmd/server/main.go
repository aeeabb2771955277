// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/glowdesk/messaging-backend/internal/analytics"
	"github.com/glowdesk/messaging-backend/internal/config"
	"github.com/glowdesk/messaging-backend/internal/db"
	"github.com/glowdesk/messaging-backend/internal/handler"
	"github.com/glowdesk/messaging-backend/internal/queue"
	"github.com/glowdesk/messaging-backend/internal/repository"
	"github.com/glowdesk/messaging-backend/internal/service"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	counters := analytics.NewRedisCounters(redisClient)

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
	} else {
		log.Println("⚠️ AMQP_URL not set, message events disabled")
	}

	messageRepo := &repository.MessageRepository{DB: conn}
	ruleRepo := &repository.RuleRepository{DB: conn}

	reconciler := &service.Reconciler{
		Messages: messageRepo,
		Counters: counters,
		Events:   events,
	}

	messageService := &service.MessageService{
		Messages: messageRepo,
		Rules:    ruleRepo,
		Counters: counters,
	}

	webhookHandler := &handler.WebhookHandler{Reconciler: reconciler}
	messageHandler := &handler.MessageHandler{Service: messageService}

	r := chi.NewRouter()

	r.Get("/health", handler.Health)
	r.Get("/messages", messageHandler.ListMessages)
	r.Get("/rules/{id}/stats", messageHandler.GetRuleStats)
	r.Post("/webhooks/sms-status", webhookHandler.SMSStatus)

	log.Println("🚀 Server running on :" + cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, r))
}
