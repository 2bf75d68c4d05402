package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"chat-gateway/config"
	"chat-gateway/database"
	"chat-gateway/event"
	"chat-gateway/event/listener"
	"chat-gateway/gateway"
	"chat-gateway/notify"
	"chat-gateway/router"
	"chat-gateway/socketio"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	log.SetPrefix("chat-gateway: ")

	settings := config.Load()
	if settings.AccessKey == "" {
		log.Fatal("JWT_ACCESS_KEY is required")
	}

	level := slog.LevelInfo
	if settings.SocketDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "chat-gateway",
	})

	rest.Use(cors.New())

	redisClient := database.RedisConnect(settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
	db, err := database.PostgresConnect(settings.PostgresDSN)
	if err != nil {
		log.Fatal(err)
	}

	enforcer, err := database.Casbin(db, settings.CasbinModel)
	if err != nil {
		log.Fatal(err)
	}

	var journal *event.Journal
	if settings.EventLogDir != "" {
		if journal, err = event.OpenJournal(settings.EventLogDir); err != nil {
			log.Fatal(err)
		}
	}

	broker, err := event.RabbitMQConnect(settings.RabbitMQURL, []string{
		// Connect to queues
		listener.TopicQueue,
		notify.PushQueue,
	}, journal)
	if err != nil {
		log.Fatal(err)
	}

	provider, err := pushProvider(settings, broker, logger)
	if err != nil {
		log.Fatal(err)
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher := notify.NewDispatcher(provider, notify.Config{
		Workers:   settings.PushWorkers,
		QueueSize: settings.PushQueueSize,
		Timeout:   settings.PushTimeout,
	}, logger)
	dispatcher.Start(dispatcherCtx)

	store := database.NewStore(db, database.NewIdentityCache(redisClient, settings.IdentityCacheTTL))
	gw := gateway.New(store, dispatcher, logger, gateway.Options{
		PreviewLength: settings.PreviewLength,
	})

	// Run "forum" listener
	topicChannel := make(chan event.EventChannelData)
	go listener.Topic(topicChannel, gw, logger)

	// Subscribe listener channel to "forum" events
	if err := broker.Subscribe([]event.RabbitMQSubscribeListener{
		{
			Queue:   listener.TopicQueue,
			Channel: topicChannel,
		},
	}); err != nil {
		log.Fatal(err)
	}

	socket := socketio.Init(rest, gateway.NewAuthenticator([]byte(settings.AccessKey)), socketio.Options{
		ConnectTimeout: settings.HandshakeTimeout,
		Debug:          settings.SocketDebug,
	})

	router.Rest(rest, router.RestDeps{
		AccessKey: []byte(settings.AccessKey),
		Users:     store,
		Enforcer:  enforcer,
		Gateway:   gw,
	})
	router.Socket(socket, gw, logger)

	go func() {
		if err := rest.Listen(fmt.Sprintf(":%s", settings.ServerPort)); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()
	log.Printf("listening on :%s", settings.ServerPort)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		settings.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-gateway": func(ctx context.Context) error {
				log.Println("graceful shutdown initiated")

				socket.Close(nil)
				if err := rest.ShutdownWithContext(ctx); err != nil {
					log.Printf("http shutdown: %v", err)
				}

				// Queued pushes still go out before the broker closes
				if err := dispatcher.Stop(ctx); err != nil {
					log.Printf("push dispatcher: %v", err)
				}
				stopDispatcher()

				if err := broker.Close(); err != nil {
					log.Printf("rabbitmq close: %v", err)
				}
				if err := journal.Close(); err != nil {
					log.Printf("event journal close: %v", err)
				}
				return closeStores(db, redisClient)
			},
		},
	)

	exitCode := <-wait
	log.Printf("exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func pushProvider(settings config.Settings, broker *event.Broker, logger *slog.Logger) (notify.Provider, error) {
	switch settings.PushProvider {
	case "http":
		return notify.NewHTTPProvider(settings.PushHTTPURL, settings.PushHTTPToken), nil
	case "amqp":
		return notify.NewQueueProvider(broker, notify.PushQueue), nil
	case "log", "":
		return notify.LogProvider{Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown PUSH_PROVIDER %q", settings.PushProvider)
}

func closeStores(db *gorm.DB, redisClient *redis.Client) error {
	if err := redisClient.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
