package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zapisly/booking-core/internal/config"
	"github.com/zapisly/booking-core/internal/db"
	"github.com/zapisly/booking-core/internal/hold"
	"github.com/zapisly/booking-core/internal/model"
	"github.com/zapisly/booking-core/internal/notify"
	"github.com/zapisly/booking-core/internal/payment"
	"github.com/zapisly/booking-core/internal/ranking"
	"github.com/zapisly/booking-core/internal/repository"
	"github.com/zapisly/booking-core/internal/reservation"
	"github.com/zapisly/booking-core/internal/server"
	"github.com/zapisly/booking-core/internal/service"
)

func main() {
	// 1. Локальный .env, если есть; в контейнере env и так задан.
	_ = godotenv.Load()

	// 2. Конфигурация: БД отдельно, остальное через envconfig.
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("load db config: %v", err)
	}
	appCfg, err := config.LoadApp()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}

	// 3. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}

	// 4. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	// 5. Hold Store в Redis: единственный источник истины по hold'ам.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     appCfg.RedisAddr,
		Password: appCfg.RedisPassword,
		DB:       appCfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatalf("ping redis: %v", err)
	}
	cancelPing()

	// 6. Диспетчер нотификаций: RabbitMQ либо деградация до лога.
	var notifier notify.Dispatcher
	if appCfg.RabbitURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(appCfg.RabbitURL, appCfg.RabbitExchange)
		if err != nil {
			log.Fatalf("init rabbitmq: %v", err)
		}
		defer amqpDispatcher.Close()
		notifier = amqpDispatcher
	} else {
		log.Println("[main] RABBIT_URL is empty, notifications go to log only")
		notifier = notify.LogDispatcher{}
	}

	// 7. Репозитории (реализации на GORM).
	slotRepo := repository.NewGormSlotRepository(gormDB)
	centerRepo := repository.NewGormCenterRepository(gormDB)
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)

	// 8. Сервис бронирования.
	manager := reservation.NewManager(hold.NewRedisStore(redisClient), slotRepo, appCfg.HoldTTL())
	bookingSvc := service.NewBookingService(
		slotRepo, centerRepo, bookingRepo, eventRepo,
		manager,
		payment.NewHMACVerifier(appCfg.PaymentSecret),
		notifier,
		service.WithWeights(ranking.Weights{
			Price:     appCfg.RankWeightPrice,
			Rating:    appCfg.RankWeightRating,
			Proximity: appCfg.RankWeightProximity,
		}),
	)

	// 9. HTTP-сервер.
	srv := &http.Server{
		Addr:    appCfg.HTTPAddr,
		Handler: server.New(bookingSvc).Handler(),
	}

	log.Printf("booking core listening on %s", appCfg.HTTPAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// 10. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
