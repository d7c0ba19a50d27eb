package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"merchant-order-api/internal/cache"
	"merchant-order-api/internal/config"
	"merchant-order-api/internal/dal"
	"merchant-order-api/internal/dao"
	"merchant-order-api/internal/handler"
	"merchant-order-api/internal/idgen"
	"merchant-order-api/internal/logger"
	"merchant-order-api/internal/mq"
	"merchant-order-api/internal/notify"
	"merchant-order-api/internal/service"
	"merchant-order-api/internal/signature"
	"merchant-order-api/internal/utils"
)

func main() {
	// load config env
	config.Init()
	logger.Init("logs")

	// init infra
	dal.InitMainDB()
	dal.InitOrderDB()
	dal.InitRedis()
	if err := utils.DoWithRetry(context.Background(), 3, 2*time.Second, dal.InitRabbitMQ); err != nil {
		// MQ 不可用时不发事件、不推送通知，下单链路不受影响
		log.Printf("[RabbitMQ] init failed, events disabled: %v", err)
	}
	defer dal.CloseRabbitMQ()

	if config.C.Server.Mode == "debug" {
		if err := dal.AutoMigrate(dal.MainDB, dal.OrderDB); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}
	}

	// idgen
	idgen.Init(config.C.Snowflake.Node)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go idgen.WatchClock(ctx.Done())

	sec := config.C.Security
	opts := []signature.Option{signature.WithWindow(time.Duration(sec.SignWindowSec) * time.Second)}
	if len(sec.ExcludedFields) > 0 {
		opts = append(opts, signature.WithExcluded(sec.ExcludedFields...))
	}
	codec := signature.NewCodec(opts...)

	merchants := cache.NewMerchantCache(dao.NewMainDao(), dal.RedisClient,
		time.Duration(config.C.Redis.MerchantTTLSec)*time.Second, logger.Error)
	publisher := mq.NewPublisher(config.C.RabbitMQ.Exchange, logger.Error)
	orderSvc := service.NewOrderService(merchants, dao.NewOrderDao(), codec,
		service.WithEvents(publisher),
		service.WithLogger(logger.Error),
	)

	// start consumers
	startNotifyConsumer(ctx, codec, publisher)

	// http server
	if config.C.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handler.NewRouter(handler.RouterDeps{
		Orders:   orderSvc,
		Audit:    logger.NewDBAuditWriter(dal.OrderDB),
		InfoLog:  logger.Info,
		ErrorLog: logger.Error,
		Checks: map[string]handler.Pinger{
			"mysql_main":  pingDB(dal.MainDB.DB),
			"mysql_order": pingDB(dal.OrderDB.DB),
			"redis":       func(ctx context.Context) error { return dal.RedisClient.Ping(ctx).Err() },
		},
	})
	// 设置可信代理 IP（如本地或内网）
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "192.168.0.0/16"})

	srv := &http.Server{Addr: ":" + config.C.Server.Port, Handler: r}
	go func() {
		log.Printf("listening %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// startNotifyConsumer 配置了系统私钥才推送商户通知
func startNotifyConsumer(ctx context.Context, codec *signature.Codec, publisher *mq.Publisher) {
	keyFile := config.C.Security.PrivateKeyFile
	if keyFile == "" {
		log.Println("[Notify] privateKeyFile not set, merchant notify disabled")
		return
	}
	pemData, err := os.ReadFile(keyFile)
	if err != nil {
		log.Fatalf("[Notify] read private key failed: %v", err)
	}
	key, err := signature.ParsePrivateKey(pemData)
	if err != nil {
		log.Fatalf("[Notify] parse private key failed: %v", err)
	}

	nc := config.C.Notify
	consumer := &mq.Consumer{
		Queue: config.C.RabbitMQ.NotifyQueue,
		Notifier: &mq.Notifier{
			Codec:  codec,
			Key:    key,
			Client: &http.Client{Timeout: time.Duration(nc.TimeoutSec) * time.Second},
		},
		MaxRetry:   nc.MaxRetry,
		RetryDelay: time.Duration(nc.RetryDelaySec) * time.Second,
		Requeue:    publisher.Requeue,
		Alerter: &notify.Telegram{
			BotToken: config.C.Alert.TelegramBotToken,
			ChatID:   config.C.Alert.TelegramChatID,
			Log:      logger.Error,
		},
		Log: logger.Error,
	}
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[Notify] consumer stopped: %v", err)
		}
	}()
}

func pingDB(sqlDB func() (*sql.DB, error)) handler.Pinger {
	return func(ctx context.Context) error {
		db, err := sqlDB()
		if err != nil {
			return err
		}
		return db.PingContext(ctx)
	}
}
