package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/cmis-dev/event-registration/internal/config"
    "github.com/cmis-dev/event-registration/internal/database"
    "github.com/cmis-dev/event-registration/internal/handler"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/queue"
    "github.com/cmis-dev/event-registration/internal/repository"
    "github.com/cmis-dev/event-registration/internal/router"
    "github.com/cmis-dev/event-registration/internal/scheduler"
    "github.com/cmis-dev/event-registration/internal/service"
)

func main() {
    // A local .env is a convenience for development; production sets
    // real environment variables.
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("warning: could not load .env: %v", err)
    }

    cfg := config.Load()

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    cancel()
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient() // nil when Redis is unreachable

    events := repository.NewEventRepo(db)
    regs := repository.NewRegistrationRepo(db)
    users := repository.NewUserRepo(db)
    audit := repository.NewAuditRepo(db)

    var mail notifier.Notifier
    if cfg.SMTPHost != "" {
        mail = notifier.NewSMTPNotifier(notifier.SMTPConfig{
            Host:            cfg.SMTPHost,
            Port:            cfg.SMTPPort,
            Username:        cfg.SMTPUsername,
            Password:        cfg.SMTPPassword,
            From:            cfg.MailFrom,
            FromName:        cfg.MailFromName,
            FeedbackBaseURL: cfg.FeedbackBaseURL,
            VerifyBaseURL:   cfg.VerifyBaseURL,
        })
    } else {
        log.Println("mail: SMTP_HOST not set, outbound mail disabled")
    }

    regSvc := service.NewRegistrationService(events, regs, users, audit, mail)

    // The feedback scheduler only makes sense with a mail transport.
    var feedback *scheduler.FeedbackScheduler
    if mail != nil {
        feedback = scheduler.New(events, regs, mail, cfg.FeedbackInterval)
        feedback.Start()
    } else {
        log.Println("feedback-scheduler: disabled, no mail transport")
    }

    go func() {
        if err := queue.StartRegistrationConsumer(); err != nil {
            log.Printf("queue consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(users, audit, mail, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost), cfg.JWTSecret)
    router.RegisterEvents(e, handler.NewEventHandler(events, regs, audit, mail), cfg.JWTSecret, rdb)
    router.RegisterRegistrations(e, handler.NewRegistrationHandler(regSvc), cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

    addr := ":" + cfg.Port
    go func() {
        log.Printf("listening on %s (env=%s)", addr, cfg.Env)
        if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    log.Println("shutting down")
    if feedback != nil {
        feedback.Stop()
    }
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}
