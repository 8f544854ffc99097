package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/niyamr/niyamr-backend/internal/auth"
	"github.com/niyamr/niyamr-backend/internal/config"
	"github.com/niyamr/niyamr-backend/internal/database"
	"github.com/niyamr/niyamr-backend/internal/handler"
	"github.com/niyamr/niyamr-backend/internal/middleware"
	"github.com/niyamr/niyamr-backend/internal/oauth"
	"github.com/niyamr/niyamr-backend/internal/queue"
	"github.com/niyamr/niyamr-backend/internal/repository"
	"github.com/niyamr/niyamr-backend/internal/router"
	"github.com/niyamr/niyamr-backend/internal/scan"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Resolve the document extractor once; an unknown kind is a
	// deployment error and must not surface per request.
	extractor, err := scan.NewExtractor(cfg.ExtractorKind)
	if err != nil {
		log.Fatalf("extractor: %v", err)
	}

	users := repository.NewUserRepo(db)
	otp := auth.NewOTPChallenge(users)
	identity := auth.NewIdentityResolver(users, otp, cfg.BcryptCost)
	provider := oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleCallback)
	audit := scan.NewAuditEngine(cfg.AuditURL, cfg.AuditAPIKey, cfg.AuditModel)

	authHandler := handler.NewAuthHandler(cfg, identity, otp)
	oauthHandler := handler.NewOAuthHandler(cfg, provider, identity)
	scanHandler := handler.NewScanHandler(extractor, audit, cfg.MaxUploadBytes)

	e := echo.New()
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowCredentials: true,
	}))

	rdb := config.NewRedisClient() // nil disables rate limiting
	ratelimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	session := middleware.SessionAuth(cfg.JWTSecret, users)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, oauthHandler, session, ratelimit)
	router.RegisterScan(e, scanHandler, ratelimit)

	// Deliver queued OTP mails in the background; the consumer
	// reconnects on broker failures and never stops the server.
	go func() {
		if err := queue.StartOTPMailConsumer(queue.MailCredentials{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}); err != nil {
			log.Printf("otp-mail-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
