package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/auth"
	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/notify"
	"github.com/rmcmillan34/edge-journal/internal/service"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	DB        Pinger
	Playbooks *service.PlaybookService
	Guardrail *service.GuardrailService
	Ledger    *service.BreachLedger
	Settings  *service.SettingsService
	Switches  *service.SystemSettingsService
	Accounts  *service.AccountService
	Trades    *service.TradeService
	Hub       *notify.Hub

	Auth           config.AuthConfig
	Location       *time.Location
	OriginPatterns []string
	Swagger        bool
	Logger         *zap.Logger
}

func NewEngine(d Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(AccessLog(d.Logger))
	engine.Use(CORS())
	engine.Use(auth.Middleware(d.Auth, d.Logger))

	(&HealthHandler{DB: d.DB}).Register(engine)
	(&PlaybookHandler{Service: d.Playbooks, Logger: d.Logger}).Register(engine)
	(&ResponseHandler{Service: d.Playbooks}).Register(engine)
	(&GuardrailHandler{
		Ledger:         d.Ledger,
		Guardrail:      d.Guardrail,
		Hub:            d.Hub,
		Logger:         d.Logger,
		Location:       d.Location,
		OriginPatterns: d.OriginPatterns,
	}).Register(engine)
	(&SettingsHandler{Rules: d.Settings, Switches: d.Switches}).Register(engine)
	(&TradingHandler{Accounts: d.Accounts, Trades: d.Trades, Location: d.Location}).Register(engine)

	if d.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return engine
}
