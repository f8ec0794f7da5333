package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/papertrade/funds/internal/application/auth"
	"github.com/papertrade/funds/internal/application/fundsservice"
	"github.com/papertrade/funds/internal/server/middleware"
	"github.com/papertrade/funds/internal/server/websocket"
	"github.com/papertrade/funds/pkg/config"
)

type Handlers struct {
	FundsSvc fundsservice.IFundsService
	AuthSvc  authservice.IAuthService
	Logger   zerolog.Logger
	Config   *config.Config
	WsHub    *websocket.WsHub
}

func New(
	fundsSvc fundsservice.IFundsService,
	authSvc authservice.IAuthService,
	logger zerolog.Logger,
	config *config.Config,
	wsHub *websocket.WsHub,
) *Handlers {
	return &Handlers{
		FundsSvc: fundsSvc,
		AuthSvc:  authSvc,
		Logger:   logger,
		Config:   config,
		WsHub:    wsHub,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.AuthSvc, h.Logger)
	mw.SetupMiddleware(router)

	fundsHandler := NewFundsHandler(h.FundsSvc, h.Logger)
	accountHandler := NewAccountHandler(h.FundsSvc, h.AuthSvc, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/v1")
	{
		// Signup issues the account and its first token.
		v1.POST("/accounts", accountHandler.CreateAccount)

		authorized := v1.Group("")
		authorized.Use(mw.AuthMiddleware())
		{
			funds := authorized.Group("/funds")
			{
				funds.POST("/add", fundsHandler.AddFunds)
				funds.POST("/withdraw", fundsHandler.WithdrawFunds)
				funds.GET("/balance", fundsHandler.GetBalance)
				funds.GET("/transactions", fundsHandler.GetTransactions)
				funds.GET("/reconcile", fundsHandler.Reconcile)
			}

			authorized.DELETE("/accounts", accountHandler.DeleteAccount)
			authorized.POST("/auth/logout", accountHandler.Logout)
			authorized.GET("/stream", wsHandler.HandleConnection)
		}
	}
}
