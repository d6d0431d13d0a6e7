// Package httpapi exposes the wallet service over HTTP and a WebSocket stream.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/infrastructure/monitor"
	"wallet-ledger-go/journal"
	"wallet-ledger-go/ledger"
	"wallet-ledger-go/portfolio"
	"wallet-ledger-go/wallet"
)

// WalletService HTTP 层依赖的钱包操作；*wallet.Service 满足该接口。
type WalletService interface {
	Snapshot() portfolio.Snapshot
	AccountView(account ledger.Account) (portfolio.AccountSummary, error)
	Balance(symbol string) wallet.BalanceView
	MaxTransferable(symbol string, from ledger.Account) (decimal.Decimal, error)
	Transfer(ctx context.Context, req wallet.TransferRequest) (portfolio.Snapshot, error)
	Transfers(ctx context.Context, limit int) ([]journal.Record, error)
	Reset(ctx context.Context) (portfolio.Snapshot, error)
	Subscribe() <-chan portfolio.Snapshot
	Unsubscribe(ch <-chan portfolio.Snapshot)
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr            string
	Service         WalletService
	Monitor         *monitor.Monitor
	Logger          *logger.Logger
	ShutdownTimeout time.Duration
}

// Server 钱包 HTTP 服务。
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	router          *gin.Engine
}

// NewServer 构建 HTTP server 并注册全部路由。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("http server requires wallet service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Monitor != nil {
		router.GET("/metrics", gin.WrapH(cfg.Monitor.Handler()))
	}

	h := &handlers{svc: cfg.Service, mon: cfg.Monitor, log: cfg.Logger}
	h.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, shutdownTimeout: cfg.ShutdownTimeout, router: router}, nil
}

// requestLogger 记录每个请求的状态码与耗时。
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("dur", time.Since(start)),
		)
	}
}

// Handler 暴露路由，便于 httptest。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
