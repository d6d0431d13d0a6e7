package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/infrastructure/monitor"
	"wallet-ledger-go/ledger"
	"wallet-ledger-go/portfolio"
	"wallet-ledger-go/wallet"
)

const maxListLimit = 500

type handlers struct {
	svc WalletService
	mon *monitor.Monitor
	log *logger.Logger
}

// Register 将 /api/v1 路由挂载到给定分组下。
func (h *handlers) Register(group *gin.RouterGroup) {
	group.GET("/snapshot", h.handleSnapshot)
	group.GET("/accounts/:account", h.handleAccount)
	group.GET("/balances/:symbol", h.handleBalance)
	group.POST("/transfers", h.handleTransfer)
	group.GET("/transfers", h.handleListTransfers)
	group.POST("/ledger/reset", h.handleReset)
	group.GET("/stream", h.handleStream)
}

// snapshotResponse 在快照之外附带格式化后的展示字段。
type snapshotResponse struct {
	portfolio.Snapshot
	Display displayFields `json:"display"`
}

type displayFields struct {
	TotalValue   string `json:"totalValue"`
	FundingValue string `json:"fundingValue"`
	TradingValue string `json:"tradingValue"`
	PnLValue     string `json:"pnlValue"`
	PnLPercent   string `json:"pnlPercent"`
}

func newSnapshotResponse(s portfolio.Snapshot) snapshotResponse {
	return snapshotResponse{
		Snapshot: s,
		Display: displayFields{
			TotalValue:   portfolio.FormatUSD(s.TotalValueUSD),
			FundingValue: portfolio.FormatUSD(s.FundingValueUSD),
			TradingValue: portfolio.FormatUSD(s.TradingValueUSD),
			PnLValue:     portfolio.FormatUSD(s.PnLValueUSD),
			PnLPercent:   portfolio.FormatPercent(s.PnLPercent),
		},
	}
}

type transferBody struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

type balanceResponse struct {
	wallet.BalanceView
	MaxTransferable map[string]decimal.Decimal `json:"maxTransferable"`
}

func (h *handlers) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, newSnapshotResponse(h.svc.Snapshot()))
}

func (h *handlers) handleAccount(c *gin.Context) {
	account, err := ledger.ParseAccount(c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.svc.AccountView(account)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":       view.Account,
		"totalValueUsd": view.TotalValueUSD,
		"totalValue":    portfolio.FormatUSD(view.TotalValueUSD),
		"holdings":      view.Holdings,
	})
}

func (h *handlers) handleBalance(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	view := h.svc.Balance(symbol)
	resp := balanceResponse{BalanceView: view, MaxTransferable: make(map[string]decimal.Decimal, len(ledger.Accounts))}
	for _, acct := range ledger.Accounts {
		qty, err := h.svc.MaxTransferable(symbol, acct)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.MaxTransferable[acct.String()] = qty
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) handleTransfer(c *gin.Context) {
	var body transferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if strings.TrimSpace(body.Symbol) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "symbol is required"})
		return
	}
	from, err := ledger.ParseAccount(body.From)
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := ledger.ParseAccount(body.To)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.svc.Transfer(c.Request.Context(), wallet.TransferRequest{
		Symbol: body.Symbol,
		Amount: body.Amount,
		From:   from,
		To:     to,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

func (h *handlers) handleListTransfers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "limit must be a non-negative integer"})
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	records, err := h.svc.Transfers(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": records})
}

func (h *handlers) handleReset(c *gin.Context) {
	snap, err := h.svc.Reset(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

// writeError 把领域错误映射为状态码与错误码。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, ledger.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidAccount):
		status, code = http.StatusBadRequest, "invalid_account"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
