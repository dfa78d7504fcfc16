package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alejandrodnm/consensusbot/internal/domain"
	"github.com/alejandrodnm/consensusbot/internal/ports"
	"github.com/alejandrodnm/consensusbot/internal/scanner"
)

const defaultSignalDays = 7

type handlers struct {
	scanner ScanService
	signals ports.SignalLedger
	wallets ports.WalletStore
}

func (h *handlers) register(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/status", h.status)
	e.POST("/scan", h.scan)
	e.GET("/signals", h.recentSignals)

	e.POST("/chats/:id", h.registerChat)
	e.GET("/chats/:id/subscription", h.subscription)
	e.PUT("/chats/:id/subscription", h.subscribe)
	e.DELETE("/chats/:id/subscription", h.unsubscribe)

	e.GET("/wallets", h.listWallets)
	e.POST("/wallets", h.addWallet)
	e.DELETE("/wallets/:address", h.deactivateWallet)
}

// --- requests ---

type signalsRequest struct {
	Days int `query:"days" validate:"omitempty,min=1,max=90"`
}

type chatRequest struct {
	ID int64 `param:"id" validate:"required"`
}

type addWalletRequest struct {
	Address string `json:"address" validate:"required,ethaddr"`
	Alias   string `json:"alias" validate:"max=64"`
}

type walletPathRequest struct {
	Address string `param:"address" validate:"required,ethaddr"`
}

// bindAndValidate hace bind de path/query/body y valida el struct.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// --- handlers ---

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scanner.Status())
}

type scanResponse struct {
	Signals []domain.ConsensusSignal `json:"signals"`
}

// scan ejecuta un ciclo síncrono. Si el cliente corta la conexión el ciclo sigue.
func (h *handlers) scan(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	signals, err := h.scanner.TryScan(ctx)
	switch {
	case errors.Is(err, scanner.ErrScanInProgress), errors.Is(err, scanner.ErrScanLocked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	if signals == nil {
		signals = []domain.ConsensusSignal{}
	}
	return c.JSON(http.StatusOK, scanResponse{Signals: signals})
}

func (h *handlers) recentSignals(c echo.Context) error {
	var req signalsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Days == 0 {
		req.Days = defaultSignalDays
	}

	signals, err := h.signals.RecentSignals(c.Request().Context(), req.Days)
	if err != nil {
		return err
	}
	if signals == nil {
		signals = []domain.ConsensusSignal{}
	}
	return c.JSON(http.StatusOK, scanResponse{Signals: signals})
}

type subscriptionResponse struct {
	ChatID     int64 `json:"chat_id"`
	Subscribed bool  `json:"subscribed"`
}

func (h *handlers) registerChat(c echo.Context) error {
	var req chatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.scanner.RegisterChat(c.Request().Context(), req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, subscriptionResponse{
		ChatID:     req.ID,
		Subscribed: h.scanner.IsSubscribed(c.Request().Context(), req.ID),
	})
}

func (h *handlers) subscription(c echo.Context) error {
	var req chatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subscriptionResponse{
		ChatID:     req.ID,
		Subscribed: h.scanner.IsSubscribed(c.Request().Context(), req.ID),
	})
}

func (h *handlers) subscribe(c echo.Context) error {
	var req chatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.scanner.SubscribeChat(c.Request().Context(), req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subscriptionResponse{ChatID: req.ID, Subscribed: true})
}

func (h *handlers) unsubscribe(c echo.Context) error {
	var req chatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.scanner.UnsubscribeChat(c.Request().Context(), req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subscriptionResponse{ChatID: req.ID, Subscribed: false})
}

type walletsResponse struct {
	Wallets []domain.SmartWallet `json:"wallets"`
}

func (h *handlers) listWallets(c echo.Context) error {
	wallets, err := h.wallets.ListWallets(c.Request().Context())
	if err != nil {
		return err
	}
	if wallets == nil {
		wallets = []domain.SmartWallet{}
	}
	return c.JSON(http.StatusOK, walletsResponse{Wallets: wallets})
}

func (h *handlers) addWallet(c echo.Context) error {
	var req addWalletRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	w, err := h.wallets.AddWallet(c.Request().Context(), req.Address, req.Alias)
	if errors.Is(err, domain.ErrInvalidAddress) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *handlers) deactivateWallet(c echo.Context) error {
	var req walletPathRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	err := h.wallets.DeactivateWallet(c.Request().Context(), req.Address)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
