package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/m3rciful/translatebot/core/bootstrap"
	"github.com/m3rciful/translatebot/core/telegram/commands"
	"github.com/m3rciful/translatebot/core/telegram/router"
	"github.com/m3rciful/translatebot/core/telegram/state"
	"github.com/m3rciful/translatebot/internal/deepl"
	"github.com/m3rciful/translatebot/internal/document"
	"github.com/m3rciful/translatebot/internal/payment"
	"github.com/m3rciful/translatebot/internal/pricing"
	"github.com/m3rciful/translatebot/internal/translate"
	"github.com/m3rciful/translatebot/internal/wallet"

	tg "github.com/m3rciful/translatebot/core/telegram"
	tele "gopkg.in/telebot.v4"
)

// App holds the assembled bot.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	registry *tg.Registry
	handlers *translate.Handlers
	bridge   *payment.Bridge
	wallet   *wallet.Service
}

// Bootstrap initializes logging, storage, and all services.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	walletSvc := wallet.NewService(wallet.NewPostgresStore(res.DB))
	policy := pricing.NewPolicy(cfg.Pricing.BaseRatePerMillionChars, cfg.Pricing.ConversionRate)

	docs, err := document.NewStore(cfg.Translation.TmpDir)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	translator := deepl.NewClient(deepl.Config{APIKey: cfg.DeepL.APIKey})
	states := state.NewMemoryManager()

	wf := translate.NewWorkflow(states, walletSvc, policy, translator, docs, translate.Options{
		DocumentMode: cfg.DeepL.DocumentMode,
		TopUpAmounts: cfg.Payments.TopUpAmounts,
	})
	bridge := payment.NewBridge(walletSvc, cfg.Payments.ProviderToken)
	handlers := translate.NewHandlers(wf, bridge)

	a := &App{
		cfg:      cfg,
		db:       res.DB,
		handlers: handlers,
		bridge:   bridge,
		wallet:   walletSvc,
	}
	a.registry = a.buildRegistry()
	return a, nil
}

func (a *App) buildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handlers.StartCommand,
		Description: "Upload a document for translation",
	})
	reg.RegisterCommand("/balance", commands.Command{
		Handler:     a.handlers.BalanceCommand,
		Description: "Show your prepaid balance",
	})
	reg.RegisterCommand("/grant", commands.Command{
		Handler:     a.grantCommand,
		Description: "Credit a user's balance",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(translate.CallbackApprove, a.handlers.ApproveCallback)
	_ = reg.RegisterCallback(translate.CallbackCancel, a.handlers.CancelCallback)
	_ = reg.RegisterCallback(translate.CallbackLanguage, a.handlers.LanguageCallback)
	_ = reg.RegisterCallback(translate.CallbackTopUp, a.handlers.TopUpCallback)
	_ = reg.RegisterCallback(translate.CallbackShowBalance, a.handlers.BalanceCallback)

	return reg
}

// grantCommand credits a user's wallet manually: /grant <user_id> <amount>.
func (a *App) grantCommand(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /grant <user_id> <amount>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Invalid user id.")
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return c.Send("Invalid amount.")
	}
	bal, err := a.wallet.Credit(context.Background(), userID, amount)
	if err != nil {
		return c.Send("Credit failed: " + err.Error())
	}
	return c.Send(fmt.Sprintf("Credited %.2f RUB to %d, balance is now %.2f RUB.", amount, userID, bal))
}

// TelegramRunOptions builds the transport wiring for core/cmd.Run.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{})...)
	routes = append(routes,
		tg.Route{Endpoint: tele.OnCheckout, Handler: a.bridge.HandleCheckout},
		tg.Route{Endpoint: tele.OnPayment, Handler: a.bridge.HandlePayment(a.handlers.PaymentConfirmed)},
	)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
