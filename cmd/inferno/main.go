package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/infernoscraper/inferno/internal/api"
	"github.com/infernoscraper/inferno/internal/config"
	"github.com/infernoscraper/inferno/internal/coordinator"
	"github.com/infernoscraper/inferno/internal/db"
	"github.com/infernoscraper/inferno/internal/ui"
)

func main() {
	// Show splash screen on startup
	ui.ShowSplash()

	cfg := config.Load()

	// Flags override .env and the environment
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite result archive")
	flag.StringVar(&cfg.APIBase, "api", cfg.APIBase, "Scrape service base URL")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")
	flag.StringVar(&cfg.DownloadFile, "download", cfg.DownloadFile, "Where d saves the filtered results (.txt or .csv)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}

	logger, logCloser, err := config.NewLogger(cfg.LogFile, cfg.LogLevel, "inferno")
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
	defer logCloser.Close()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Nepodarilo sa otvoriť archív: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	client, err := api.NewClient(
		api.WithBaseURL(cfg.APIBase),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
		api.WithUnauthorizedHandler(func() {
			logger.Warn("Service rejected the session token")
		}),
	)
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}

	coord := coordinator.New(client, coordinator.Options{
		PollInterval:     cfg.PollInterval,
		HealthInterval:   cfg.HealthInterval,
		WakeRecheck:      cfg.WakeRecheck,
		LoginMaxAttempts: cfg.LoginMaxAttempts,
		LoginLockout:     cfg.LoginLockout,
		ArchiveKeep:      cfg.ArchiveKeep,
		Archive:          database,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord.Run(ctx)
	defer coord.Close()

	logger.Info("Client started", "api", cfg.APIBase, "db", cfg.DBPath)

	app := &app{ctx: ctx, cfg: cfg, coord: coord, logger: logger, password: cfg.Password}
	if err := app.loop(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

type app struct {
	ctx      context.Context
	cfg      *config.Config
	coord    *coordinator.Coordinator
	logger   *log.Logger
	password string // from the environment, tried once
}

// loop alternates between the dashboard and the prompts its actions need
func (a *app) loop() error {
	for {
		if a.ctx.Err() != nil {
			return nil
		}

		if a.coord.AuthRequired() {
			ok, err := a.login()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		// Clear screen before launching the dashboard (avoids a ghost frame)
		fmt.Print("\033[H\033[2J")

		action, err := ui.RunDashboard(a.ctx, a.coord, a.cfg.DownloadFile)
		if err != nil {
			return fmt.Errorf("dashboard failed: %w", err)
		}

		if err := a.handle(action); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

var errQuit = errors.New("quit")

func (a *app) handle(action ui.Action) error {
	switch action {
	case ui.ActionQuit:
		return errQuit

	case ui.ActionLogin:
		// handled at the top of the loop

	case ui.ActionNewJob:
		filters, err := ui.PromptJobFilters("Nový zber", a.coord.Filters())
		if err != nil {
			return promptErr(err)
		}
		a.report(ui.RunWithSpinner("Spúšťam zber...", func() error {
			return a.coord.StartNew(a.ctx, filters)
		}))

	case ui.ActionPrevious:
		filters, err := ui.PromptJobFilters("Predchádzajúce výsledky", a.coord.Filters())
		if err != nil {
			return promptErr(err)
		}
		a.report(ui.RunWithSpinner("Načítavam históriu...", func() error {
			return a.coord.LoadPrevious(a.ctx, filters)
		}))

	case ui.ActionFacets:
		choice, err := ui.PromptFacets(a.coord.Facets(), a.coord.Selection())
		if err != nil {
			return promptErr(err)
		}
		a.coord.SetSubcategories(choice.Subcategories)
		a.coord.SetCities(choice.Cities)
		a.coord.SetZips(choice.Zips)

	case ui.ActionDateRange:
		start, end, err := ui.PromptDateRange(a.coord.Selection(), a.coord.Facets().DateRange)
		if err != nil {
			return promptErr(err)
		}
		a.report(a.coord.SetDateRangeInput(start, end))

	case ui.ActionFeedback:
		keyword, err := ui.PromptFeedback()
		if err != nil {
			return promptErr(err)
		}
		a.report(ui.RunWithSpinner("Odosielam...", func() error {
			return a.coord.SendFeedback(a.ctx, keyword)
		}))

	case ui.ActionRestart:
		ok, err := ui.Confirm("Reštartovať službu?", "Prebiehajúci zber sa preruší a služba bude asi minútu nedostupná.")
		if err != nil {
			return promptErr(err)
		}
		if ok {
			a.report(ui.RunWithSpinner("Reštartujem službu...", func() error {
				return a.coord.Restart(a.ctx)
			}))
		}

	case ui.ActionLogout:
		a.report(a.coord.Logout(a.ctx))
	}
	return nil
}

// promptErr treats a cancelled form as going back to the dashboard
func promptErr(err error) error {
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	return err
}

// report logs an intent error. The coordinator already queued a notice for
// the dashboard where the user needs one.
func (a *app) report(err error) {
	switch {
	case err == nil, errors.Is(err, coordinator.ErrSuperseded):
	case errors.Is(err, coordinator.ErrJobActive):
		a.logger.Debug("Start refused, job active")
	default:
		a.logger.Warn("Intent failed", "err", err)
	}
}

// login prompts until the service accepts a password. It returns false when
// the user gives up.
func (a *app) login() (bool, error) {
	fmt.Print("\033[H\033[2J")

	for attempt := 0; ; attempt++ {
		if wait := a.coord.LoginBlockedFor(); wait > 0 {
			ui.PrintError(fmt.Sprintf("Príliš veľa pokusov, skús znova o %d s.", int(wait.Round(time.Second).Seconds())))
			err := ui.RunWithSpinner("Čakám...", func() error {
				select {
				case <-time.After(wait):
					return nil
				case <-a.ctx.Done():
					return a.ctx.Err()
				}
			})
			if err != nil {
				return false, nil
			}
		}

		password := a.password
		a.password = ""
		if password == "" {
			var err error
			password, err = ui.PromptPassword(a.cfg.LoginMaxAttempts - attempt%a.cfg.LoginMaxAttempts)
			if errors.Is(err, ui.ErrCancelled) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
		}

		err := ui.RunWithSpinner("Prihlasujem...", func() error {
			return a.coord.Login(a.ctx, password)
		})
		switch {
		case err == nil:
			a.logger.Info("Logged in")
			return true, nil
		case errors.Is(err, coordinator.ErrLoginBlocked):
			attempt = -1
		case errors.Is(err, api.ErrInvalidPassword):
			ui.PrintError(err.Error())
		default:
			ui.PrintError(err.Error())
			a.logger.Error("Login failed", "err", err)
		}
	}
}
