package main

import (
	"context"
	"os"
	"time"

	"orbitbot/lib/configutil"
	"orbitbot/lib/serviceutil"
	"orbitbot/lib/sqliteutil"
	"orbitbot/lib/telemetry"
	"orbitbot/lib/timetable"
	"orbitbot/services/bot"
	"orbitbot/services/notifier"
	"orbitbot/services/userstore"
	userstoredb "orbitbot/services/userstore/db"

	"github.com/joho/godotenv"
	"gopkg.in/telebot.v3"
)

type Config struct {
	TelegramToken string `json:"telegram_token"`
	Database      string `json:"database"`
	PortalUrl     string `json:"portal_url"`
	LmsUrl        string `json:"lms_url"`
	// unicode ttf for timetable rendering
	FontPath   string `json:"font_path"`
	DailySpec  string `json:"daily_spec"`
	WeeklySpec string `json:"weekly_spec"`
}

func main() {
	ctx := serviceutil.SignalContext()
	godotenv.Load()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.TelegramToken = token
	}
	if config.Database == "" {
		config.Database = "orbitbot.db"
	}

	err = telemetry.SetupFromEnv(ctx, "orbitbot")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InitSlog(false)
	telemetry.InstrumentPerfStats(ctx)

	database, err := sqliteutil.OpenDB(userstoredb.Schema, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer database.Close()
	store := userstore.NewStore(database)

	b, err := telebot.NewBot(telebot.Settings{
		Token:  config.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: time.Second * 10},
	})
	if err != nil {
		serviceutil.Fatal("failed to connect to telegram", err)
	}

	service := bot.NewService(b, store, bot.Options{
		PortalUrl: config.PortalUrl,
		LmsUrl:    config.LmsUrl,
		Renderer:  &timetable.Renderer{FontPath: config.FontPath},
	})
	service.Register()

	scheduler := notifier.NewScheduler(store, service, notifier.Options{
		PortalUrl:  config.PortalUrl,
		LmsUrl:     config.LmsUrl,
		DailySpec:  config.DailySpec,
		WeeklySpec: config.WeeklySpec,
	})
	err = scheduler.Start()
	if err != nil {
		serviceutil.Fatal("failed to start scheduler", err)
	}

	go service.Start()

	<-ctx.Done()
	scheduler.Stop()
	service.Stop()
}
