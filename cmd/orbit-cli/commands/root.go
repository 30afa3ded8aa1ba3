package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"orbitbot/lib/configutil"
	"orbitbot/lib/scrapers/orbit"
	"orbitbot/lib/serviceutil"
	"orbitbot/lib/timetable"
)

var rootCmd = &cobra.Command{
	Use:   "orbit-cli",
	Short: "orbit-cli scrapes the student portal from the terminal.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	ActiveYear int    `json:"active_year"`
	PortalUrl  string `json:"portal_url"`
	LmsUrl     string `json:"lms_url"`
	FontPath   string `json:"font_path"`
}

func createClient(ctx context.Context) (*orbit.Client, Config) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	client, err := orbit.NewClient(ctx, orbit.ClientOptions{
		PortalUrl: cfg.PortalUrl,
		LmsUrl:    cfg.LmsUrl,
		Credential: orbit.Credential{
			Identity:   cfg.Username,
			Secret:     cfg.Password,
			ActiveYear: cfg.ActiveYear,
		},
		Renderer: &timetable.Renderer{FontPath: cfg.FontPath},
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}
	return client, cfg
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Minute*3)
}

// unwrap exits with the envelope's failure text unless the operation
// succeeded, printing warnings either way.
func unwrap[T any](res orbit.Result[T], err error) T {
	if err != nil {
		serviceutil.Fatal("scrape failed", err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if !res.Ok() {
		fmt.Fprintln(os.Stderr, "error:", res.Error)
		os.Exit(1)
	}
	return res.Value
}
