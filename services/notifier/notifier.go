// Package notifier sends scheduled deadline digests to enrolled users.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"orbitbot/lib/scrapers/orbit"
	"orbitbot/lib/timezone"
	"orbitbot/services/userstore"
)

var tracer = otel.Tracer("services/notifier")

// Sender delivers a digest message to a chat. The bot service
// implements it.
type Sender interface {
	Send(chatID int64, message string) error
}

type Options struct {
	PortalUrl string
	LmsUrl    string
	// cron expressions, defaulted when empty
	DailySpec  string
	WeeklySpec string
}

type Scheduler struct {
	cron   *cron.Cron
	store  userstore.Store
	sender Sender
	opts   Options
}

func NewScheduler(store userstore.Store, sender Sender, opts Options) *Scheduler {
	if opts.DailySpec == "" {
		opts.DailySpec = "0 6 * * *"
	}
	if opts.WeeklySpec == "" {
		opts.WeeklySpec = "0 6 * * 0"
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(timezone.Location)),
		store:  store,
		sender: sender,
		opts:   opts,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.opts.DailySpec, func() {
		s.RunDigest(context.Background(), userstore.ScheduleDaily, time.Hour*24)
	})
	if err != nil {
		return err
	}
	_, err = s.cron.AddFunc(s.opts.WeeklySpec, func() {
		s.RunDigest(context.Background(), userstore.ScheduleWeekly, time.Hour*24*7)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDigest fans a digest out to every user subscribed to the given
// mode, one goroutine per user. A user's failure never blocks the
// rest.
func (s *Scheduler) RunDigest(ctx context.Context, mode userstore.ScheduleMode, window time.Duration) {
	ctx, span := tracer.Start(ctx, "RunDigest")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(mode)))

	users, err := s.store.ListUsersByScheduleMode(ctx, mode)
	if err != nil {
		slog.ErrorContext(ctx, "list digest users", "mode", mode, "err", err)
		return
	}
	span.SetAttributes(attribute.Int("users", len(users)))

	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user userstore.User) {
			defer wg.Done()
			if err := s.digestUser(ctx, user, window); err != nil {
				slog.ErrorContext(ctx, "user digest", "chat", user.ID, "err", err)
			}
		}(user)
	}
	wg.Wait()
}

func (s *Scheduler) digestUser(ctx context.Context, user userstore.User, window time.Duration) error {
	client, err := orbit.NewClient(ctx, orbit.ClientOptions{
		PortalUrl: s.opts.PortalUrl,
		LmsUrl:    s.opts.LmsUrl,
		Credential: orbit.Credential{
			Identity:   user.Username,
			Secret:     user.Password,
			ActiveYear: user.ActiveYear,
		},
	})
	if err != nil {
		return err
	}

	res, err := client.UpcomingEvents(ctx, timezone.Now().Add(window))
	if err != nil {
		return err
	}
	if !res.Ok() {
		// digests are best-effort, a broken login only reaches the user
		// when they can act on it
		if res.Error == orbit.ErrWrongCredentials || res.Error == orbit.ErrMustChangePassword {
			return s.sender.Send(user.ID, "I couldn't log into the portal for your digest. Run /update_user.")
		}
		return fmt.Errorf("digest scrape: %s", res.Error)
	}
	if len(res.Value) == 0 {
		return nil
	}
	return s.sender.Send(user.ID, digestMessage(res.Value, window))
}

func digestMessage(events []orbit.Event, window time.Duration) string {
	var b strings.Builder
	if window > time.Hour*24 {
		b.WriteString("Due this week:\n")
	} else {
		b.WriteString("Due in the next 24 hours:\n")
	}
	for _, e := range events {
		fmt.Fprintf(&b, "• %s · %s · %s\n", e.CourseName, e.Title, e.EndTime.Format("Mon 02/01 15:04"))
	}
	return strings.TrimSpace(b.String())
}
