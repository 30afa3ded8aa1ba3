// Package bot is the Telegram front end over the portal scraping
// client.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"gopkg.in/telebot.v3"

	"orbitbot/lib/scrapers/orbit"
	"orbitbot/services/userstore"
)

var tracer = otel.Tracer("services/bot")

const commandTimeout = time.Minute * 3

type Options struct {
	PortalUrl string
	LmsUrl    string
	// used by /timetable, may be nil to disable the command
	Renderer orbit.TimetableRenderer
}

type Service struct {
	bot      *telebot.Bot
	store    userstore.Store
	sessions sessionCache
	pending  *pendingStore
}

func NewService(b *telebot.Bot, store userstore.Store, opts Options) *Service {
	return &Service{
		bot:      b,
		store:    store,
		sessions: newSessionCache(store, opts.PortalUrl, opts.LmsUrl, opts.Renderer),
		pending:  newPendingStore(),
	}
}

// Register wires every command handler onto the bot.
func (s *Service) Register() {
	s.bot.Handle("/start", s.handleStart)
	s.bot.Handle("/update_user", s.handleUpdateUser)
	s.bot.Handle("/cancel", s.handleCancel)
	s.bot.Handle("/grades", s.handleGrades)
	s.bot.Handle("/exams", s.handleExams)
	s.bot.Handle("/events", s.handleEvents)
	s.bot.Handle("/documents", s.handleDocuments)
	s.bot.Handle("/timetable", s.handleTimetable)
	s.bot.Handle("/register", s.handleRegister)
	s.bot.Handle("/change_password", s.handleChangePassword)
	s.bot.Handle("/schedule", s.handleSchedule)
	s.bot.Handle("/set_year", s.handleSetYear)
	s.bot.Handle(telebot.OnText, s.handleText)
	s.bot.Handle(&documentButton, s.handleDocumentButton)
}

func (s *Service) Start() {
	s.bot.Start()
}

func (s *Service) Stop() {
	s.bot.Stop()
}

// Send delivers a plain message outside any command exchange. The
// notifier uses it for scheduled digests.
func (s *Service) Send(chatID int64, message string) error {
	_, err := s.bot.Send(telebot.ChatID(chatID), message)
	return err
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// client resolves the chat's cached scraping session, prompting for
// enrollment when the chat is unknown.
func (s *Service) client(ctx context.Context, c telebot.Context) (*orbit.Client, error) {
	client, err := s.sessions.Get(ctx, c.Sender().ID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, c.Send("I don't know you yet. Run /update_user first.")
	}
	if err != nil {
		slog.ErrorContext(ctx, "resolve session", "chat", c.Sender().ID, "err", err)
		return nil, c.Send("Something went wrong on my side. Try again later.")
	}
	return client, nil
}

// reply renders an operation envelope: warnings first, then either the
// rendered value or the failure text. Failed envelopes poison the
// client's latch, so the cached session is dropped.
func reply[T any](s *Service, c telebot.Context, res orbit.Result[T], err error, render func(T) error) error {
	if err != nil {
		slog.Error("scrape failed", "chat", c.Sender().ID, "err", err)
		s.sessions.Invalidate(c.Sender().ID)
		return c.Send("Something went wrong on my side. Try again later.")
	}
	if prefix := warningsPrefix(res.Warnings); prefix != "" {
		if err := c.Send(strings.TrimSpace(prefix)); err != nil {
			return err
		}
	}
	if !res.Ok() {
		s.sessions.Invalidate(c.Sender().ID)
		return c.Send(errorMessage(res.Error))
	}
	return render(res.Value)
}

func (s *Service) handleStart(c telebot.Context) error {
	return c.Send("Hi! I fetch your grades, exams and deadlines from the student portal.\n" +
		"Run /update_user to connect your portal account, then try /grades, /exams, /events, " +
		"/documents, /timetable, /register, /schedule.")
}

func (s *Service) handleUpdateUser(c telebot.Context) error {
	s.pending.Begin(c.Sender().ID)
	return c.Send("What is your portal username? (/cancel to stop)")
}

func (s *Service) handleCancel(c telebot.Context) error {
	s.pending.Drop(c.Sender().ID)
	return c.Send("Cancelled.")
}

// handleText is the second and third leg of the credential
// conversation; messages from chats with no pending state are ignored.
func (s *Service) handleText(c telebot.Context) error {
	id := c.Sender().ID
	state, ok := s.pending.State(id)
	if !ok {
		return nil
	}

	if !state.haveUsername {
		s.pending.SetUsername(id, strings.TrimSpace(c.Text()))
		return c.Send("And your portal password? (I recommend deleting that message afterwards.)")
	}

	password := strings.TrimSpace(c.Text())
	s.pending.Drop(id)

	ctx, cancel := commandContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "EnrollUser")
	defer span.End()

	err := s.store.UpsertUser(ctx, userstore.User{
		ID:       id,
		Username: state.username,
		Password: password,
	})
	if err != nil {
		slog.ErrorContext(ctx, "enroll user", "chat", id, "err", err)
		return c.Send("Something went wrong on my side. Try again later.")
	}
	s.sessions.Invalidate(id)

	// probe the credentials right away so typos surface now, not at 6am
	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.ConnectOrbit(ctx)
	return reply(s, c, res, err, func(bool) error {
		return c.Send("Connected! Try /grades.")
	})
}

func (s *Service) handleGrades(c telebot.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.Grades(ctx)
	return reply(s, c, res, err, func(grades []orbit.Grade) error {
		return c.Send(formatGrades(grades))
	})
}

func (s *Service) handleExams(c telebot.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.Exams(ctx)
	return reply(s, c, res, err, func(exams []orbit.Exam) error {
		return c.Send(formatExams(exams))
	})
}

func (s *Service) handleEvents(c telebot.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.UpcomingEvents(ctx, time.Time{})
	return reply(s, c, res, err, func(events []orbit.Event) error {
		return c.Send(formatEvents(events))
	})
}

var documentButton = telebot.Btn{Unique: "document"}

var documentChoices = []orbit.Document{
	orbit.DocStudentPermit,
	orbit.DocStudentPermitEnglish,
	orbit.DocRegistrationApproval,
	orbit.DocGradeSheet,
	orbit.DocGradeSheetEnglish,
	orbit.DocTuitionFees,
	orbit.DocEnglishLevel,
}

func (s *Service) handleDocuments(c telebot.Context) error {
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	for _, doc := range documentChoices {
		btn := markup.Data(doc.Label(), documentButton.Unique, strconv.Itoa(int(doc)))
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)
	return c.Send("Which document?", markup)
}

func (s *Service) handleDocumentButton(c telebot.Context) error {
	defer c.Respond()

	id, err := strconv.Atoi(strings.TrimSpace(c.Data()))
	if err != nil {
		return c.Send("That button looks stale, run /documents again.")
	}
	doc := orbit.Document(id)

	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.Document(ctx, doc)
	return reply(s, c, res, err, func(data []byte) error {
		return c.Send(&telebot.Document{
			File:     telebot.FromReader(bytes.NewReader(data)),
			FileName: doc.Filename(),
		})
	})
}

func (s *Service) handleTimetable(c telebot.Context) error {
	semester := 1
	if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		parsed, err := strconv.Atoi(payload)
		if err != nil || parsed < 1 || parsed > 3 {
			return c.Send("Usage: /timetable <semester>, e.g. /timetable 2")
		}
		semester = parsed
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.Timetable(ctx, semester)
	return reply(s, c, res, err, func(file orbit.TimetableFile) error {
		return c.Send(&telebot.Document{
			File:     telebot.FromReader(bytes.NewReader(file.Data)),
			FileName: file.Name,
		})
	})
}

func (s *Service) handleRegister(c telebot.Context) error {
	class := strings.TrimSpace(c.Message().Payload)
	if class == "" {
		return c.Send("Usage: /register <class group>, e.g. /register 02")
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}

	lessonsRes, err := client.Lessons(ctx)
	return reply(s, c, lessonsRes, err, func(lessons []orbit.Lesson) error {
		known := map[string]bool{}
		for _, lesson := range lessons {
			known[lesson.Class] = true
		}
		if !known[class] {
			classes := make([]string, 0, len(known))
			for k := range known {
				classes = append(classes, k)
			}
			sort.Strings(classes)
			if suggestion := closestClass(class, classes); suggestion != "" {
				return c.Send(fmt.Sprintf("No lessons for class %q. Did you mean %q?", class, suggestion))
			}
			return c.Send(fmt.Sprintf("No lessons for class %q. Open classes: %s", class, strings.Join(classes, ", ")))
		}

		res, err := client.RegisterClass(ctx, class)
		return reply(s, c, res, err, func(outcome orbit.ClassRegistration) error {
			var b strings.Builder
			for _, lesson := range outcome.Registered {
				b.WriteString("✅ " + lesson + "\n")
			}
			for _, lesson := range outcome.Failed {
				b.WriteString("❌ " + lesson + "\n")
			}
			if b.Len() == 0 {
				return c.Send("Nothing left to register for that class.")
			}
			return c.Send(b.String())
		})
	})
}

func (s *Service) handleChangePassword(c telebot.Context) error {
	newPassword := strings.TrimSpace(c.Message().Payload)
	if newPassword == "" {
		return c.Send("Usage: /change_password <new password>")
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := s.client(ctx, c)
	if client == nil {
		return err
	}
	res, err := client.ChangePassword(ctx, newPassword)
	return reply(s, c, res, err, func(bool) error {
		if err := s.store.UpdatePassword(ctx, c.Sender().ID, newPassword); err != nil {
			slog.ErrorContext(ctx, "persist new password", "chat", c.Sender().ID, "err", err)
			return c.Send("The portal accepted the new password but I failed to save it. Run /update_user.")
		}
		s.sessions.Invalidate(c.Sender().ID)
		return c.Send("Password changed. (Delete that message!)")
	})
}

func (s *Service) handleSchedule(c telebot.Context) error {
	mode := userstore.ScheduleMode(strings.TrimSpace(c.Message().Payload))
	switch mode {
	case userstore.ScheduleNone, userstore.ScheduleDaily, userstore.ScheduleWeekly:
	default:
		return c.Send("Usage: /schedule <daily|weekly|none>")
	}

	ctx, cancel := commandContext()
	defer cancel()

	err := s.store.UpdateScheduleMode(ctx, c.Sender().ID, mode)
	if errors.Is(err, userstore.ErrNotFound) {
		return c.Send("I don't know you yet. Run /update_user first.")
	}
	if err != nil {
		slog.ErrorContext(ctx, "update schedule mode", "chat", c.Sender().ID, "err", err)
		return c.Send("Something went wrong on my side. Try again later.")
	}
	if mode == userstore.ScheduleNone {
		return c.Send("Digests off.")
	}
	return c.Send(fmt.Sprintf("You'll get a %s digest at 06:00.", mode))
}

func (s *Service) handleSetYear(c telebot.Context) error {
	payload := strings.TrimSpace(c.Message().Payload)
	year := 0
	if payload != "" {
		parsed, err := strconv.Atoi(payload)
		if err != nil {
			return c.Send("Usage: /set_year <year>, or /set_year 0 for the portal default")
		}
		year = parsed
	}

	ctx, cancel := commandContext()
	defer cancel()

	err := s.store.UpdateActiveYear(ctx, c.Sender().ID, year)
	if errors.Is(err, userstore.ErrNotFound) {
		return c.Send("I don't know you yet. Run /update_user first.")
	}
	if err != nil {
		slog.ErrorContext(ctx, "update active year", "chat", c.Sender().ID, "err", err)
		return c.Send("Something went wrong on my side. Try again later.")
	}
	s.sessions.Invalidate(c.Sender().ID)
	if year == 0 {
		return c.Send("Back to the portal's default year.")
	}
	return c.Send(fmt.Sprintf("Scraping against year %d from now on.", year))
}
