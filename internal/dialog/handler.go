package dialog

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/telegram/helpers"
	"github.com/m3rciful/todobot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// DefaultChoiceKey is the callback unique key of prompt buttons.
const DefaultChoiceKey = "todo"

// Handler routes Telegram updates to per-user sessions.
type Handler struct {
	transport Transport
	sessions  *state.Directory[*Session]
	opts      Options
	choiceKey string
	metrics   *metrics.Recorder
}

// NewHandler builds a handler. choiceKey is the callback unique key prompts are rendered
// with; empty selects DefaultChoiceKey.
func NewHandler(tr Transport, sessions *state.Directory[*Session], choiceKey string, opts Options) *Handler {
	if sessions == nil {
		sessions = state.NewDirectory[*Session]()
	}
	if choiceKey == "" {
		choiceKey = DefaultChoiceKey
	}
	return &Handler{
		transport: tr,
		sessions:  sessions,
		opts:      opts,
		choiceKey: choiceKey,
		metrics:   opts.Metrics,
	}
}

// Sessions returns the session directory.
func (h *Handler) Sessions() *state.Directory[*Session] {
	return h.sessions
}

// Handle is a telebot handler for every update kind the conversation consumes.
func (h *Handler) Handle(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return h.HandleEvent(ctx, EventFromContext(c, h.choiceKey))
}

// HandleEvent resolves the sender's session and dispatches ev to it.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) error {
	chatID, userID := ev.Sender()
	if userID == 0 {
		logger.Debug(ctx, logger.CompDialog, "dialog.dispatch",
			slog.String("status", "skip"),
			slog.String("kind", ev.Kind()),
			slog.String("cause", "no_sender"),
		)
		return nil
	}

	sess, created, err := h.sessions.GetOrCreate(userID, func() (*Session, error) {
		d, err := New(h.transport, chatID, userID, h.opts)
		if err != nil {
			return nil, err
		}
		if err := d.Transition(ctx, StateInit); err != nil {
			return nil, err
		}
		return NewSession(d), nil
	})
	if err != nil {
		logger.Error(ctx, logger.CompDialog, "session.create",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return err
	}
	if created {
		h.metrics.SetSessions(h.sessions.Len())
		logger.Debug(ctx, logger.CompDialog, "session.create",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.Int64("chat_id", chatID),
		)
	}

	start := time.Now()
	before, after, err := sess.Dispatch(ctx, ev)
	status := logger.Status(err)
	h.metrics.ObserveDialogEvent(before.String(), ev.Kind(), status)

	ctx = logger.WithState(ctx, before.String())
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("kind", ev.Kind()),
		slog.String("to", after.String()),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, logger.CompDialog, "dialog.dispatch", attrs...)
		return err
	}
	logger.Debug(ctx, logger.CompDialog, "dialog.dispatch", attrs...)
	return nil
}

// Active reports whether userID is in the middle of a dialogue.
func (h *Handler) Active(userID int64) bool {
	sess, ok := h.sessions.Lookup(userID)
	return ok && sess.State() != StateInit
}
