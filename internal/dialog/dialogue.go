package dialog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/todobot/core/fsm"
	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/telegram/transport"
	"github.com/m3rciful/todobot/internal/tasks"
)

// DefaultTrigger starts a conversation when sent as a reply.
const DefaultTrigger = "/todo"

// Texts shown to the user.
const (
	TextNeedReply      = "Reply to the message the task should be created from"
	TextAck            = "I'll ask a few questions and create a task."
	TextTypePrompt     = "Bug or task?"
	TextBoardPrompt    = "Which board does it go to?"
	TextSeverityPrompt = "How urgent is it?"
	TextAssigneePrompt = "Who should it be assigned to?"
	TextHeaderPrompt   = "Issue title?"
)

// Transport sends and edits prompt messages.
type Transport interface {
	Send(ctx context.Context, p transport.Prompt) (transport.MessageRef, error)
	Edit(ctx context.Context, ref transport.MessageRef, p transport.Prompt) error
}

// Draft holds the answers collected so far.
type Draft struct {
	Body     string
	Header   string
	Board    string
	Severity string
	Assignee string
	Type     string
}

// Summary renders the final message for d.
func (d Draft) Summary() string {
	return fmt.Sprintf("Creating %s: %s %s %s %s %s", d.Type, d.Body, d.Header, d.Assignee, d.Board, d.Severity)
}

// Choices holds the ordered button sets of the choice states.
type Choices struct {
	Types      []transport.Choice
	Boards     []transport.Choice
	Severities []transport.Choice
	Assignees  []transport.Choice
}

// DefaultChoices returns the stock button sets.
func DefaultChoices() Choices {
	return Choices{
		Types: []transport.Choice{
			{Label: "🐛 Bug", Value: "Bug"},
			{Label: "✔️ Task", Value: "Task"},
		},
		Boards: []transport.Choice{
			{Label: "Backend", Value: "BAC"},
			{Label: "Frontend", Value: "FRONT"},
			{Label: "Devops", Value: "DEVOPS"},
		},
		Severities: []transport.Choice{
			{Label: "😴 Lowest", Value: "Lowest"},
			{Label: "🥱 Low", Value: "Low"},
			{Label: "Medium", Value: "Medium"},
			{Label: "🏃 High", Value: "High"},
			{Label: "🔥 Highest", Value: "Highest"},
		},
		Assignees: []transport.Choice{
			{Label: "Nobody", Value: "None"},
			{Label: "A", Value: "A"},
			{Label: "B", Value: "B"},
			{Label: "C", Value: "C"},
			{Label: "D", Value: "D"},
		},
	}
}

// Options configures a Dialogue.
type Options struct {
	// Trigger is the command that starts a conversation; defaults to DefaultTrigger.
	Trigger string
	// BotName restricts the addressed form of Trigger (/todo@name). Empty accepts any name.
	BotName string
	Choices Choices
	// Tasks receives every finalized draft. Nil drops them.
	Tasks   tasks.Submitter
	Metrics *metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Trigger == "" {
		o.Trigger = DefaultTrigger
	}
	def := DefaultChoices()
	if len(o.Choices.Types) == 0 {
		o.Choices.Types = def.Types
	}
	if len(o.Choices.Boards) == 0 {
		o.Choices.Boards = def.Boards
	}
	if len(o.Choices.Severities) == 0 {
		o.Choices.Severities = def.Severities
	}
	if len(o.Choices.Assignees) == 0 {
		o.Choices.Assignees = def.Assignees
	}
	return o
}

// Dialogue is the conversation of one user. It is not safe for concurrent use.
type Dialogue struct {
	machine   *fsm.Machine[State, Event]
	transport Transport
	opts      Options

	chatID int64
	userID int64

	draft  Draft
	prompt *transport.MessageRef
}

// New builds a dialogue sitting in StateInit. chatID is where prompts and the summary go.
func New(tr Transport, chatID, userID int64, opts Options) (*Dialogue, error) {
	d := &Dialogue{
		transport: tr,
		opts:      opts.withDefaults(),
		chatID:    chatID,
		userID:    userID,
	}

	table := fsm.Table[State, Event]{
		StateInit: {
			Enter:  d.enterInit,
			Handle: d.handleInit,
		},
		StateWaitForType: {
			Enter:  d.menuEnter(TextTypePrompt, d.opts.Choices.Types),
			Handle: d.handleChoice(&d.draft.Type, StateWaitForBoard),
		},
		StateWaitForBoard: {
			Enter:  d.menuEnter(TextBoardPrompt, d.opts.Choices.Boards),
			Handle: d.handleChoice(&d.draft.Board, StateWaitForSeverity),
		},
		StateWaitForSeverity: {
			Enter:  d.menuEnter(TextSeverityPrompt, d.opts.Choices.Severities),
			Handle: d.handleChoice(&d.draft.Severity, StateWaitForAssignee),
		},
		StateWaitForAssignee: {
			Enter:  d.menuEnter(TextAssigneePrompt, d.opts.Choices.Assignees),
			Handle: d.handleChoice(&d.draft.Assignee, StateWaitForHeader),
		},
		StateWaitForHeader: {
			Enter:  d.enterHeader,
			Handle: d.handleHeader,
		},
	}

	m, err := fsm.New(StateInit, States(), table, fsm.WithObserver(d.observe))
	if err != nil {
		return nil, fmt.Errorf("dialog: %w", err)
	}
	d.machine = m
	return d, nil
}

// State returns the current state.
func (d *Dialogue) State() State { return d.machine.State() }

// Draft returns the answers collected so far.
func (d *Dialogue) Draft() Draft { return d.draft }

// ChatID returns the chat prompts are sent to.
func (d *Dialogue) ChatID() int64 { return d.chatID }

// Prompt returns the message currently edited in place, if any.
func (d *Dialogue) Prompt() (transport.MessageRef, bool) {
	if d.prompt == nil {
		return transport.MessageRef{}, false
	}
	return *d.prompt, true
}

// Transition moves the machine to next. On error nothing changes.
func (d *Dialogue) Transition(ctx context.Context, next State) error {
	return d.guard(func() error { return d.machine.Transition(ctx, next) })
}

// Dispatch hands ev to the current state. When a transport call fails the error is returned
// and the state, the draft and the prompt reference keep their previous values.
func (d *Dialogue) Dispatch(ctx context.Context, ev Event) error {
	if ev == nil {
		return nil
	}
	return d.guard(func() error { return d.machine.Dispatch(ctx, ev) })
}

func (d *Dialogue) guard(fn func() error) error {
	draft := d.draft
	var prompt *transport.MessageRef
	if d.prompt != nil {
		ref := *d.prompt
		prompt = &ref
	}
	if err := fn(); err != nil {
		d.draft = draft
		d.prompt = prompt
		return err
	}
	return nil
}

func (d *Dialogue) observe(ctx context.Context, from, to State) {
	d.opts.Metrics.ObserveTransition(from.String(), to.String())
	logger.Debug(ctx, logger.CompFSM, "fsm.transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int64("user_id", d.userID),
	)
}

func (d *Dialogue) handleInit(ctx context.Context, ev Event) error {
	msg, ok := ev.(TextEvent)
	if !ok || !isCommand(msg.Text, d.opts.Trigger, d.opts.BotName) {
		return nil
	}
	if msg.ReplyTo == nil {
		_, err := d.transport.Send(ctx, transport.Prompt{ChatID: msg.ChatID, Text: TextNeedReply, ReplyTo: msg.MessageID})
		return err
	}

	d.draft.Body = msg.ReplyTo.Text
	if _, err := d.transport.Send(ctx, transport.Prompt{ChatID: msg.ChatID, Text: TextAck, ReplyTo: msg.MessageID}); err != nil {
		return err
	}
	return d.machine.Transition(ctx, StateWaitForType)
}

func (d *Dialogue) handleChoice(field *string, next State) fsm.EventFunc[Event] {
	return func(ctx context.Context, ev Event) error {
		choice, ok := ev.(ChoiceEvent)
		if !ok {
			return nil
		}
		*field = choice.Value
		return d.machine.Transition(ctx, next)
	}
}

func (d *Dialogue) handleHeader(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case TextEvent:
		d.draft.Header = e.Text
	case ChoiceEvent:
		d.draft.Header = e.Value
	default:
		return nil
	}
	return d.machine.Transition(ctx, StateInit)
}

// menuEnter shows text with choices, editing the current prompt when there is one.
func (d *Dialogue) menuEnter(text string, choices []transport.Choice) fsm.EnterFunc[State] {
	return func(ctx context.Context, _ State) error {
		p := transport.Prompt{ChatID: d.chatID, Text: text, Choices: choices}
		if d.prompt != nil {
			return d.transport.Edit(ctx, *d.prompt, p)
		}
		ref, err := d.transport.Send(ctx, p)
		if err != nil {
			return err
		}
		d.prompt = &ref
		return nil
	}
}

// enterHeader drops the keyboard and asks for free text.
func (d *Dialogue) enterHeader(ctx context.Context, _ State) error {
	p := transport.Prompt{ChatID: d.chatID, Text: TextHeaderPrompt}
	if d.prompt == nil {
		_, err := d.transport.Send(ctx, p)
		return err
	}
	if err := d.transport.Edit(ctx, *d.prompt, p); err != nil {
		return err
	}
	d.prompt = nil
	return nil
}

// enterInit posts the summary and resets the draft. Entering from Init does nothing.
func (d *Dialogue) enterInit(ctx context.Context, prev State) error {
	if prev == StateInit {
		return nil
	}
	if _, err := d.transport.Send(ctx, transport.Prompt{ChatID: d.chatID, Text: d.draft.Summary()}); err != nil {
		return err
	}
	if d.opts.Tasks != nil {
		d.opts.Tasks.Submit(ctx, tasks.New(tasks.Task{
			Type:     d.draft.Type,
			Body:     d.draft.Body,
			Header:   d.draft.Header,
			Board:    d.draft.Board,
			Severity: d.draft.Severity,
			Assignee: d.draft.Assignee,
			ChatID:   d.chatID,
			UserID:   d.userID,
		}))
	}
	d.draft = Draft{}
	return nil
}
