package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/cache"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/client"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/repo"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is reported in-band to the channel provider; the HTTP status stays 200.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const defaultSampleTimeout = 30 * time.Second

// Dispatcher runs inbound events through the engine and applies the outcome.
// Events for the same phone number are processed one at a time.
type Dispatcher struct {
	users  repo.UserRepository
	states cache.ConversationStore
	engine *Engine
	sender *Sender

	locks         keyedMutex
	sampleTimeout time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
	log           *slog.Logger
}

func NewDispatcher(users repo.UserRepository, states cache.ConversationStore, engine *Engine, sender *Sender, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		users:         users,
		states:        states,
		engine:        engine,
		sender:        sender,
		sampleTimeout: defaultSampleTimeout,
		now:           time.Now,
		log:           log.With("component", "dispatcher"),
	}
}

// WithSampleTimeout bounds the background sample question send.
func (d *Dispatcher) WithSampleTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.sampleTimeout = timeout
	}
	return d
}

// Wait blocks until background sends started by Handle have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) HandlePayload(ctx context.Context, p client.WebhookPayload) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("webhook panic recovered", "panic", r, "request_id", RequestID(ctx))
			res = Result{Status: StatusError, Message: "internal error"}
		}
	}()

	msg, ok := p.FirstMessage()
	if !ok {
		return Result{Status: StatusSuccess, Message: "No processable messages"}
	}
	return d.Handle(ctx, msg.Event())
}

func (d *Dispatcher) Handle(ctx context.Context, ev model.InboundEvent) Result {
	if ev.From == "" {
		return Result{Status: StatusSuccess, Message: "Incomplete message data"}
	}
	log := d.log.With("phone", ev.From, "request_id", RequestID(ctx))

	unlock := d.locks.Lock(ev.From)
	defer unlock()

	user, err := d.userFor(ctx, ev.From)
	if err != nil {
		log.Error("user lookup failed", "err", err)
		return Result{Status: StatusError, Message: "failed to load user"}
	}
	if user.IsBlacklisted {
		log.Info("ignoring blacklisted user")
		return Result{Status: StatusSuccess, Message: "User is blacklisted"}
	}

	conv, err := d.states.Get(ctx, ev.From)
	if err != nil {
		log.Error("conversation state lookup failed", "err", err)
		d.sender.Deliver(ctx, ev.From, []model.Directive{textDirective(msgInternalError)})
		return Result{Status: StatusError, Message: "failed to load conversation state"}
	}

	dec := d.engine.Decide(user, conv, ev)
	log = log.With("state", conv.State.String(), "next", dec.Next.State.String())
	if dec.Note != "" {
		log.Warn("conversation degraded", "reason", dec.Note, "kind", ev.Kind)
	}

	// A question only counts as delivered once the send succeeds; until then
	// the user keeps the state they were in.
	questionID := dec.Effects.RecordQuestion
	eff := dec.Effects
	eff.RecordQuestion = nil

	if err := d.apply(ctx, user.ID, eff, d.now()); err != nil {
		log.Error("user update failed", "err", err)
		d.sender.Deliver(ctx, ev.From, []model.Directive{textDirective(msgInternalError)})
		return Result{Status: StatusError, Message: "failed to update user"}
	}
	if questionID == nil {
		if err := d.states.Set(ctx, ev.From, dec.Next); err != nil {
			log.Error("conversation state update failed", "err", err)
			d.sender.Deliver(ctx, ev.From, []model.Directive{textDirective(msgInternalError)})
			return Result{Status: StatusError, Message: "failed to store conversation state"}
		}
	}

	sent, failed := d.sender.Deliver(ctx, ev.From, dec.Directives)
	if questionID != nil {
		if err := d.commitQuestion(ctx, user.ID, ev.From, *questionID, dec.Next, failed == 0); err != nil {
			log.Error("question bookkeeping failed", "err", err)
			return Result{Status: StatusError, Message: "failed to store conversation state"}
		}
	}
	if dec.Effects.SendSample {
		d.sendSample(RequestID(ctx), user.ID, ev.From)
	}
	if failed > 0 {
		log.Error("outbound send failed", "sent", sent, "failed", failed)
		return Result{Status: StatusError, Message: fmt.Sprintf("failed to send %d of %d messages", failed, sent+failed)}
	}

	log.Debug("message processed", "sent", sent)
	return Result{Status: StatusSuccess, Message: "Message processed"}
}

func (d *Dispatcher) userFor(ctx context.Context, phone string) (*model.User, error) {
	user, err := d.users.GetByPhone(ctx, phone)
	if errors.Is(err, repo.ErrUserNotFound) {
		user, err = d.users.Create(ctx, phone)
		if err == nil {
			d.log.Info("user created", "phone", phone, "user_id", user.ID)
		}
	}
	return user, err
}

func (d *Dispatcher) apply(ctx context.Context, userID int64, eff Effects, now time.Time) error {
	if eff.Deactivate {
		if err := d.users.Deactivate(ctx, userID); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
	}
	if eff.Preferences != nil {
		if err := d.users.UpdatePreferences(ctx, userID, *eff.Preferences); err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
	}
	if eff.RecordQuestion != nil {
		if err := d.users.RecordQuestion(ctx, userID, *eff.RecordQuestion, now); err != nil {
			return fmt.Errorf("record question: %w", err)
		}
	}
	return nil
}

// commitQuestion records a sent question and moves to next. When the send
// failed nothing is written, so the user is not left waiting on a question
// that never arrived.
func (d *Dispatcher) commitQuestion(ctx context.Context, userID int64, phone string, questionID int64, next model.ConversationState, delivered bool) error {
	if !delivered {
		return nil
	}
	if err := d.users.RecordQuestion(ctx, userID, questionID, d.now()); err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	return d.states.Set(ctx, phone, next)
}

func (d *Dispatcher) sendSample(requestID string, userID int64, phone string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(WithRequestID(context.Background(), requestID), d.sampleTimeout)
		defer cancel()

		pushed, err := d.pushQuestion(ctx, userID, phone, true, d.now())
		log := d.log.With("phone", phone, "request_id", requestID)
		switch {
		case err != nil:
			log.Error("sample question failed", "err", err)
		case !pushed:
			log.Info("sample question skipped")
		default:
			log.Info("sample question sent")
		}
	}()
}

// pushQuestion sends an unsolicited question under the user's lock. Samples
// go only to users still in SUBSCRIBED. Weekly questions go to any active
// user who is not in the middle of choosing a slot: the user row is the
// durable record, so a conversation that expired or was lost on restart
// still receives them. pushed is false when the user was skipped.
func (d *Dispatcher) pushQuestion(ctx context.Context, userID int64, phone string, sample bool, now time.Time) (pushed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	unlock := d.locks.Lock(phone)
	defer unlock()

	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive || user.IsBlacklisted {
		return false, nil
	}

	conv, err := d.states.Get(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("load conversation state: %w", err)
	}
	if !deliverable(conv.State, sample) {
		return false, nil
	}

	dec, ok := d.engine.Push(sample)
	if !ok {
		return false, errors.New("no question available")
	}

	sent, failed := d.sender.Deliver(ctx, phone, dec.Directives)
	if failed > 0 || sent == 0 {
		return false, fmt.Errorf("send failed (%d of %d)", failed, sent+failed)
	}
	if err := d.apply(ctx, userID, dec.Effects, now); err != nil {
		return true, err
	}
	if err := d.states.Set(ctx, phone, dec.Next); err != nil {
		return true, fmt.Errorf("store conversation state: %w", err)
	}
	return true, nil
}

func deliverable(st model.State, sample bool) bool {
	if sample {
		return st == model.StateSubscribed
	}
	switch st {
	case model.StateAwaitingConfirmation, model.StateAwaitingDay, model.StateAwaitingHour:
		return false
	}
	return true
}
