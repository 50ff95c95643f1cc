package service

import (
	"errors"
	"strconv"
	"strings"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/repo"
)

// defaultHour is stored when a day is picked from the list, which skips the
// hour question.
const defaultHour = 9

var (
	yesWords   = wordSet("si", "yes", "y")
	noWords    = wordSet("no", "n")
	stopWords  = wordSet("detener", "stop", "unsubscribe")
	startWords = wordSet("iniciar", "start", "subscribe")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[fold(w)] = struct{}{}
	}
	return m
}

func matches(set map[string]struct{}, text string) bool {
	_, ok := set[fold(text)]
	return ok
}

// Effects are the User Directory writes a decision asks for. The dispatcher
// applies them before storing the next conversation state.
type Effects struct {
	Deactivate     bool
	Preferences    *model.Preferences
	RecordQuestion *int64
	SendSample     bool
}

type Decision struct {
	Directives []model.Directive
	Next       model.ConversationState
	Effects    Effects

	// Note names a degraded condition worth logging. Empty on the happy path.
	Note string
}

// Engine maps (conversation state, inbound event) to a Decision. It performs
// no I/O besides reading the question bank.
type Engine struct {
	questions repo.QuestionStore
}

func NewEngine(questions repo.QuestionStore) *Engine {
	return &Engine{questions: questions}
}

func (e *Engine) Decide(user *model.User, conv model.ConversationState, ev model.InboundEvent) Decision {
	conv.State = conv.State.Normalize()

	switch conv.State {
	case model.StateAwaitingConfirmation:
		return e.onConfirmation(conv, ev)
	case model.StateAwaitingDay:
		return e.onDay(conv, ev)
	case model.StateAwaitingHour:
		return e.onHour(conv, ev)
	case model.StateSubscribed, model.StateAwaitingQuestionResponse:
		return e.onSubscribed(user, conv, ev)
	default:
		return Decision{
			Directives: []model.Directive{confirmationPrompt(msgWelcome)},
			Next:       model.At(model.StateAwaitingConfirmation),
		}
	}
}

// Push builds an unsolicited question for a subscribed user. Samples are
// sent as numbered text; weekly questions as a selectable list. ok is false
// when the bank is empty.
func (e *Engine) Push(sample bool) (Decision, bool) {
	q, ok := e.questions.RandomQuestion()
	if !ok {
		return Decision{}, false
	}
	d := questionList(q)
	if sample {
		d = sampleQuestion(q)
	}
	id := q.ID
	return Decision{
		Directives: []model.Directive{d},
		Next:       model.At(model.StateAwaitingQuestionResponse),
		Effects:    Effects{RecordQuestion: &id},
	}, true
}

func (e *Engine) onConfirmation(conv model.ConversationState, ev model.InboundEvent) Decision {
	switch {
	case isYes(ev):
		return Decision{
			Directives: []model.Directive{daySelection(msgChooseDay)},
			Next:       model.At(model.StateAwaitingDay),
		}
	case isNo(ev):
		return Decision{
			Directives: []model.Directive{textDirective(msgDeclined)},
			Next:       model.Initial(),
			Effects:    Effects{Deactivate: true},
		}
	default:
		return unchanged(conv, textDirective(msgNotUnderstood), "")
	}
}

func isYes(ev model.InboundEvent) bool {
	switch ev.Kind {
	case model.ButtonReply:
		return ev.SelectionID == "yes_button" || ev.SelectionID == "yes" || matches(yesWords, ev.SelectionTitle)
	case model.FreeText:
		return matches(yesWords, ev.Text)
	}
	return false
}

func isNo(ev model.InboundEvent) bool {
	switch ev.Kind {
	case model.ButtonReply:
		return ev.SelectionID == "no_button" || ev.SelectionID == "no" || matches(noWords, ev.SelectionTitle)
	case model.FreeText:
		return matches(noWords, ev.Text)
	}
	return false
}

func (e *Engine) onDay(conv model.ConversationState, ev model.InboundEvent) Decision {
	if ev.Kind == model.ListReply {
		day, ok := resolveDaySelection(ev.SelectionID, ev.SelectionTitle)
		if !ok {
			return unchanged(conv, textDirective(msgDayError), "invalid day selection")
		}

		prefs := &model.Preferences{Day: day, Hour: defaultHour}
		q, ok := e.questions.RandomQuestion()
		if !ok {
			d := unchanged(conv, textDirective(msgNoQuestions), "no question available")
			d.Effects.Preferences = prefs
			return d
		}
		id := q.ID
		return Decision{
			Directives: []model.Directive{questionList(q)},
			Next:       model.At(model.StateAwaitingQuestionResponse),
			Effects:    Effects{Preferences: prefs, RecordQuestion: &id},
		}
	}

	if ev.Kind == model.FreeText {
		if day, ok := ResolveDay(ev.Text); ok {
			return Decision{
				Directives: []model.Directive{hourPrompt(day)},
				Next:       model.ConversationState{State: model.StateAwaitingHour, PendingDay: &day},
			}
		}
	}
	return unchanged(conv, daySelection(msgDayNotUnderstood), "")
}

func (e *Engine) onHour(conv model.ConversationState, ev model.InboundEvent) Decision {
	if conv.PendingDay == nil || DayName(*conv.PendingDay) == "" {
		return Decision{
			Directives: []model.Directive{daySelection(msgChooseDay)},
			Next:       model.At(model.StateAwaitingDay),
			Note:       "hour received without a staged day",
		}
	}

	hour, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if ev.Kind != model.FreeText || err != nil {
		return unchanged(conv, textDirective(msgHourFormat), "")
	}
	if hour < 0 || hour > 23 {
		return unchanged(conv, textDirective(msgHourRange), "")
	}

	prefs := model.Preferences{Day: *conv.PendingDay, Hour: hour}
	return Decision{
		Directives: []model.Directive{subscribedConfirmation(prefs)},
		Next:       model.At(model.StateSubscribed),
		Effects:    Effects{Preferences: &prefs, SendSample: true},
	}
}

func (e *Engine) onSubscribed(user *model.User, conv model.ConversationState, ev model.InboundEvent) Decision {
	if ev.Kind == model.FreeText {
		switch {
		case matches(stopWords, ev.Text):
			return Decision{
				Directives: []model.Directive{textDirective(msgCancelled)},
				Next:       model.Initial(),
				Effects:    Effects{Deactivate: true},
			}
		case matches(startWords, ev.Text):
			return Decision{
				Directives: []model.Directive{confirmationPrompt(msgResubscribe)},
				Next:       model.At(model.StateAwaitingConfirmation),
			}
		}
	}

	if conv.State == model.StateAwaitingQuestionResponse {
		switch {
		case ev.Kind == model.ListReply:
			return e.answerFromList(user, conv, ev.SelectionID)
		case ev.Kind == model.FreeText && isDigits(ev.Text):
			return e.answerFromText(user, conv, strings.TrimSpace(ev.Text))
		}
	}
	return unchanged(conv, textDirective(msgCommands), "")
}

func (e *Engine) answerFromList(user *model.User, conv model.ConversationState, selectionID string) Decision {
	qid, option, err := ParseOptionID(selectionID)
	if err != nil {
		return unchanged(conv, textDirective(msgAnswerError), err.Error())
	}
	d := e.grade(conv, qid, option)
	if d.Next.State == model.StateSubscribed && d.Note == "" {
		d.Directives = []model.Directive{nextDeliveryReminder(d.Directives[0].Body, user)}
	}
	return d
}

func (e *Engine) answerFromText(user *model.User, conv model.ConversationState, text string) Decision {
	if user == nil || user.LastQuestion == nil {
		return Decision{
			Directives: []model.Directive{textDirective(msgNoPending)},
			Next:       model.At(model.StateSubscribed),
			Note:       "numeric answer without a recorded question",
		}
	}
	option, err := strconv.Atoi(text)
	if err != nil {
		// Too many digits for an int; grade it as out of range.
		option = 0
	}
	return e.grade(conv, *user.LastQuestion, option)
}

func (e *Engine) grade(conv model.ConversationState, qid int64, option int) Decision {
	q, err := e.questions.QuestionByID(qid)
	if err != nil {
		return Decision{
			Directives: []model.Directive{textDirective(msgAnswerError)},
			Next:       model.At(model.StateSubscribed),
			Note:       err.Error(),
		}
	}

	res, err := Grade(q, option)
	switch {
	case errors.Is(err, ErrOptionOutOfRange):
		return unchanged(conv, optionRangePrompt(q), "")
	case err != nil:
		return Decision{
			Directives: []model.Directive{textDirective(msgAnswerError)},
			Next:       model.At(model.StateSubscribed),
			Note:       err.Error(),
		}
	}
	return Decision{
		Directives: []model.Directive{textDirective(res.Feedback)},
		Next:       model.At(model.StateSubscribed),
	}
}

func unchanged(conv model.ConversationState, d model.Directive, note string) Decision {
	return Decision{Directives: []model.Directive{d}, Next: conv, Note: note}
}

func isDigits(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
