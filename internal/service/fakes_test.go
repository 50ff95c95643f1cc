package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/repo"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/service"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User

	// behavior
	getErr    error
	updateErr error
}

var _ repo.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[int64]*model.User)}
	for _, u := range users {
		f.byID[u.ID] = &u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) get(phone string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *fakeUsers) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u := f.get(phone); u != nil {
		return u, nil
	}
	return nil, repo.ErrUserNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Create(ctx context.Context, phone string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &model.User{ID: f.nextID, PhoneNumber: phone, IsActive: true}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) update(id int64, fn func(u *model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return repo.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) Deactivate(ctx context.Context, id int64) error {
	return f.update(id, func(u *model.User) { u.IsActive = false })
}

func (f *fakeUsers) Blacklist(ctx context.Context, id int64) error {
	return f.update(id, func(u *model.User) { u.IsBlacklisted = true; u.IsActive = false })
}

func (f *fakeUsers) UpdatePreferences(ctx context.Context, id int64, prefs model.Preferences) error {
	return f.update(id, func(u *model.User) {
		day, hour := prefs.Day, prefs.Hour
		u.PreferredDay, u.PreferredHour = &day, &hour
		u.IsActive = true
	})
}

func (f *fakeUsers) RecordQuestion(ctx context.Context, id int64, questionID int64, sentAt time.Time) error {
	return f.update(id, func(u *model.User) {
		u.LastQuestion = &questionID
		u.LastMessageAt = &sentAt
	})
}

func (f *fakeUsers) ListDue(ctx context.Context, day, hour int, sentBefore time.Time) ([]model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.byID {
		if !u.IsActive || u.IsBlacklisted || u.PreferredDay == nil || u.PreferredHour == nil {
			continue
		}
		if *u.PreferredDay != day || *u.PreferredHour != hour {
			continue
		}
		if u.LastMessageAt != nil && !u.LastMessageAt.Before(sentBefore) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

type sentMessage struct {
	To   string
	Kind model.DirectiveKind
	Body string
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []sentMessage

	fail bool
}

var _ service.ChannelClient = (*fakeChannel)(nil)

func (f *fakeChannel) record(to string, kind model.DirectiveKind, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("channel down")
	}
	f.sent = append(f.sent, sentMessage{To: to, Kind: kind, Body: body})
	return "wamid.test", nil
}

func (f *fakeChannel) SendText(ctx context.Context, to, body string) (string, error) {
	return f.record(to, model.DirectiveText, body)
}

func (f *fakeChannel) SendButtons(ctx context.Context, to, header, body, footer string, buttons []model.Button) (string, error) {
	return f.record(to, model.DirectiveButtons, body)
}

func (f *fakeChannel) SendList(ctx context.Context, to, header, body, footer, buttonText string, sections []model.ListSection) (string, error) {
	return f.record(to, model.DirectiveList, body)
}

func (f *fakeChannel) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}
