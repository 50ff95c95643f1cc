package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Delivery sends the weekly question to every user whose slot matches the
// current local day and hour. It is triggered from outside, by the scheduler.
type Delivery struct {
	dispatcher  *Dispatcher
	loc         *time.Location
	concurrency int
	log         *slog.Logger
}

func NewDelivery(d *Dispatcher, loc *time.Location, concurrency int) *Delivery {
	if loc == nil {
		loc = time.UTC
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Delivery{
		dispatcher:  d,
		loc:         loc,
		concurrency: concurrency,
		log:         d.log.With("component", "delivery"),
	}
}

// Slot converts t to the (day, hour) pair stored in user preferences,
// where day 0 is Monday.
func (dl *Delivery) Slot(t time.Time) (day, hour int) {
	local := t.In(dl.loc)
	return (int(local.Weekday()) + 6) % 7, local.Hour()
}

// SendDue pushes a question to every due user. Users messaged within the
// last hour are skipped so repeated ticks inside one hour send once.
func (dl *Delivery) SendDue(ctx context.Context, now time.Time) (sent, failed int, err error) {
	day, hour := dl.Slot(now)
	users, err := dl.dispatcher.users.ListDue(ctx, day, hour, now.Add(-time.Hour))
	if err != nil {
		return 0, 0, fmt.Errorf("list due users: %w", err)
	}
	if len(users) == 0 {
		return 0, 0, nil
	}

	var nSent, nFailed atomic.Int64
	var g errgroup.Group
	g.SetLimit(dl.concurrency)

	for _, u := range users {
		g.Go(func() error {
			pushed, err := dl.dispatcher.pushQuestion(ctx, u.ID, u.PhoneNumber, false, now)
			switch {
			case err != nil:
				nFailed.Add(1)
				dl.log.Error("weekly question failed", "phone", u.PhoneNumber, "err", err)
			case pushed:
				nSent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	dl.log.Info("weekly delivery finished",
		"day", DayName(day), "hour", hour, "due", len(users),
		"sent", nSent.Load(), "failed", nFailed.Load())
	return int(nSent.Load()), int(nFailed.Load()), nil
}
