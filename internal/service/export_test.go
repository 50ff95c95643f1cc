package service

import (
	"context"
	"time"
)

func (d *Dispatcher) PushQuestion(ctx context.Context, userID int64, phone string, sample bool) (bool, error) {
	return d.pushQuestion(ctx, userID, phone, sample, time.Now())
}
