package reaper

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	calls  int
	before time.Time
	n      int64
	err    error
}

func (f *fakeStore) DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error) {
	f.calls++
	f.before = before
	return f.n, f.err
}

func (f *fakeStore) DeleteByLastAttemptBefore(ctx context.Context, before time.Time) (int64, error) {
	f.calls++
	f.before = before
	return f.n, f.err
}

func TestSweepCutoffs(t *testing.T) {
	tokens := &fakeStore{n: 3}
	codes := &fakeStore{n: 2}
	attempts := &fakeStore{n: 1}

	r := New(tokens, codes, attempts)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Sweep(context.Background())

	if !tokens.before.Equal(now) {
		t.Errorf("token cutoff = %v, want %v", tokens.before, now)
	}
	if want := now.Add(-codeRetention); !codes.before.Equal(want) {
		t.Errorf("code cutoff = %v, want %v", codes.before, want)
	}
	if want := now.Add(-attemptRetention); !attempts.before.Equal(want) {
		t.Errorf("attempt cutoff = %v, want %v", attempts.before, want)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	tokens := &fakeStore{err: errors.New("relation missing")}
	codes := &fakeStore{}
	attempts := &fakeStore{}

	r := New(tokens, codes, attempts)
	r.Sweep(context.Background())

	if codes.calls != 1 || attempts.calls != 1 {
		t.Errorf("later sweeps ran %d/%d times, want 1/1 despite token sweep failure",
			codes.calls, attempts.calls)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	tokens := &fakeStore{}
	codes := &fakeStore{}
	attempts := &fakeStore{}

	r := New(tokens, codes, attempts)
	r.Sweep(context.Background())
	r.Sweep(context.Background())

	if tokens.calls != 2 {
		t.Errorf("token sweep calls = %d, want 2", tokens.calls)
	}
}

func TestStartStop(t *testing.T) {
	r := New(&fakeStore{}, &fakeStore{}, &fakeStore{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
}
