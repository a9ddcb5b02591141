package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestPacer_SameHostSharesLimiter(t *testing.T) {
	t.Parallel()

	p := NewPacer(DefaultConfig)
	a := p.ForURL("http://www.rgs.ru/")
	b := p.ForURL("HTTP://WWW.RGS.RU/products/dms")

	if a.Host() != b.Host() {
		t.Fatalf("hosts differ: %q vs %q", a.Host(), b.Host())
	}
	if p.GetLimiter(a.Host()) != p.GetLimiter(b.Host()) {
		t.Fatal("expected one limiter per host")
	}
	c := p.ForURL("http://127.0.0.1:8080/")
	if p.GetLimiter(c.Host()) == p.GetLimiter(a.Host()) {
		t.Fatal("expected distinct limiters for distinct hosts")
	}
}

func TestPacer_DisabledNeverBlocks(t *testing.T) {
	t.Parallel()

	p := NewPacer(Config{})
	hp := p.ForURL("http://fixture.local")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 1000; i++ {
		if err := hp.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestPacer_BurstThenWaitRespectsContext(t *testing.T) {
	t.Parallel()

	p := NewPacer(Config{ActionsPerSecond: 0.001, Burst: 2})
	hp := p.ForURL("http://slow.example")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := hp.Wait(ctx); err != nil {
			t.Fatalf("burst wait %d: %v", i, err)
		}
	}
	err := hp.Wait(ctx)
	if err == nil {
		t.Fatal("expected third wait to fail within the deadline")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected cancellation: %v", err)
	}
}

func TestHostOf_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z][a-z0-9-]{0,15}\.[a-z]{2,6}`).Draw(t, "host")
		path := rapid.StringMatching(`(/[a-z0-9]{0,8}){0,3}`).Draw(t, "path")
		scheme := rapid.SampledFrom([]string{"http", "https"}).Draw(t, "scheme")

		if got := HostOf(scheme + "://" + host + path); got != host {
			t.Fatalf("HostOf = %q, want %q", got, host)
		}
	})
}
