package memory

import (
	"context"
	"errors"
	"testing"
)

func TestBus_PublishAndFail(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	if err := b.Publish(ctx, "user:a", []byte("1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	boom := errors.New("boom")
	b.FailTopic("user:b", boom)
	if err := b.Publish(ctx, "user:b", []byte("2")); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	b.FailTopic("user:b", nil)
	if err := b.Publish(ctx, "user:b", []byte("3")); err != nil {
		t.Fatalf("publish after clear: %v", err)
	}

	if got := b.Messages("user:a"); len(got) != 1 || string(got[0]) != "1" {
		t.Fatalf("user:a = %q", got)
	}
	if got := b.Messages("user:b"); len(got) != 1 || string(got[0]) != "3" {
		t.Fatalf("user:b = %q", got)
	}
	if b.Total() != 2 || len(b.Topics()) != 2 {
		t.Fatalf("total=%d topics=%v", b.Total(), b.Topics())
	}
}

func TestBus_PayloadIsCopied(t *testing.T) {
	t.Parallel()

	b := New()
	p := []byte("abc")
	_ = b.Publish(context.Background(), "t", p)
	p[0] = 'z'
	if got := string(b.Messages("t")[0]); got != "abc" {
		t.Fatalf("payload aliased: %q", got)
	}
}
