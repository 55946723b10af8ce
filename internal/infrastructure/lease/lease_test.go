package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalLease(t *testing.T) {
	t.Parallel()

	l := NewLocalLease()
	release, ok, err := l.Acquire(context.Background(), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire must succeed: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.Acquire(context.Background(), time.Minute); ok {
		t.Fatalf("second acquire must fail while held")
	}

	release()
	release()

	again, ok, _ := l.Acquire(context.Background(), time.Minute)
	if !ok {
		t.Fatalf("acquire after release must succeed")
	}
	again()
}

func TestRedisLease(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	key := "truthfilter:test:" + uuid.NewString()
	a, err := Connect(context.Background(), url, key)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()
	b, err := Connect(context.Background(), url, key)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close()

	release, ok, err := a.Acquire(context.Background(), time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := b.Acquire(context.Background(), time.Minute); err != nil || ok {
		t.Fatalf("competing acquire must fail: ok=%v err=%v", ok, err)
	}
	release()

	releaseB, ok, err := b.Acquire(context.Background(), time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
	releaseB()
}
