package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"wacrm-bridge/internal/model"
)

func TestRegistryGetOrCreateIdempotent(t *testing.T) {
	r := NewRegistry()

	calls := 0
	factory := func() (*model.Session, error) {
		calls++
		return model.NewSession("s1", newFakeClient("")), nil
	}

	first, created, err := r.GetOrCreate("s1", factory)
	if err != nil || !created {
		t.Fatalf("Expected creation, got created=%v err=%v", created, err)
	}
	second, created, err := r.GetOrCreate("s1", factory)
	if err != nil || created {
		t.Fatalf("Expected existing session, got created=%v err=%v", created, err)
	}

	if calls != 1 {
		t.Errorf("Expected factory to run once, ran %d times", calls)
	}
	if first != second {
		t.Error("Expected identical handle from both calls")
	}
}

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry()

	var calls atomic.Int32
	release := make(chan struct{})
	factory := func() (*model.Session, error) {
		calls.Add(1)
		<-release
		return model.NewSession("s1", newFakeClient("")), nil
	}

	var wg sync.WaitGroup
	results := make([]*model.Session, 8)
	var createdCount atomic.Int32
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, created, err := r.GetOrCreate("s1", factory)
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			if created {
				createdCount.Add(1)
			}
			results[i] = s
		}(i)
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected factory once, got %d", calls.Load())
	}
	if createdCount.Load() != 1 {
		t.Errorf("Expected exactly one creator, got %d", createdCount.Load())
	}
	for _, s := range results {
		if s != results[0] {
			t.Fatal("Expected all callers to share one session")
		}
	}
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	if _, _, err := r.GetOrCreate("s1", func() (*model.Session, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if _, ok := r.Get("s1"); ok {
		t.Error("Expected nothing registered after factory error")
	}
}

func TestRegistryRemoveOnlyCurrent(t *testing.T) {
	r := NewRegistry()
	old := model.NewSession("s1", newFakeClient(""))
	r.GetOrCreate("s1", func() (*model.Session, error) { return old, nil })

	if !r.Remove("s1", old) {
		t.Fatal("Expected current session to be removed")
	}

	replacement := model.NewSession("s1", newFakeClient(""))
	r.GetOrCreate("s1", func() (*model.Session, error) { return replacement, nil })

	if r.Remove("s1", old) {
		t.Error("Expected stale session not to evict replacement")
	}
	if s, _ := r.Get("s1"); s != replacement {
		t.Error("Expected replacement to stay registered")
	}
}

func TestRegistryQR(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.GetQR("s1"); ok {
		t.Fatal("Expected no QR initially")
	}

	r.SetQR("s1", "data:image/png;base64,AAA")
	r.SetQR("s1", "data:image/png;base64,BBB")
	if img, _ := r.GetQR("s1"); img != "data:image/png;base64,BBB" {
		t.Errorf("Expected latest QR to win, got %s", img)
	}

	r.ClearQR("s1")
	if _, ok := r.GetQR("s1"); ok {
		t.Error("Expected QR cleared")
	}
}
