package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func writePolicy(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadNow(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp.watch")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "site.dsp")
	writePolicy(t, path, `div { --protected: true; }`)
	policy := dsp.NewPolicy()
	w := New(path, policy)
	if err := w.LoadNow(); err != nil {
		t.Fatalf("expected policy file to load, got %v", err)
	}
	if policy.Document().Len() != 1 {
		t.Errorf("expected 1 rule, have %d", policy.Document().Len())
	}
	missing := New(filepath.Join(t.TempDir(), "none.dsp"), policy)
	if err := missing.LoadNow(); err == nil {
		t.Error("expected error for missing policy file")
	}
}

func TestWatchReloads(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp.watch")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "site.dsp")
	writePolicy(t, path, `div { --protected: true; }`)
	policy := dsp.NewPolicy()
	reloaded := make(chan error, 16)
	w := New(path, policy, Debounce(10*time.Millisecond), OnReload(func(err error) {
		reloaded <- err
	}))
	if err := w.LoadNow(); err != nil {
		t.Fatal(err)
	}
	first := policy.Document()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond) // let the watcher start
	if err := w.Watch(ctx); err != ErrAlreadyRunning {
		t.Errorf("expected second Watch to fail with ErrAlreadyRunning, got %v", err)
	}

	writePolicy(t, path, `div { --protected: true; } span { --protected: true; }`)
	timeout := time.After(5 * time.Second)
	for policy.Document().Len() != 2 { // a write may be seen in several steps
		select {
		case err := <-reloaded:
			if err != nil {
				t.Fatalf("expected re-load to succeed, got %v", err)
			}
		case <-timeout:
			t.Fatal("policy file change was not picked up")
		}
	}
	if policy.Document() == first {
		t.Errorf("expected re-loaded policy with 2 rules, have %d", policy.Document().Len())
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected watcher to stop cleanly, got %v", err)
	}
}

// slowLoader records how many loads run at the same time.
type slowLoader struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	texts   []string
}

func (l *slowLoader) Load(text string) error {
	l.mu.Lock()
	l.active++
	if l.active > l.maxSeen {
		l.maxSeen = l.active
	}
	l.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	l.mu.Lock()
	l.active--
	l.texts = append(l.texts, text)
	l.mu.Unlock()
	return nil
}

func TestReloadsDoNotOverlap(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp.watch")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "site.dsp")
	writePolicy(t, path, `div { --protected: true; }`)
	loader := &slowLoader{}
	w := New(path, loader)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.reload()
		}()
	}
	time.Sleep(5 * time.Millisecond)
	writePolicy(t, path, `span { --protected: true; }`)
	wg.Wait()
	w.reload()
	if loader.maxSeen != 1 {
		t.Errorf("expected re-loads to run one at a time, saw %d at once", loader.maxSeen)
	}
	if last := loader.texts[len(loader.texts)-1]; last != `span { --protected: true; }` {
		t.Errorf("expected last re-load to see the newest file, have %q", last)
	}
}
