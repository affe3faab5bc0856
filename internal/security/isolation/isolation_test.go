package isolation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/resilience"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 500 * time.Millisecond
	cfg.MaxContexts = 8
	return cfg
}

func newTestManager(t *testing.T, cfg Config, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(cfg, opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestExecute(t *testing.T) {
	m := newTestManager(t, testConfig())
	ctx := context.Background()

	reply, err := m.Execute(ctx, "tab-1", "1 + 2")
	require.NoError(t, err)
	assert.EqualValues(t, 3, reply.Value)
	assert.NotEmpty(t, reply.ID)
	assert.True(t, m.Has("tab-1"))

	reply, err = m.Execute(ctx, "tab-1", "console.log('hello', 42); 'done'")
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Value)
	require.Len(t, reply.Console, 1)
	assert.Equal(t, "log", reply.Console[0].Level)
	assert.Equal(t, "hello 42", reply.Console[0].Message)
}

func TestExecuteReturnsPlainData(t *testing.T) {
	m := newTestManager(t, testConfig())

	reply, err := m.Execute(context.Background(), "tab", "({a: 1, b: ['x', true]})")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": []any{"x", true}}, reply.Value)

	reply, err = m.Execute(context.Background(), "tab", "(function f() {})")
	require.NoError(t, err)
	assert.IsType(t, "", reply.Value)
}

func TestExecuteHostAccessRemoved(t *testing.T) {
	m := newTestManager(t, testConfig())

	for _, script := range []string{"require('fs')", "process.exit(1)", "fetch('https://example.com')"} {
		_, err := m.Execute(context.Background(), "tab", script)
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr, script)
		assert.Equal(t, "tab", execErr.TabID)
		assert.False(t, execErr.Fault)
	}

	reply, err := m.Execute(context.Background(), "tab", "typeof setTimeout(function() {}, 0)")
	require.NoError(t, err)
	assert.Equal(t, "undefined", reply.Value)
}

func TestExecuteTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 100 * time.Millisecond
	m := newTestManager(t, cfg)

	reply, err := m.Execute(context.Background(), "tab", "while (true) {}")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, execErr.Fault)
	assert.True(t, reply.Timeout)

	reply, err = m.Execute(context.Background(), "tab", "'still alive'")
	require.NoError(t, err)
	assert.Equal(t, "still alive", reply.Value)
}

func TestContextsDoNotShareState(t *testing.T) {
	m := newTestManager(t, testConfig())
	ctx := context.Background()

	_, err := m.Execute(ctx, "a", "var secret = 'a-only'")
	require.NoError(t, err)

	reply, err := m.Execute(ctx, "b", "typeof secret")
	require.NoError(t, err)
	assert.Equal(t, "undefined", reply.Value)

	reply, err = m.Execute(ctx, "a", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a-only", reply.Value)
}

func TestSanitize(t *testing.T) {
	in := "<div onclick=\"steal()\">Hi<SCRIPT type=\"text/javascript\">\nalert(1)\n</script>" +
		"<a href=\"javascript:alert(1)\">x</a><img src=\"a.png\" onerror='boom()'></div>"
	want := `<div>Hi<a href="alert(1)">x</a><img src="a.png"></div>`

	assert.Equal(t, want, Sanitize(in))

	m := newTestManager(t, testConfig())
	out, err := m.Sanitize(context.Background(), "tab", in, false)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestSanitizeStrict(t *testing.T) {
	out := SanitizeStrict(`<p>ok</p><iframe src="https://evil.example"></iframe><script>x()</script>`)
	assert.Equal(t, "<p>ok</p>", out)

	m := newTestManager(t, testConfig())
	out, err := m.Sanitize(context.Background(), "tab", `<p style="x">ok</p>`, true)
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", out)
}

func TestDisposeWithMessageInFlight(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 5 * time.Second
	m := newTestManager(t, cfg)
	require.NoError(t, m.Create("tab"))

	errs := make(chan error, 1)
	go func() {
		_, err := m.Execute(context.Background(), "tab", "while (true) {}")
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	m.Dispose("tab")

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrContextDisposed)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight caller was not released by dispose")
	}
	assert.False(t, m.Has("tab"))

	// disposing twice is harmless
	m.Dispose("tab")
	m.Dispose("never-created")
}

func TestResourceExhaustionDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContexts = 1
	m := newTestManager(t, cfg)
	ctx := context.Background()

	require.NoError(t, m.Create("a"))
	require.NoError(t, m.Create("a"))

	err := m.Create("b")
	assert.ErrorIs(t, err, ErrIsolationUnavailable)
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.ErrorIs(t, m.Degraded("b"), ErrResourceExhausted)
	assert.Nil(t, m.Degraded("a"))

	out, err := m.Sanitize(ctx, "b", `<b onclick="x()">bold</b>`, false)
	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b>", out)

	_, err = m.Execute(ctx, "b", "1")
	assert.ErrorIs(t, err, ErrIsolationUnavailable)

	m.Dispose("a")
	require.NoError(t, m.Create("b"))
	assert.Nil(t, m.Degraded("b"))
	assert.Equal(t, 1, m.Count())
}

func TestSlowCreationDoesNotBlockOtherTabs(t *testing.T) {
	m := newTestManager(t, testConfig())
	require.NoError(t, m.Create("a"))

	entered := make(chan struct{})
	release := make(chan struct{})
	m.factory = func(cfg Config) (*runtime, error) {
		close(entered)
		<-release
		return newRuntime(cfg)
	}

	created := make(chan error, 1)
	go func() { created <- m.Create("slow") }()
	<-entered

	disposed := make(chan struct{})
	go func() {
		m.Dispose("a")
		close(disposed)
	}()
	select {
	case <-disposed:
	case <-time.After(time.Second):
		t.Fatal("dispose waited on another tab's creation")
	}
	assert.False(t, m.Has("a"))
	assert.Zero(t, m.Count())

	close(release)
	require.NoError(t, <-created)
	assert.True(t, m.Has("slow"))
	assert.Equal(t, 1, m.Count())
}

func TestCreationBreaker(t *testing.T) {
	m := newTestManager(t, testConfig())
	m.factory = func(Config) (*runtime, error) {
		return nil, errors.New("out of memory")
	}

	for i := 0; i < 3; i++ {
		err := m.Create(fmt.Sprintf("tab-%d", i))
		assert.ErrorIs(t, err, ErrIsolationUnavailable)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}
	assert.Equal(t, resilience.StateOpen, m.BreakerState())

	err := m.Create("tab-3")
	assert.ErrorIs(t, err, ErrIsolationUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Zero(t, m.Count())
}

func TestWorkerPanicIsReported(t *testing.T) {
	m := newTestManager(t, testConfig())
	m.factory = func(cfg Config) (*runtime, error) {
		rt, err := newRuntime(cfg)
		if err != nil {
			return nil, err
		}
		if err := rt.vm.Set("explode", func() { panic("kaboom") }); err != nil {
			return nil, err
		}
		return rt, nil
	}

	_, err := m.Execute(context.Background(), "tab", "explode()")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "kaboom")

	reply, err := m.Execute(context.Background(), "tab", "2 * 21")
	require.NoError(t, err)
	assert.EqualValues(t, 42, reply.Value)
}

func TestUnknownMessage(t *testing.T) {
	m := newTestManager(t, testConfig())

	_, err := m.Send(context.Background(), "tab", Message{Kind: Kind(99)})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ErrUnknownMessage.Error(), execErr.Message)
}

func TestCallerContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 5 * time.Second
	m := newTestManager(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Execute(ctx, "tab", "while (true) {}")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestObserverAndClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	m := NewManager(testConfig(), WithObserver(func(live int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, live)
	}))

	require.NoError(t, m.Create("a"))
	require.NoError(t, m.Create("b"))
	assert.Equal(t, []string{"a", "b"}, m.Tabs())
	m.Dispose("a")
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	mu.Lock()
	assert.Equal(t, []int{1, 2, 1, 0}, seen)
	mu.Unlock()

	assert.ErrorIs(t, m.Create("c"), ErrManagerClosed)
	_, err := m.Execute(context.Background(), "a", "1")
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestConcurrentTabs(t *testing.T) {
	m := newTestManager(t, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tab := fmt.Sprintf("tab-%d", n)
			for j := 0; j < 5; j++ {
				reply, err := m.Execute(context.Background(), tab, fmt.Sprintf("%d * %d", n, j))
				if assert.NoError(t, err) {
					assert.EqualValues(t, n*j, reply.Value)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 6, m.Count())
}
