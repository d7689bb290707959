package protection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/store"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func allLayers() Config {
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = true
	cfg.HoneypotEnabled = true
	cfg.TimingEnabled = true
	cfg.PatternEnabled = true
	return cfg
}

func TestGate_AllLayersDisabledByDefault(t *testing.T) {
	g := NewGate(Config{}, store.NewMemory())

	v := g.Evaluate(context.Background(), Request{
		Message:      "BUY NOW http://a.com http://b.com http://c.com http://d.com !!!!!!!!!!!!",
		FormFields:   map[string]string{"website": "http://spam.example"},
		PageLoadedAt: t0,
		ReceivedAt:   t0,
	}, "1.2.3.4:anon")

	assert.True(t, v.Allowed)
	assert.False(t, v.Blocked)
	assert.False(t, v.Suspicious)
	assert.True(t, v.Actions.AllowReply)
	assert.True(t, v.Actions.AllowLeadCreation)
	assert.Empty(t, v.Reasons)
}

func TestGate_CleanRequestPasses(t *testing.T) {
	g := NewGate(allLayers(), store.NewMemory())

	v := g.Evaluate(context.Background(), Request{
		Message:      "Hi, we need a new website for our bakery.",
		PageLoadedAt: t0.Add(-30 * time.Second),
		ReceivedAt:   t0,
	}, "1.2.3.4:s1")

	assert.Equal(t, "allowed", v.Outcome())
	assert.True(t, v.Actions.AllowLeadCreation)
	assert.False(t, v.Actions.RequireVerification)
}

func TestGate_HoneypotSuppressesLeadButAllowsReply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoneypotEnabled = true
	g := NewGate(cfg, store.NewMemory())

	v := g.Evaluate(context.Background(), Request{
		Message:    "Hello, I need a quote",
		FormFields: map[string]string{"bot_field": "filled"},
		ReceivedAt: t0,
	}, "1.2.3.4:s1")

	assert.True(t, v.Allowed)
	assert.False(t, v.Blocked)
	assert.True(t, v.Suspicious)
	assert.True(t, v.Actions.AllowReply)
	assert.False(t, v.Actions.AllowLeadCreation)
	assert.True(t, v.Actions.RequireVerification)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "bot_field")
}

func TestGate_HoneypotIgnoresWhitespace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoneypotEnabled = true
	g := NewGate(cfg, store.NewMemory())

	v := g.Evaluate(context.Background(), Request{
		Message:    "Hello there",
		FormFields: map[string]string{"website": "   "},
		ReceivedAt: t0,
	}, "c")
	assert.False(t, v.Suspicious)
}

func TestGate_RateLimitPerMinute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = true
	cfg.PerMinute = 3
	g := NewGate(cfg, store.NewMemory())
	ctx := context.Background()

	for i := range 3 {
		v := g.Evaluate(ctx, Request{Message: "hi there", ReceivedAt: t0.Add(time.Duration(i) * time.Second)}, "client-a")
		require.False(t, v.Blocked, "request %d", i+1)
	}

	v := g.Evaluate(ctx, Request{Message: "hi there", ReceivedAt: t0.Add(4 * time.Second)}, "client-a")
	assert.True(t, v.Blocked)
	assert.False(t, v.Allowed)
	assert.False(t, v.Actions.AllowReply)
	assert.False(t, v.Actions.AllowLeadCreation)
	assert.Equal(t, 60, v.RetryAfterSeconds)
	assert.Contains(t, v.Reasons[0], "minute")

	other := g.Evaluate(ctx, Request{Message: "hi there", ReceivedAt: t0.Add(4 * time.Second)}, "client-b")
	assert.False(t, other.Blocked)
}

func TestGate_RateLimitWindowRolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = true
	cfg.PerMinute = 2
	g := NewGate(cfg, store.NewMemory())
	ctx := context.Background()

	g.Evaluate(ctx, Request{ReceivedAt: t0}, "c")
	g.Evaluate(ctx, Request{ReceivedAt: t0.Add(time.Second)}, "c")
	assert.True(t, g.Evaluate(ctx, Request{ReceivedAt: t0.Add(2 * time.Second)}, "c").Blocked)

	v := g.Evaluate(ctx, Request{ReceivedAt: t0.Add(62 * time.Second)}, "c")
	assert.False(t, v.Blocked, "blocked requests are not recorded and the window has rolled")
}

func TestGate_RateLimitHourAndDayCooldowns(t *testing.T) {
	ctx := context.Background()

	t.Run("hour", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimitEnabled = true
		cfg.PerMinute = 100
		cfg.PerHour = 2
		g := NewGate(cfg, store.NewMemory())

		g.Evaluate(ctx, Request{ReceivedAt: t0}, "c")
		g.Evaluate(ctx, Request{ReceivedAt: t0.Add(2 * time.Minute)}, "c")
		v := g.Evaluate(ctx, Request{ReceivedAt: t0.Add(4 * time.Minute)}, "c")
		assert.True(t, v.Blocked)
		assert.Equal(t, 300, v.RetryAfterSeconds)
	})

	t.Run("day", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimitEnabled = true
		cfg.PerMinute = 100
		cfg.PerHour = 100
		cfg.PerDay = 2
		g := NewGate(cfg, store.NewMemory())

		g.Evaluate(ctx, Request{ReceivedAt: t0}, "c")
		g.Evaluate(ctx, Request{ReceivedAt: t0.Add(2 * time.Hour)}, "c")
		v := g.Evaluate(ctx, Request{ReceivedAt: t0.Add(4 * time.Hour)}, "c")
		assert.True(t, v.Blocked)
		assert.Equal(t, 3600, v.RetryAfterSeconds)
	})
}

func TestGate_TimingPageLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimingEnabled = true
	g := NewGate(cfg, store.NewMemory())
	ctx := context.Background()

	fast := g.Evaluate(ctx, Request{Message: "hello there", PageLoadedAt: t0.Add(-time.Second), ReceivedAt: t0}, "a")
	assert.True(t, fast.Suspicious)
	assert.False(t, fast.Actions.AllowLeadCreation)
	assert.True(t, fast.Actions.AllowReply)
	assert.True(t, fast.Actions.RequireVerification)

	slow := g.Evaluate(ctx, Request{Message: "hello there", PageLoadedAt: t0.Add(-10 * time.Second), ReceivedAt: t0}, "b")
	assert.False(t, slow.Suspicious)

	unknown := g.Evaluate(ctx, Request{Message: "hello there", ReceivedAt: t0}, "c")
	assert.False(t, unknown.Suspicious)
}

func TestGate_TimingMessageInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimingEnabled = true
	g := NewGate(cfg, store.NewMemory())
	ctx := context.Background()

	first := g.Evaluate(ctx, Request{Message: "hello", ReceivedAt: t0}, "c")
	assert.False(t, first.Suspicious)

	second := g.Evaluate(ctx, Request{Message: "hello again", ReceivedAt: t0.Add(500 * time.Millisecond)}, "c")
	assert.True(t, second.Suspicious)
	assert.Contains(t, strings.Join(second.Reasons, ","), "apart")

	third := g.Evaluate(ctx, Request{Message: "ok", ReceivedAt: t0.Add(10 * time.Second)}, "c")
	assert.False(t, third.Suspicious)
}

func TestGate_Patterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PatternEnabled = true
	g := NewGate(cfg, store.NewMemory())

	tests := []struct {
		name       string
		message    string
		suspicious bool
	}{
		{"clean", "Could you help us migrate our office network?", false},
		{"too short", "a", true},
		{"too long", strings.Repeat("word ", 500), true},
		{"many urls", "see http://a.io http://b.io www.c.io https://d.io", true},
		{"three urls ok", "see http://a.io http://b.io http://c.io", false},
		{"repeated run", "hellooooooooooooo", true},
		{"caps wall", "THIS IS THE BEST OFFER YOU WILL EVER SEE", true},
		{"short caps ok", "NEED HELP", false},
		{"spam vocabulary", "Cheap SEO and guaranteed ranking for you", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Evaluate(context.Background(), Request{Message: tt.message, ReceivedAt: t0}, "c")
			assert.Equal(t, tt.suspicious, v.Suspicious, v.Reasons)
			assert.True(t, v.Actions.AllowReply)
			assert.Equal(t, !tt.suspicious, v.Actions.AllowLeadCreation)
			assert.False(t, v.Actions.RequireVerification)
		})
	}
}

type failingStore struct{}

func (failingStore) Record(context.Context, string, time.Time) error { return errors.New("down") }
func (failingStore) CountSince(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("down")
}
func (failingStore) Admit(context.Context, string, time.Time, []store.Window) (store.Admission, error) {
	return store.Admission{}, errors.New("down")
}
func (failingStore) Purge(context.Context, time.Time) (int, error) { return 0, errors.New("down") }
func (failingStore) Close() error                                  { return nil }

// slowStore delays every admission so parallel callers overlap inside it.
type slowStore struct {
	store.ClientActivityStore
}

func (s slowStore) Admit(ctx context.Context, clientID string, ts time.Time, windows []store.Window) (store.Admission, error) {
	time.Sleep(time.Millisecond)
	return s.ClientActivityStore.Admit(ctx, clientID, ts, windows)
}

func TestGate_ConcurrentBurstAdmitsExactlyTheLimit(t *testing.T) {
	stores := []struct {
		name string
		new  func(t *testing.T) store.ClientActivityStore
	}{
		{"memory", func(*testing.T) store.ClientActivityStore { return store.NewMemory() }},
		{"slow memory", func(*testing.T) store.ClientActivityStore { return slowStore{store.NewMemory()} }},
		{"redis", func(t *testing.T) store.ClientActivityStore {
			mr := miniredis.RunT(t)
			return store.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		}},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.new(t)
			t.Cleanup(func() { st.Close() }) //nolint:errcheck
			cfg := DefaultConfig()
			cfg.RateLimitEnabled = true
			cfg.PerMinute = 10
			g := NewGate(cfg, st)
			ctx := context.Background()

			var (
				allowed atomic.Int32
				wg      sync.WaitGroup
			)
			start := make(chan struct{})
			for range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if v := g.Evaluate(ctx, Request{Message: "hi there", ReceivedAt: t0}, "burst"); !v.Blocked {
						allowed.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.EqualValues(t, 10, allowed.Load())
			n, err := st.CountSince(ctx, "burst", t0.Add(-time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 10, n, "only admitted requests are recorded")
		})
	}
}

func TestGate_ConcurrentClientsNotLost(t *testing.T) {
	st := store.NewMemory()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = true
	cfg.TimingEnabled = true
	g := NewGate(cfg, st)
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := range 8 {
		for i := range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				g.Evaluate(ctx, Request{Message: "hi there", ReceivedAt: t0.Add(time.Duration(i) * time.Second)}, fmt.Sprintf("client-%d", c))
			}()
		}
	}
	wg.Wait()

	for c := range 8 {
		n, err := st.CountSince(ctx, fmt.Sprintf("client-%d", c), t0.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	}
}

func TestGate_StoreFailureFailsOpen(t *testing.T) {
	g := NewGate(allLayers(), failingStore{})

	v := g.Evaluate(context.Background(), Request{Message: "hello there", ReceivedAt: t0}, "c")
	assert.True(t, v.Allowed)
	assert.False(t, v.Blocked)
	assert.False(t, v.Suspicious)

	_, err := g.Purge(context.Background())
	assert.Error(t, err)
}

func TestGate_Purge(t *testing.T) {
	st := store.NewMemory()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = true
	g := NewGate(cfg, st)
	g.nowFunc = func() time.Time { return t0 }
	ctx := context.Background()

	g.Evaluate(ctx, Request{ReceivedAt: t0.Add(-30 * time.Hour)}, "old")
	g.Evaluate(ctx, Request{ReceivedAt: t0.Add(-time.Hour)}, "new")

	n, err := g.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, st.Clients())
}

func TestGate_StartJanitorStopsWithContext(t *testing.T) {
	st := store.NewMemory()
	g := NewGate(DefaultConfig(), st)
	require.NoError(t, st.Record(context.Background(), "old", time.Now().Add(-48*time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	g.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return st.Clients() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name                                     string
		remote, forwarded, userID, session, want string
	}{
		{"socket and session", "10.0.0.1:5555", "", "", "s1", "10.0.0.1:s1"},
		{"forwarded wins", "10.0.0.1:5555", "203.0.113.9, 10.0.0.1", "", "s1", "203.0.113.9:s1"},
		{"user over session", "10.0.0.1:5555", "", "u7", "s1", "10.0.0.1:u7"},
		{"anonymous", "10.0.0.1", "", "", "", "10.0.0.1:anon"},
		{"nothing", "", "", "", "", "unknown:anon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientID(tt.remote, tt.forwarded, tt.userID, tt.session))
		})
	}
}
