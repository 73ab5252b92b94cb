package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/deskshell/internal/registry"
	"github.com/vk/deskshell/modules/greet"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type invokerFunc func(ctx context.Context, name string, args []byte) (json.RawMessage, error)

func (f invokerFunc) Invoke(ctx context.Context, name string, args []byte) (json.RawMessage, error) {
	return f(ctx, name, args)
}

func greetRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	require.NoError(t, reg.RegisterModules(context.Background(), &greet.Module{}))
	reg.Freeze()
	return reg
}

func TestDo_GreetRoundTrip(t *testing.T) {
	// --- Arrange ---
	d := New(context.Background(), greetRegistry(t), 2, 4)
	defer d.Close()

	// --- Act ---
	resp, err := d.Do(context.Background(), Request{Command: "greet", Args: []byte(`{"name":"World"}`)})

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, resp.Err)
	require.NotEmpty(t, resp.ID, "an ID is generated when the caller gives none")
	require.JSONEq(t, `"Hello, World! You've been greeted from Rust!"`, string(resp.Value))
}

func TestDo_PerCallErrorsStayLocal(t *testing.T) {
	d := New(context.Background(), greetRegistry(t), 2, 4)
	defer d.Close()

	bad, err := d.Do(context.Background(), Request{ID: "1", Command: "nonexistent"})
	require.NoError(t, err)
	good, err := d.Do(context.Background(), Request{ID: "2", Command: "greet", Args: []byte(`{"name":"x"}`)})
	require.NoError(t, err)

	var unknown *registry.UnknownCommandError
	require.ErrorAs(t, bad.Err, &unknown)
	require.Equal(t, "1", bad.ID)
	require.NoError(t, good.Err)
	require.Equal(t, "2", good.ID)
}

func TestSubmit_SlowHandlerDoesNotBlockOthers(t *testing.T) {
	// --- Arrange ---
	release := make(chan struct{})
	inv := invokerFunc(func(ctx context.Context, name string, args []byte) (json.RawMessage, error) {
		if name == "slow" {
			<-release
		}
		return json.RawMessage(fmt.Sprintf("%q", name)), nil
	})
	d := New(context.Background(), inv, 2, 4)
	defer d.Close()

	order := make(chan string, 2)
	reply := func(resp Response) { order <- string(resp.Value) }

	// --- Act ---
	require.NoError(t, d.Submit(context.Background(), Request{Command: "slow"}, reply))
	require.NoError(t, d.Submit(context.Background(), Request{Command: "fast"}, reply))

	// --- Assert ---
	select {
	case got := <-order:
		require.Equal(t, `"fast"`, got, "the fast call completes while the slow one is still running")
	case <-time.After(5 * time.Second):
		t.Fatal("fast invocation was blocked by the slow one")
	}
	close(release)
	require.Equal(t, `"slow"`, <-order)
}

func TestSubmit_SingleWorkerPreservesCallerOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	inv := invokerFunc(func(ctx context.Context, name string, args []byte) (json.RawMessage, error) {
		mu.Lock()
		seen = append(seen, string(args))
		mu.Unlock()
		return json.RawMessage("null"), nil
	})
	d := New(context.Background(), inv, 1, 16)

	var want []string
	for i := 0; i < 10; i++ {
		arg := fmt.Sprintf("%d", i)
		want = append(want, arg)
		require.NoError(t, d.Submit(context.Background(), Request{Caller: "c", Command: "x", Args: []byte(arg)}, func(Response) {}))
	}
	require.NoError(t, d.Close())

	require.Equal(t, want, seen)
}

func TestSubmit_CanceledCallerSkipsHandler(t *testing.T) {
	block := make(chan struct{})
	var calls int
	var mu sync.Mutex
	inv := invokerFunc(func(ctx context.Context, name string, args []byte) (json.RawMessage, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if name == "block" {
			<-block
		}
		return json.RawMessage("null"), nil
	})
	d := New(context.Background(), inv, 1, 4)

	// Occupy the only worker, then queue a request whose caller gives up.
	started := make(chan Response, 1)
	require.NoError(t, d.Submit(context.Background(), Request{Command: "block"}, func(r Response) { started <- r }))
	ctx, cancel := context.WithCancel(context.Background())
	skipped := make(chan Response, 1)
	require.NoError(t, d.Submit(ctx, Request{Command: "never"}, func(r Response) { skipped <- r }))
	cancel()
	close(block)

	resp := <-skipped
	require.True(t, errors.Is(resp.Err, context.Canceled))
	<-started
	require.NoError(t, d.Close())
	require.Equal(t, 1, calls)
}

func TestSubmit_AfterCloseFails(t *testing.T) {
	d := New(context.Background(), greetRegistry(t), 1, 0)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "Close is idempotent")

	err := d.Submit(context.Background(), Request{Command: "greet"}, func(Response) {})

	require.ErrorIs(t, err, ErrClosed)
}

func TestDo_ConcurrentGreetsMatchInputs(t *testing.T) {
	d := New(context.Background(), greetRegistry(t), 4, 8)
	defer d.Close()

	const callers = 40
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("n%d", i)
			resp, err := d.Do(context.Background(), Request{Caller: name, Command: "greet", Args: []byte(fmt.Sprintf(`{"name":%q}`, name))})
			if err != nil {
				errs <- err
				return
			}
			want := fmt.Sprintf("%q", fmt.Sprintf("Hello, %s! You've been greeted from Rust!", name))
			if string(resp.Value) != want {
				errs <- fmt.Errorf("caller %s got %s", name, resp.Value)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
