package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowforge/pipeline/behavior"
	"github.com/flowforge/pipeline/cache"
	"github.com/flowforge/pipeline/intercept"
	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
	"github.com/flowforge/pipeline/stage"
	"github.com/flowforge/pipeline/telemetry"
)

func testObserver(t *testing.T) telemetry.Observer {
	t.Helper()
	obs, err := telemetry.NewObserver(context.Background(), telemetry.Config{
		ServiceName: "pipeline-test",
		Tracing:     telemetry.TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     telemetry.MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	return obs
}

var errBoom = errors.New("boom")

func doubleStage() stage.Stage[int, int] {
	return stage.New("double", func(in int, ctx *pipectx.Context) (int, error) { return in * 2, nil })
}

func TestExecutorHappyPath(t *testing.T) {
	e := New[int, int]("double-pipeline", doubleStage(), DefaultConfiguration())

	out, err := e.Execute(context.Background(), 5, nil)
	if err != nil || out != 10 {
		t.Fatalf("Execute = %d, %v, want 10, nil", out, err)
	}
	if e.GetMetrics().Successful != 1 {
		t.Fatalf("metrics = %+v, want Successful=1", e.GetMetrics())
	}
}

func TestExecutorFailFastPropagatesError(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	e := New[int, int]("fail-pipeline", failing, DefaultConfiguration())

	_, err := e.Execute(context.Background(), 1, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if e.GetMetrics().Failed != 1 {
		t.Fatalf("metrics = %+v, want Failed=1", e.GetMetrics())
	}
}

func TestExecutorContinueStrategyReturnsZeroValue(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	cfg := DefaultConfiguration()
	cfg.ErrorStrategy = Continue
	e := New[int, int]("continue-pipeline", failing, cfg)

	out, err := e.Execute(context.Background(), 1, nil)
	if err != nil || out != 0 {
		t.Fatalf("got %d, %v, want 0, nil", out, err)
	}
}

func TestExecutorDeadLetterStrategyWrapsError(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	cfg := DefaultConfiguration()
	cfg.ErrorStrategy = DeadLetter
	cfg.DeadLetterEnabled = true
	e := New[int, int]("dlq-pipeline", failing, cfg)

	_, err := e.Execute(context.Background(), 1, nil)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindDeadLetter {
		t.Fatalf("got %v, want KindDeadLetter", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatal("expected DeadLetter error to wrap the original")
	}
}

func TestExecutorErrorHandlerOverridesResult(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	e := New[int, int]("handled-pipeline", failing, DefaultConfiguration(),
		WithErrorHandler[int, int](func(ctx *pipectx.Context, err error) (int, error) {
			return 99, nil
		}),
	)

	out, err := e.Execute(context.Background(), 1, nil)
	if err != nil || out != 99 {
		t.Fatalf("got %d, %v, want 99, nil", out, err)
	}
}

type handlingInterceptor struct {
	intercept.BaseInterceptor
}

func (h handlingInterceptor) OnError(ctx *pipectx.Context, err error) bool {
	ctx.SetResult(77)
	return true
}

func TestExecutorOnErrorInterceptorAbsorbsError(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	e := New[int, int]("absorbed-pipeline", failing, DefaultConfiguration(),
		WithInterceptors[int, int](handlingInterceptor{intercept.BaseInterceptor{InterceptorName: "absorb"}}),
	)

	out, err := e.Execute(context.Background(), 1, nil)
	if err != nil || out != 77 {
		t.Fatalf("got %d, %v, want 77, nil", out, err)
	}
}

func TestExecutorCachesResultsAcrossCalls(t *testing.T) {
	calls := 0
	counting := stage.New("count", func(in int, ctx *pipectx.Context) (int, error) {
		calls++
		return in * 2, nil
	})

	cfg := DefaultConfiguration()
	cfg.CacheEnabled = true
	cfg.DefaultCacheDuration = time.Minute

	e := New[int, int]("cached-pipeline", counting, cfg,
		WithCache[int, int](
			func(in int) (string, bool) { return "key", true },
			cache.NewMemoryCache(cache.DefaultPolicy()),
			cache.DefaultPolicy(),
		),
	)

	out1, _ := e.Execute(context.Background(), 3, nil)
	out2, _ := e.Execute(context.Background(), 3, nil)

	if out1 != 6 || out2 != 6 {
		t.Fatalf("got %d, %d, want both 6", out1, out2)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (second call should hit cache)", calls)
	}
}

func TestExecutorBehaviorChainInvoked(t *testing.T) {
	var invoked bool
	contrib := behavior.Contribution{
		ID:        "observe",
		IsEnabled: true,
		Behavior: func(ctx *pipectx.Context, next behavior.Next) (any, error) {
			invoked = true
			return next.Proceed(ctx)
		},
	}

	e := New[int, int]("behavior-pipeline", doubleStage(), DefaultConfiguration(),
		WithBehaviors[int, int](contrib),
	)

	e.Execute(context.Background(), 2, nil)
	if !invoked {
		t.Fatal("expected behavior contribution invoked")
	}
}

func TestExecutorConcurrencyAdmissionBounds(t *testing.T) {
	release := make(chan struct{})
	var active, maxSeen int
	slow := stage.New("slow", func(in int, ctx *pipectx.Context) (int, error) {
		active++
		if active > maxSeen {
			maxSeen = active
		}
		<-release
		active--
		return in, nil
	})

	cfg := DefaultConfiguration()
	cfg.MaxConcurrency = 1
	e := New[int, int]("bounded-pipeline", slow, cfg)

	done := make(chan struct{}, 2)
	go func() { e.Execute(context.Background(), 1, nil); done <- struct{}{} }()
	time.Sleep(10 * time.Millisecond)
	go func() { e.Execute(context.Background(), 1, nil); done <- struct{}{} }()

	time.Sleep(10 * time.Millisecond)
	close(release)
	<-done
	<-done

	if maxSeen > 1 {
		t.Fatalf("maxSeen = %d, want <= 1", maxSeen)
	}
}

func TestExecutorRecordsThroughObserverWhenTracingAndMetricsEnabled(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.TracingEnabled = true
	cfg.MetricsEnabled = true
	e := New[int, int]("observed-pipeline", doubleStage(), cfg, WithObserver[int, int](testObserver(t)))

	out, err := e.Execute(context.Background(), 5, nil)
	if err != nil || out != 10 {
		t.Fatalf("Execute = %d, %v, want 10, nil", out, err)
	}
	if e.stageTracer == nil {
		t.Fatal("expected TracingEnabled + WithObserver to build a stageTracer")
	}
	if e.stageMetrics == nil {
		t.Fatal("expected MetricsEnabled + WithObserver to build stageMetrics")
	}
}

func TestExecutorLeavesTelemetryInertWithoutObserver(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.TracingEnabled = true
	cfg.MetricsEnabled = true
	e := New[int, int]("unobserved-pipeline", doubleStage(), cfg)

	if e.stageTracer != nil || e.stageMetrics != nil {
		t.Fatal("expected no telemetry wiring without WithObserver, even with the flags set")
	}

	out, err := e.Execute(context.Background(), 5, nil)
	if err != nil || out != 10 {
		t.Fatalf("Execute = %d, %v, want 10, nil", out, err)
	}
}

func TestExecutorDeadLetterStrategyRequiresDeadLetterEnabled(t *testing.T) {
	failing := stage.New("fail", func(in int, ctx *pipectx.Context) (int, error) { return 0, errBoom })
	cfg := DefaultConfiguration()
	cfg.ErrorStrategy = DeadLetter
	e := New[int, int]("dlq-disabled-pipeline", failing, cfg)

	_, err := e.Execute(context.Background(), 1, nil)
	var pe *perr.Error
	if errors.As(err, &pe) && pe.Kind == perr.KindDeadLetter {
		t.Fatal("DeadLetter strategy should not divert without DeadLetterEnabled")
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom unchanged", err)
	}
}

func TestExecutorValidationEnabledRejectsTypeMismatch(t *testing.T) {
	mismatched := behavior.Contribution{
		ID:        "swap-type",
		Name:      "swap-type",
		Phase:     behavior.Processing,
		IsEnabled: true,
		Behavior: func(ctx *pipectx.Context, next behavior.Next) (any, error) {
			if _, err := next.Proceed(ctx); err != nil {
				return nil, err
			}
			return "not-an-int", nil
		},
	}

	cfg := DefaultConfiguration()
	cfg.ValidationEnabled = true
	e := New[int, int]("validated-pipeline", doubleStage(), cfg, WithBehaviors[int, int](mismatched))

	_, err := e.Execute(context.Background(), 5, nil)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.KindValidation {
		t.Fatalf("got %v, want KindValidation", err)
	}
}
