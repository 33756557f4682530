package intercept

import (
	"errors"
	"testing"

	"github.com/flowforge/pipeline/pipectx"
)

type recording struct {
	BaseInterceptor
	log *[]string
}

func (r recording) BeforeExecution(ctx *pipectx.Context) {
	*r.log = append(*r.log, r.Name()+":before")
}

func (r recording) AfterExecution(ctx *pipectx.Context) {
	*r.log = append(*r.log, r.Name()+":after")
}

func TestChainOrdersByPriorityThenRegistration(t *testing.T) {
	var log []string
	a := recording{BaseInterceptor{"a", 10}, &log}
	b := recording{BaseInterceptor{"b", 5}, &log}
	c := recording{BaseInterceptor{"c", 5}, &log} // same priority as b, registered after

	chain := NewChain(a, b, c)
	chain.RunBeforeExecution(pipectx.New("p", "n"))

	want := []string{"b:before", "c:before", "a:before"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestAfterExecutionRunsInSameOrderNotReversed(t *testing.T) {
	var log []string
	a := recording{BaseInterceptor{"a", 1}, &log}
	b := recording{BaseInterceptor{"b", 2}, &log}

	chain := NewChain(a, b)
	chain.RunAfterExecution(pipectx.New("p", "n"))

	if len(log) != 2 || log[0] != "a:after" || log[1] != "b:after" {
		t.Fatalf("log = %v, want [a:after b:after]", log)
	}
}

type handlingInterceptor struct {
	BaseInterceptor
	handles bool
	called  *bool
}

func (h handlingInterceptor) OnError(ctx *pipectx.Context, err error) bool {
	*h.called = true
	return h.handles
}

func TestOnErrorShortCircuitsOnFirstHandled(t *testing.T) {
	var firstCalled, secondCalled bool
	first := handlingInterceptor{BaseInterceptor{"first", 1}, true, &firstCalled}
	second := handlingInterceptor{BaseInterceptor{"second", 2}, true, &secondCalled}

	chain := NewChain(first, second)
	handled := chain.RunOnError(pipectx.New("p", "n"), errors.New("boom"))

	if !handled {
		t.Fatal("expected handled=true")
	}
	if !firstCalled {
		t.Fatal("expected first interceptor's OnError called")
	}
	if secondCalled {
		t.Fatal("expected second interceptor's OnError skipped after first handled")
	}
}

func TestOnErrorFallsThroughWhenNoneHandle(t *testing.T) {
	var called bool
	ic := handlingInterceptor{BaseInterceptor{"ic", 1}, false, &called}

	chain := NewChain(ic)
	handled := chain.RunOnError(pipectx.New("p", "n"), errors.New("boom"))

	if handled {
		t.Fatal("expected handled=false when no interceptor handles")
	}
	if !called {
		t.Fatal("expected OnError invoked")
	}
}

func TestBeforeAndAfterStageRunInOrder(t *testing.T) {
	var log []string
	ic := stageRecorder{BaseInterceptor{"s", 1}, &log}

	chain := NewChain(ic)
	chain.RunBeforeStage(pipectx.New("p", "n"), "stage-a")
	chain.RunAfterStage(pipectx.New("p", "n"), "stage-a")

	if len(log) != 2 || log[0] != "before:stage-a" || log[1] != "after:stage-a" {
		t.Fatalf("log = %v", log)
	}
}

type stageRecorder struct {
	BaseInterceptor
	log *[]string
}

func (s stageRecorder) BeforeStage(ctx *pipectx.Context, stageName string) {
	*s.log = append(*s.log, "before:"+stageName)
}

func (s stageRecorder) AfterStage(ctx *pipectx.Context, stageName string) {
	*s.log = append(*s.log, "after:"+stageName)
}
