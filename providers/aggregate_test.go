package providers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/transforms"
	"github.com/strawgate/mcp-compose/versions"
)

// failing is a provider whose every operation errors.
type failing struct {
	nopLifecycle
}

var errBroken = errors.New("backend unavailable")

func (failing) ListTools(context.Context) ([]*components.Tool, error) { return nil, errBroken }
func (failing) GetTool(context.Context, string, string) (*components.Tool, error) {
	return nil, errBroken
}
func (failing) ListResources(context.Context) ([]*components.Resource, error) {
	return nil, errBroken
}
func (failing) GetResource(context.Context, string, string) (*components.Resource, error) {
	return nil, errBroken
}
func (failing) ListResourceTemplates(context.Context) ([]*components.ResourceTemplate, error) {
	return nil, errBroken
}
func (failing) GetResourceTemplate(context.Context, string, string) (*components.ResourceTemplate, error) {
	return nil, errBroken
}
func (failing) ListPrompts(context.Context) ([]*components.Prompt, error) { return nil, errBroken }
func (failing) GetPrompt(context.Context, string, string) (*components.Prompt, error) {
	return nil, errBroken
}
func (failing) Tasks(context.Context) (TaskComponents, error) { return TaskComponents{}, errBroken }

func localWith(t *testing.T, tools ...*components.Tool) *Local {
	t.Helper()
	l := NewLocal()
	for _, tool := range tools {
		if err := l.AddTool(tool); err != nil {
			t.Fatalf("AddTool: %v", err)
		}
	}
	return l
}

func TestAggregateListSkipsFailedChildren(t *testing.T) {
	agg := NewAggregate([]Provider{
		localWith(t, echoTool("a")),
		failing{},
		localWith(t, echoTool("b")),
	})
	tools, err := agg.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 || tools[0].Name != "a" || tools[1].Name != "b" {
		t.Fatalf("listing = %+v", tools)
	}
}

func TestAggregateGetPicksHighestVersionAcrossChildren(t *testing.T) {
	agg := NewAggregate([]Provider{
		localWith(t, echoTool("t", components.WithToolVersion("1.0.0"))),
		localWith(t, echoTool("t", components.WithToolVersion("2.0.0"))),
		failing{},
	})
	got, err := agg.GetTool(context.Background(), "t", "")
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got == nil || got.Version != "2.0.0" {
		t.Fatalf("got = %+v", got)
	}
}

func TestAggregateGetMissIsBenign(t *testing.T) {
	agg := NewAggregate([]Provider{localWith(t), failing{}})
	got, err := agg.GetTool(context.Background(), "absent", "")
	if err != nil {
		t.Fatalf("aggregation must absorb child failures: %v", err)
	}
	if got != nil {
		t.Fatalf("got = %+v", got)
	}
}

func TestAggregateTasksFlatUnion(t *testing.T) {
	bg := components.WithToolTask(components.TaskConfig{Mode: components.TaskAllowed})
	agg := NewAggregate([]Provider{
		localWith(t, echoTool("t", components.WithToolVersion("1.0.0"), bg)),
		localWith(t, echoTool("t", components.WithToolVersion("2.0.0"), bg)),
	})
	tasks, err := agg.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	// Flat union: both versions present, no dedupe.
	if len(tasks.Tools) != 2 {
		t.Fatalf("task tools = %+v", tasks.Tools)
	}
}

// lifecycleSpy records Start/Close ordering.
type lifecycleSpy struct {
	*Local
	name     string
	events   *[]string
	mu       *sync.Mutex
	startErr error
}

func (s *lifecycleSpy) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	*s.events = append(*s.events, "start:"+s.name)
	return nil
}

func (s *lifecycleSpy) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.events = append(*s.events, "close:"+s.name)
	return nil
}

func newSpy(name string, events *[]string, mu *sync.Mutex) *lifecycleSpy {
	return &lifecycleSpy{Local: NewLocal(), name: name, events: events, mu: mu}
}

func TestAggregateStartOrderAndReverseClose(t *testing.T) {
	var events []string
	var mu sync.Mutex
	agg := NewAggregate([]Provider{
		newSpy("a", &events, &mu),
		newSpy("b", &events, &mu),
	})
	if err := agg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := agg.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"start:a", "start:b", "close:b", "close:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestAggregateStartFailureRollsBack(t *testing.T) {
	var events []string
	var mu sync.Mutex
	bad := newSpy("bad", &events, &mu)
	bad.startErr = errBroken
	agg := NewAggregate([]Provider{
		newSpy("a", &events, &mu),
		bad,
		newSpy("never", &events, &mu),
	})
	if err := agg.Start(context.Background()); err == nil {
		t.Fatal("Start should propagate the child failure")
	}
	want := []string{"start:a", "close:a"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestWrappedNamespaceProvider(t *testing.T) {
	inner := localWith(t, echoTool("add"))
	p, err := WithNamespace(inner, "calc")
	if err != nil {
		t.Fatalf("WithNamespace: %v", err)
	}
	tools, err := p.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if tools[0].Name != "calc_add" {
		t.Fatalf("name = %q", tools[0].Name)
	}
	got, err := p.GetTool(context.Background(), "calc_add", "")
	if err != nil || got == nil {
		t.Fatalf("GetTool: %v %v", got, err)
	}
	if got, _ := p.GetTool(context.Background(), "add", ""); got != nil {
		t.Fatal("unprefixed name must not resolve through the namespace")
	}
}

func TestWrappedIsImmutableComposition(t *testing.T) {
	inner := localWith(t, echoTool("t"))
	a := WithTransforms(inner, transforms.NewEnabled(false, transforms.MatchAll()))
	b := WithTransforms(inner) // no layers

	tools, _ := a.ListTools(context.Background())
	if tools[0].Enabled() {
		t.Fatal("layered wrap should mark")
	}
	tools, _ = b.ListTools(context.Background())
	if !tools[0].Enabled() {
		t.Fatal("sibling wrap must not share layers")
	}
}

func TestWrappedVersionFilterResolvesInRange(t *testing.T) {
	inner := localWith(t,
		echoTool("t", components.WithToolVersion("1.0.0")),
		echoTool("t", components.WithToolVersion("3.0.0")),
	)
	p := WithTransforms(inner, transforms.NewVersionFilter(&versions.Spec{LT: "2.0.0"}))

	got, err := p.GetTool(context.Background(), "t", "")
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got == nil || got.Version != "1.0.0" {
		t.Fatalf("got = %+v, want the highest in-range version", got)
	}
	if out, _ := p.GetTool(context.Background(), "t", "3.0.0"); out != nil {
		t.Fatal("pinned out-of-range version must not resolve")
	}
}

func TestWrappedTasksReappliesLayerTransforms(t *testing.T) {
	inner := localWith(t, echoTool("bg", components.WithToolTask(components.TaskConfig{Mode: components.TaskAllowed})))
	ns, err := WithNamespace(inner, "sub")
	if err != nil {
		t.Fatalf("WithNamespace: %v", err)
	}
	tasks, err := ns.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks.Tools) != 1 || tasks.Tools[0].Name != "sub_bg" {
		t.Fatalf("task tools = %+v", tasks.Tools)
	}
}
