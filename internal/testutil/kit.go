package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// KitPackage is the package of the test kit plugin.
const KitPackage = "bibix.testkit"

// KitScript declares the rules of the test kit plugin, preloaded as "kit".
const KitScript = `package bibix.testkit

class Box(value: string, tag: string = "plain")

def echo(value: string): string = native:Echo
def concat(parts: list<string>, sep: string = ""): string = native:Concat
def fail(message: string): string = native:Fail
def explode(): string = native:Explode
def box(value: string): Box = native:Wrap
def twice(value: string): string = native:Twice
def boxFields(): list<string> = native:BoxFields
action def record(message: string) = native:Record
`

// KitModule is a preloaded plugin for tests. It counts how often each
// rule implementation ran and records the messages of the record action.
type KitModule struct {
	mu       sync.Mutex
	calls    map[string]int
	recorded []string
}

// NewKitModule creates a KitModule with zeroed counters.
func NewKitModule() *KitModule {
	return &KitModule{calls: map[string]int{}}
}

// Calls returns how many times the implementation class ran.
func (m *KitModule) Calls(class string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[class]
}

// Recorded returns the messages of every record action so far.
func (m *KitModule) Recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.recorded...)
}

func (m *KitModule) count(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[class]++
}

func (m *KitModule) rule(class string, fn plugin.Rule) plugin.Rule {
	return func(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
		m.count(class)
		return fn(ctx, bc)
	}
}

// Register registers the kit script and its rules.
func (m *KitModule) Register(r *registry.Registry) {
	r.RegisterPlugin(&registry.Plugin{Name: "kit", Script: KitScript})
	rules := map[string]plugin.Rule{
		"Echo":      echo,
		"Concat":    concat,
		"Fail":      fail,
		"Explode":   explode,
		"Wrap":      wrap,
		"Twice":     twice,
		"BoxFields": boxFields,
	}
	for class, fn := range rules {
		r.RegisterRule(registry.Capability{Module: KitPackage, Class: class}, m.rule(class, fn))
	}
	r.RegisterActionRule(registry.Capability{Module: KitPackage, Class: "Record"}, func(ctx context.Context, ac *plugin.ActionContext) (plugin.Return, error) {
		m.count("Record")
		v, err := ac.Arg("message")
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.recorded = append(m.recorded, value.Stringify(v))
		m.mu.Unlock()
		return plugin.Done()
	})
}

func echo(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	v, err := bc.Arg("value")
	if err != nil {
		return nil, err
	}
	return plugin.Value(v)
}

func concat(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	parts, err := bc.Arg("parts")
	if err != nil {
		return nil, err
	}
	sep, err := bc.StringArg("sep")
	if err != nil {
		return nil, err
	}
	list, ok := parts.(value.List)
	if !ok {
		return nil, errors.New("parts is not a list")
	}
	strs := make([]string, len(list.Values))
	for i, v := range list.Values {
		strs[i] = value.Stringify(v)
	}
	return plugin.Value(value.String(strings.Join(strs, sep)))
}

func fail(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	msg, err := bc.StringArg("message")
	if err != nil {
		return nil, err
	}
	return plugin.FailedReturn{Err: errors.New(msg)}, nil
}

func explode(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	panic("kaboom")
}

func wrap(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	v, err := bc.Arg("value")
	if err != nil {
		return nil, err
	}
	return plugin.Value(value.NClassInstance{NameTokens: []string{"Box"}, Fields: map[string]value.Value{"value": v}})
}

func twice(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	s, err := bc.StringArg("value")
	if err != nil {
		return nil, err
	}
	return plugin.EvalAndThen{
		Rule:   "echo",
		Params: map[string]value.Value{"value": value.String(s + s)},
		Then:   plugin.Value,
	}, nil
}

func boxFields(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	return plugin.GetClassTypeDetails{
		Classes: []value.CName{{Package: KitPackage, Name: "Box"}},
		Then: func(details []plugin.ClassDetails) (plugin.Return, error) {
			var names []value.Value
			for _, d := range details {
				dc, ok := d.(plugin.DataClassDetails)
				if !ok {
					return nil, errors.New("class Box is not a data class")
				}
				for _, f := range dc.Fields {
					names = append(names, value.String(f.Name))
				}
			}
			return plugin.Value(value.NewList(names...))
		},
	}, nil
}
