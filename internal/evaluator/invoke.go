package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// invokeRule runs one rule invocation, or reuses the result recorded for
// its target id.
func (e *Evaluator) invokeRule(ctx context.Context, t task.InvokeRule) (task.Result, error) {
	call := t.Call
	rule := call.Rule
	run := &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
		logger := ctxlog.FromContext(ctx).With("target_id", t.TargetID, "rule", rule.CName.String())

		inputs, err := e.files.InputHashes(call.Args, e.mainBase())
		if err != nil {
			return nil, fmt.Errorf("hashing inputs of %s: %w", rule.CName, err)
		}
		objectID := objhash.ObjectID(call.IDData, inputs)
		start, err := e.repo.TargetStarted(ctx, t.TargetID, call.IDData, inputs.String(), objectID)
		if err != nil {
			return nil, err
		}
		if start.Reused {
			logger.Debug("Reusing previous result.", "built_at", start.Prev.BuiltAt)
			return task.Value(start.Prev.Value)
		}

		capability := registry.Capability{Module: rule.Impl.Module, Class: rule.Impl.Class, Method: rule.Impl.Method}
		fn, ok := e.registry.Rule(capability)
		if !ok {
			return nil, fmt.Errorf("no implementation registered for rule %s (%s)", rule.CName, capability)
		}

		bc := plugin.BuildContext{
			Env:                  e.env,
			MainBaseDirectory:    e.mainBase(),
			CallerBaseDirectory:  e.project(call.Caller).BaseDirectory(),
			RuleDefinedDirectory: e.project(rule.Where).BaseDirectory(),
			Arguments:            call.Args,
			TargetIDData:         call.IDData,
			TargetID:             t.TargetID,
			InputHashString:      inputs.String(),
			HashChanged:          start.HashChanged,
			Logger:               e.repo.ProgressLogger(ctx, t.TargetID),
		}
		if start.Prev != nil {
			bc.PrevBuildTime = start.Prev.BuiltAt
			bc.PrevResult = start.Prev.Value
		}

		logger.Info("Invoking rule.", "hash_changed", start.HashChanged)
		ret, err := safeCall(func() (plugin.Return, error) {
			return fn(ctx, plugin.NewBuildContext(bc, e.repo.ObjectDirectory(t.TargetID), e.repo))
		})
		return e.handleReturn(t, ret, err)
	}}

	return task.Catch(run, func(err error) error {
		if recErr := e.repo.TargetFailed(ctx, t.TargetID, err); recErr != nil {
			ctxlog.FromContext(ctx).Error("Failed to record target failure.", "target_id", t.TargetID, "error", recErr)
		}
		return err
	})
}

// safeCall runs plugin code and reports a panic as an error.
func safeCall(fn func() (plugin.Return, error)) (ret plugin.Return, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// handleReturn continues an invocation with what the rule returned.
func (e *Evaluator) handleReturn(t task.InvokeRule, ret plugin.Return, err error) (task.Result, error) {
	rule := t.Call.Rule
	if err != nil {
		return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: err}
	}

	switch ret := ret.(type) {
	case plugin.ValueReturn:
		if ret.Value == nil {
			return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: errors.New("rule returned a nil value")}
		}
		finalized, err := e.finalize(rule.Where, rule.Def.Name.Namespace(), ret.Value)
		if err != nil {
			return nil, err
		}
		return task.MapValue(finalized, func(v value.Value) (task.Result, error) {
			cast, err := e.cast(rule.Where, v, rule.ReturnType)
			if err != nil {
				return nil, err
			}
			return task.MapValue(cast, func(out value.Value) (task.Result, error) {
				return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
					if err := e.repo.TargetSucceeded(ctx, t.TargetID, out, ret.Transient); err != nil {
						return nil, err
					}
					return task.Value(out)
				}}, nil
			})
		})

	case plugin.FailedReturn:
		return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: ret.Err}

	case plugin.DoneReturn:
		return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: errors.New("build rule finished without a value")}

	case plugin.EvalAndThen:
		return e.evalAndThen(t, ret)

	case plugin.GetClassTypeDetails:
		return e.classTypeDetails(t, ret)

	case plugin.WithDirectoryLock:
		return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
			var next plugin.Return
			err := e.repo.Locker().WithLock(ret.Directory, func() error {
				var err error
				next, err = safeCall(ret.WithLock)
				return err
			})
			return e.handleReturn(t, next, err)
		}}, nil
	}
	return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: fmt.Errorf("unsupported return %T", ret)}
}

// evalAndThen calls another rule, named relative to the namespace of the
// current rule, and hands its value to the continuation.
func (e *Evaluator) evalAndThen(t task.InvokeRule, ret plugin.EvalAndThen) (task.Result, error) {
	rule := t.Call.Rule
	resolved, err := e.evalNameFrom(rule.Where, rule.Def.Name.Namespace(), strings.Split(ret.Rule, "."))
	if err != nil {
		return nil, err
	}
	return task.Map(resolved, func(r task.Result) (task.Result, error) {
		nested, ok := r.(task.BuildRuleResult)
		if !ok {
			return nil, evalErrorf(rule.Where, "%s is not a rule", ret.Rule)
		}
		return e.organizeParams(rule.Where, nested.CName.String(), nested.Params, nested.Where, nil, ret.Params, func(args map[string]value.Value) (task.Result, error) {
			invoked, err := e.callRule(rule.Where, nested, args)
			if err != nil {
				return nil, err
			}
			return task.MapValue(invoked, func(v value.Value) (task.Result, error) {
				return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
					next, err := safeCall(func() (plugin.Return, error) { return ret.Then(v) })
					return e.handleReturn(t, next, err)
				}}, nil
			})
		})
	})
}

// classTypeDetails resolves the classes a rule asked about.
func (e *Evaluator) classTypeDetails(t task.InvokeRule, ret plugin.GetClassTypeDetails) (task.Result, error) {
	rule := t.Call.Rule
	rs := make([]task.Result, 0, len(ret.Classes)+len(ret.Relative))
	for _, c := range ret.Classes {
		r, err := task.Then1(task.EvalClassByName{Class: c}, passThrough)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	for _, tokens := range ret.Relative {
		r, err := e.evalNameFrom(rule.Where, rule.Def.Name.Namespace(), tokens)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return task.Collect(rs, func(done []task.Result) (task.Result, error) {
		details := make([]plugin.ClassDetails, len(done))
		for i, r := range done {
			switch r := r.(type) {
			case task.DataClassResult:
				fields := make([]plugin.ClassField, len(r.Fields))
				for j, f := range r.Fields {
					fields[j] = plugin.ClassField{Name: f.Name, Type: f.Type, Optional: !f.Required()}
				}
				details[i] = plugin.DataClassDetails{Name: r.CName, Fields: fields}
			case task.SuperClassResult:
				subs := make([]string, len(r.DataClasses))
				for j, c := range r.DataClasses {
					subs[j] = c.Name
				}
				details[i] = plugin.SuperClassDetails{Name: r.CName, Subs: subs}
			default:
				return nil, evalErrorf(rule.Where, "%s is not a class", task.Describe(r))
			}
		}
		return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
			next, err := safeCall(func() (plugin.Return, error) { return ret.Then(details) })
			return e.handleReturn(t, next, err)
		}}, nil
	})
}
