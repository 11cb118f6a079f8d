// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package dispatch routes calls to their targets: precompiled contracts,
// contract code run by an interpreter, or accounts without code. It is the
// boundary at which unexpected failures of targets are contained.
package dispatch

import (
	"fmt"
	"runtime/debug"

	"github.com/Fantom-foundation/Kiln/go/kernel"
	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/log"
)

// TargetKind enumerates the kinds of call targets.
type TargetKind int

const (
	TargetNoCode TargetKind = iota
	TargetPrecompiled
	TargetBytecode
)

func (k TargetKind) String() string {
	switch k {
	case TargetNoCode:
		return "no-code"
	case TargetPrecompiled:
		return "precompiled"
	case TargetBytecode:
		return "bytecode"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target is the result of resolving a destination address.
type Target struct {
	Kind     TargetKind
	Contract kiln.PrecompiledContract // < only for TargetPrecompiled
	Code     kiln.Code                // < only for TargetBytecode
}

// Fault describes an unexpected failure of a call target or the state it
// operates on.
type Fault struct {
	Target    TargetKind
	Err       error
	Recovered any    // < the recovered value if the target panicked
	Stack     []byte // < stack trace of the panic
}

func (f *Fault) Error() string {
	if f.Recovered != nil {
		return fmt.Sprintf("%v target panicked: %v", f.Target, f.Recovered)
	}
	return fmt.Sprintf("%v target failed: %v", f.Target, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Outcome is the result of a dispatched call. If Fault is set, Result is an
// INTERNAL_ERROR result without energy left.
type Outcome struct {
	Result *kiln.ExecutionResult
	Target TargetKind
	Fault  *Fault
}

const (
	ErrNoInterpreter = kiln.ConstError("no interpreter configured")
	ErrNoResult      = kiln.ConstError("target produced no result")
	ErrExcessEnergy  = kiln.ConstError("target returned more energy than it was given")
)

// Dispatcher resolves and runs calls. A Dispatcher is stateless and may be
// shared by concurrent executions.
type Dispatcher struct {
	interpreter  kiln.Interpreter
	registry     *Registry
	maxCallDepth int
	logger       log.Logger
}

type Option func(*Dispatcher)

// WithRegistry sets the precompiled contracts to be used. By default, the
// DefaultRegistry is used.
func WithRegistry(registry *Registry) Option {
	return func(d *Dispatcher) {
		d.registry = registry
	}
}

// WithMaxCallDepth limits the depth of nested calls. The limit is capped by
// kiln.MaxCallDepth.
func WithMaxCallDepth(depth int) Option {
	return func(d *Dispatcher) {
		d.maxCallDepth = min(depth, kiln.MaxCallDepth)
	}
}

func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func New(interpreter kiln.Interpreter, options ...Option) *Dispatcher {
	res := &Dispatcher{
		interpreter:  interpreter,
		registry:     DefaultRegistry(),
		maxCallDepth: kiln.MaxCallDepth,
		logger:       log.NewLogger(log.DiscardHandler()),
	}
	for _, option := range options {
		option(res)
	}
	return res
}

// Resolve determines the target of a call to the given address. Precompiled
// contracts are matched by exact address and take precedence over code.
func (d *Dispatcher) Resolve(state kiln.StateBridge, address kiln.Address) Target {
	if contract, found := d.registry.Lookup(address); found {
		return Target{Kind: TargetPrecompiled, Contract: contract}
	}
	code := state.GetCode(address)
	if len(code) == 0 {
		return Target{Kind: TargetNoCode}
	}
	return Target{Kind: TargetBytecode, Code: code}
}

// Call runs the call described by the context in a new scope derived from
// the given one. The modifications of the call are committed into the parent
// scope if the call succeeds and discarded otherwise. Failures of the target
// are never propagated to the caller. They are reported as a Fault, as are
// results claiming more energy than the call was given.
func (d *Dispatcher) Call(parent *kernel.Bridge, ctx kiln.ExecutionContext) Outcome {
	if ctx.Depth() > d.maxCallDepth {
		return Outcome{Result: kiln.MustNewExecutionResult(kiln.ResultFailure, ctx.EnergyLimit(), nil)}
	}

	scope := parent.Track(ctx)
	scope.SetCallHandler(d.nestedCall)

	outcome := d.run(scope, ctx)
	if outcome.Fault == nil && outcome.Result == nil {
		outcome.Fault = &Fault{Target: outcome.Target, Err: ErrNoResult}
	}
	if outcome.Fault == nil && outcome.Result.EnergyLeft() > ctx.EnergyLimit() {
		outcome.Fault = &Fault{
			Target: outcome.Target,
			Err:    fmt.Errorf("%w: %d left of %d", ErrExcessEnergy, outcome.Result.EnergyLeft(), ctx.EnergyLimit()),
		}
	}
	if outcome.Fault == nil && scope.Err() != nil {
		outcome.Fault = &Fault{Target: outcome.Target, Err: scope.Err()}
	}
	if outcome.Fault == nil && outcome.Result.Code().IsSuccess() {
		if err := scope.Commit(); err != nil {
			outcome.Fault = &Fault{Target: outcome.Target, Err: err}
		}
	} else {
		scope.Discard()
	}

	if outcome.Fault != nil {
		d.logger.Warn("Call failed unexpectedly", "depth", ctx.Depth(), "recipient", ctx.Recipient(), "err", outcome.Fault)
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultInternalError, 0, nil)
		return outcome
	}
	if code := outcome.Result.Code(); !code.IsSuccess() && !code.IsRevert() {
		outcome.Result = kiln.MustNewExecutionResult(code, 0, outcome.Result.Output())
	}
	return outcome
}

func (d *Dispatcher) nestedCall(parent *kernel.Bridge, ctx kiln.ExecutionContext) *kiln.ExecutionResult {
	return d.Call(parent, ctx).Result
}

func (d *Dispatcher) run(scope *kernel.Bridge, ctx kiln.ExecutionContext) (outcome Outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Result = nil
			outcome.Fault = &Fault{
				Target:    outcome.Target,
				Err:       fmt.Errorf("panic: %v", recovered),
				Recovered: recovered,
				Stack:     debug.Stack(),
			}
		}
	}()

	if ctx.Kind() == kiln.Create {
		d.create(scope, ctx, &outcome)
	} else {
		d.call(scope, ctx, &outcome)
	}
	return outcome
}

func (d *Dispatcher) call(scope *kernel.Bridge, ctx kiln.ExecutionContext, outcome *Outcome) {
	kind := ctx.Kind()
	if kind == kiln.Call || kind == kiln.CallCode {
		if ctx.Flags().IsStatic() && !ctx.CallValue().IsZero() {
			outcome.Result = kiln.MustNewExecutionResult(kiln.ResultStaticModeError, 0, nil)
			return
		}
		if !scope.Transfer(ctx.Caller(), ctx.Recipient(), ctx.CallValue()) {
			outcome.Result = kiln.MustNewExecutionResult(kiln.ResultFailure, ctx.EnergyLimit(), nil)
			return
		}
	}

	target := d.Resolve(scope, ctx.CodeAddress())
	outcome.Target = target.Kind
	switch target.Kind {
	case TargetNoCode:
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultSuccess, ctx.EnergyLimit(), nil)
	case TargetPrecompiled:
		outcome.Result = target.Contract.Execute(ctx.CallData(), ctx.EnergyLimit())
	case TargetBytecode:
		result, err := d.runCode(target.Code, ctx, scope)
		if err != nil {
			outcome.Fault = &Fault{Target: target.Kind, Err: err}
		}
		outcome.Result = result
	}
}

// create runs the init code given as call data at the address named as the
// recipient and deploys the returned output as the code of the new contract.
func (d *Dispatcher) create(scope *kernel.Bridge, ctx kiln.ExecutionContext, outcome *Outcome) {
	if ctx.Flags().IsStatic() {
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultStaticModeError, 0, nil)
		return
	}

	address := ctx.Recipient()
	if scope.GetNonce(address) != 0 || len(scope.GetCode(address)) != 0 {
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultFailure, 0, nil)
		return
	}
	scope.CreateAccount(address)
	if !scope.Transfer(ctx.Caller(), address, ctx.CallValue()) {
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultFailure, ctx.EnergyLimit(), nil)
		return
	}

	initCode := kiln.Code(ctx.CallData())
	if len(initCode) == 0 {
		outcome.Result = kiln.MustNewExecutionResult(kiln.ResultSuccess, ctx.EnergyLimit(), nil)
		return
	}

	outcome.Target = TargetBytecode
	result, err := d.runCode(initCode, ctx, scope)
	if err != nil {
		outcome.Fault = &Fault{Target: TargetBytecode, Err: err}
		return
	}
	if result.Code().IsSuccess() {
		scope.DeployCode(address, kiln.Code(result.Output()))
	}
	outcome.Result = result
}

func (d *Dispatcher) runCode(code kiln.Code, ctx kiln.ExecutionContext, scope *kernel.Bridge) (*kiln.ExecutionResult, error) {
	if d.interpreter == nil {
		return nil, ErrNoInterpreter
	}
	result, err := d.interpreter.Run(code, ctx, scope)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrNoResult
	}
	return result, nil
}
