// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package executor runs transactions. A TransactionExecutor validates a
// transaction, dispatches it, settles its fees and records its outcome in a
// receipt before the effects are written to the repository.
package executor

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Fantom-foundation/Kiln/go/kernel"
	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/processor/dispatch"
	"github.com/ethereum/go-ethereum/log"
)

// State is the progress of a TransactionExecutor.
type State int

const (
	StateConstructed State = iota
	StateContextBuilt
	StateDispatched
	StateResultObtained
	StateReceiptBuilt
	StateRepoUpdated
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "CONSTRUCTED"
	case StateContextBuilt:
		return "CONTEXT_BUILT"
	case StateDispatched:
		return "DISPATCHED"
	case StateResultObtained:
		return "RESULT_OBTAINED"
	case StateReceiptBuilt:
		return "RECEIPT_BUILT"
	case StateRepoUpdated:
		return "REPO_UPDATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const ErrStepOutOfOrder = kiln.ConstError("step invoked out of order")

// Config defines the environment transactions are executed in.
type Config struct {
	// Local marks dry-run executions which never modify the repository.
	// Nonce and balance checks are skipped and no energy is bought.
	Local bool
	// MaxCallDepth limits the depth of nested calls. Zero selects
	// kiln.MaxCallDepth.
	MaxCallDepth int
	// Interpreter runs contract code.
	Interpreter kiln.Interpreter
}

type Option func(*TransactionExecutor)

// WithLogger sets the logger of the executor. By default, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(e *TransactionExecutor) {
		e.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(e *TransactionExecutor) {
		e.metrics = metrics
	}
}

// WithDispatcher replaces the dispatcher derived from the configuration.
func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(e *TransactionExecutor) {
		e.dispatcher = dispatcher
	}
}

// TransactionExecutor executes a single transaction. Its steps have to be run
// in order, each of them exactly once; repeated invocations of completed steps
// return the results of their first invocation. A TransactionExecutor is not
// safe for concurrent use, but independent executors may run concurrently.
type TransactionExecutor struct {
	tx         *kiln.Transaction
	block      kiln.BlockParameters
	repo       kiln.Repository
	config     Config
	dispatcher *dispatch.Dispatcher
	logger     log.Logger
	metrics    Metrics

	state      State
	intrinsic  kiln.Energy
	ctx        kiln.ExecutionContext
	rejection  *kiln.ExecutionResult
	root       *kernel.Bridge
	fault      *dispatch.Fault
	result     *kiln.ExecutionResult
	energyUsed kiln.Energy
	refund     kiln.Value
	fee        kiln.Value
	deleted    []kiln.Address
	summary    *kiln.TxSummary
}

func New(tx *kiln.Transaction, block kiln.BlockParameters, repo kiln.Repository, config Config, options ...Option) *TransactionExecutor {
	res := &TransactionExecutor{
		tx:      tx,
		block:   block,
		repo:    repo,
		config:  config,
		logger:  log.NewLogger(log.DiscardHandler()),
		metrics: NoopMetrics{},
	}
	for _, option := range options {
		option(res)
	}
	if res.dispatcher == nil {
		depth := config.MaxCallDepth
		if depth <= 0 {
			depth = kiln.MaxCallDepth
		}
		res.dispatcher = dispatch.New(
			config.Interpreter,
			dispatch.WithMaxCallDepth(depth),
			dispatch.WithLogger(res.logger),
		)
	}
	return res
}

func (e *TransactionExecutor) State() State {
	return e.state
}

// Execute runs all steps of the transaction execution and returns a summary
// for every transaction, including rejected ones. If an infrastructure
// failure, like an unavailable repository, prevents the execution from
// completing, the summary reports INTERNAL_ERROR, the repository is left
// untouched and the failure is returned as well.
func (e *TransactionExecutor) Execute() (*kiln.TxSummary, error) {
	start := time.Now()
	if _, err := e.BuildContext(); err != nil {
		return e.fail(err)
	}
	if _, err := e.Dispatch(); err != nil {
		return e.fail(err)
	}
	if err := e.PostProcess(); err != nil {
		return e.fail(err)
	}
	summary, err := e.BuildReceipt()
	if err != nil {
		return e.fail(err)
	}
	if err := e.UpdateRepo(); err != nil {
		return e.fail(err)
	}

	duration := time.Since(start)
	e.metrics.TransactionExecuted(summary, duration)
	e.logger.Debug("Transaction executed",
		"hash", e.tx.Hash,
		"code", e.result.Code(),
		"energyUsed", summary.EnergyUsed(),
		"rejected", summary.IsRejected(),
		"local", e.config.Local,
		"duration", duration,
	)
	return summary, nil
}

// fail ends an execution interrupted by the given error with an
// INTERNAL_ERROR summary. No energy is charged and no fee is paid since none
// of the modifications of the transaction reach the repository.
func (e *TransactionExecutor) fail(err error) (*kiln.TxSummary, error) {
	if e.root != nil {
		e.root.Discard()
	}
	e.logger.Error("Transaction failed", "hash", e.tx.Hash, "err", err)

	result := kiln.MustNewExecutionResult(kiln.ResultInternalError, 0, nil)
	receipt, buildErr := kiln.NewReceiptBuilder().
		Transaction(e.tx).
		ErrorFromCode(result.Code()).
		Build()
	if buildErr != nil {
		return nil, errors.Join(err, buildErr)
	}
	summary, buildErr := kiln.NewSummaryBuilder(receipt).Result(result).Build()
	if buildErr != nil {
		return nil, errors.Join(err, buildErr)
	}

	e.result = result
	e.energyUsed = 0
	e.refund = kiln.Value{}
	e.fee = kiln.Value{}
	e.deleted = nil
	e.summary = summary
	e.state = StateRepoUpdated
	e.metrics.TransactionExecuted(summary, 0)
	return summary, err
}

func (e *TransactionExecutor) checkStep(step string, required State) error {
	if e.state < required {
		return fmt.Errorf("%w: %s requires state %v, executor is in state %v", ErrStepOutOfOrder, step, required, e.state)
	}
	return nil
}

// BuildContext derives the context of the top-level call and validates the
// transaction against the repository. Invalid transactions are marked as
// rejected and are not dispatched.
func (e *TransactionExecutor) BuildContext() (kiln.ExecutionContext, error) {
	if e.state >= StateContextBuilt {
		return e.ctx, nil
	}

	tx := e.tx
	kind := kiln.Call
	if tx.IsContractCreation() {
		kind = kiln.Create
	}
	e.intrinsic = IntrinsicCost(tx.IsContractCreation(), tx.Data)
	available := max(tx.EnergyLimit-e.intrinsic, 0)

	ctx, err := kiln.NewExecutionContext(kiln.ContextParams{
		TxHash:      tx.Hash,
		Recipient:   tx.Destination(),
		Origin:      tx.Sender,
		Caller:      tx.Sender,
		EnergyPrice: tx.EnergyPrice,
		EnergyLimit: available,
		CallValue:   tx.Value,
		CallData:    tx.Data,
		Kind:        kind,
		Block:       e.block,
	})
	if err != nil {
		return kiln.ExecutionContext{}, fmt.Errorf("invalid context: %w", err)
	}

	code, err := e.validate()
	if err != nil {
		return kiln.ExecutionContext{}, err
	}
	if code != kiln.ResultSuccess {
		e.rejection = kiln.MustNewExecutionResult(code, 0, nil)
		e.logger.Debug("Transaction rejected", "hash", tx.Hash, "code", code)
	}

	e.ctx = ctx
	e.state = StateContextBuilt
	return ctx, nil
}

// validate checks the transaction against the block and the sender's
// account. For local calls, only the energy limit is checked.
func (e *TransactionExecutor) validate() (kiln.ResultCode, error) {
	tx := e.tx
	if tx.EnergyLimit < 0 || tx.EnergyLimit > e.block.EnergyLimit {
		return kiln.ResultInvalidEnergy, nil
	}
	if !e.config.Local {
		nonce, err := e.repo.GetNonce(tx.Sender)
		if err != nil {
			return 0, fmt.Errorf("failed to read nonce of %v: %w", tx.Sender, err)
		}
		if nonce != tx.Nonce {
			return kiln.ResultInvalidNonce, nil
		}

		balance, err := e.repo.GetBalance(tx.Sender)
		if err != nil {
			return 0, fmt.Errorf("failed to read balance of %v: %w", tx.Sender, err)
		}
		cost, overflow := tx.EnergyPrice.Scale(tx.EnergyLimit)
		if !overflow {
			cost, overflow = kiln.Add(cost, tx.Value)
		}
		if overflow || balance.Cmp(cost) < 0 {
			return kiln.ResultInsufficientBalance, nil
		}
	}
	if tx.EnergyLimit < e.intrinsic {
		return kiln.ResultInvalidEnergy, nil
	}
	return kiln.ResultSuccess, nil
}

// Dispatch runs the top-level call. The sender buys the energy limit of the
// transaction and its nonce is incremented before the call is dispatched.
// Unexpected failures are contained and reported as INTERNAL_ERROR.
func (e *TransactionExecutor) Dispatch() (*kiln.ExecutionResult, error) {
	if e.state >= StateDispatched {
		return e.result, nil
	}
	if err := e.checkStep("dispatch", StateContextBuilt); err != nil {
		return nil, err
	}

	if e.rejection != nil {
		e.result = e.rejection.Clone()
		e.state = StateDispatched
		return e.result, nil
	}

	tx := e.tx
	e.root = kernel.New(e.repo, e.ctx, e.config.Local)
	if !e.config.Local {
		e.root.IncrementNonce(tx.Sender)
		cost, _ := tx.EnergyPrice.Scale(tx.EnergyLimit)
		if !e.root.AddBalance(tx.Sender, new(big.Int).Neg(cost.ToBig())) {
			e.root.Discard()
			return nil, fmt.Errorf("failed to charge %v for energy of %v", cost, tx.Sender)
		}
	}

	outcome := e.dispatcher.Call(e.root, e.ctx)
	e.result = outcome.Result
	if outcome.Fault == nil && e.root.Err() != nil {
		outcome.Fault = &dispatch.Fault{Target: outcome.Target, Err: e.root.Err()}
		e.result = kiln.MustNewExecutionResult(kiln.ResultInternalError, 0, nil)
	}
	if outcome.Fault != nil {
		e.fault = outcome.Fault
		e.metrics.FaultContained()
		e.logger.Warn("Fault contained", "hash", tx.Hash, "target", outcome.Target, "err", outcome.Fault)
	}
	e.state = StateDispatched
	return e.result, nil
}

// Fault returns the fault contained during dispatch, if any.
func (e *TransactionExecutor) Fault() *dispatch.Fault {
	return e.fault
}

// PostProcess finalizes the result and computes the settlement of the
// transaction. Executions failing with codes other than REVERT forfeit their
// remaining energy.
func (e *TransactionExecutor) PostProcess() error {
	if e.state >= StateResultObtained {
		return nil
	}
	if err := e.checkStep("post-process", StateDispatched); err != nil {
		return err
	}

	result := e.result.Clone()
	code := result.Code()
	if e.rejection != nil {
		e.result = result
		e.state = StateResultObtained
		return nil
	}

	if !code.IsSuccess() && !code.IsRevert() {
		if err := result.SetEnergyLeft(0); err != nil {
			return e.discard(err)
		}
	}
	energyUsed := e.intrinsic + e.ctx.EnergyLimit() - result.EnergyLeft()

	var refund kiln.Value
	if code.IsSuccess() || code.IsRevert() {
		var err error
		refund, err = Refund(e.tx.EnergyLimit, energyUsed, e.tx.EnergyPrice)
		if err != nil {
			return e.discard(err)
		}
	}
	fee, err := CoinbaseFee(energyUsed, e.tx.EnergyPrice)
	if err != nil {
		return e.discard(err)
	}

	var deleted []kiln.Address
	if code.IsSuccess() {
		deleted = e.root.DeletedAccounts()
	}

	e.result = result
	e.energyUsed = energyUsed
	e.refund = refund
	e.fee = fee
	e.deleted = deleted
	e.state = StateResultObtained
	return nil
}

// BuildReceipt creates the receipt and the summary of the transaction.
func (e *TransactionExecutor) BuildReceipt() (*kiln.TxSummary, error) {
	if e.state >= StateReceiptBuilt {
		return e.summary, nil
	}
	if err := e.checkStep("build receipt", StateResultObtained); err != nil {
		return nil, err
	}

	var logs []kiln.Log
	if e.root != nil && e.result.Code().IsSuccess() {
		logs = e.root.Logs()
	}
	receipt, err := kiln.NewReceiptBuilder().
		Transaction(e.tx).
		EnergyUsed(e.energyUsed).
		Logs(logs).
		Output(e.result.Output()).
		ErrorFromCode(e.result.Code()).
		Build()
	if err != nil {
		return nil, err
	}

	builder := kiln.NewSummaryBuilder(receipt).
		Result(e.result).
		DeletedAccounts(e.deleted).
		Refund(e.refund).
		Fee(e.fee)
	if e.rejection != nil {
		builder.MarkAsRejected()
	}
	summary, err := builder.Build()
	if err != nil {
		return nil, err
	}
	e.summary = summary
	e.state = StateReceiptBuilt
	return summary, nil
}

// UpdateRepo writes the effects of the transaction to the repository: the
// modifications of the execution, the refund, the deletions and the coinbase
// fee, in this order. Local calls and rejected transactions leave the
// repository untouched.
func (e *TransactionExecutor) UpdateRepo() error {
	if e.state >= StateRepoUpdated {
		return nil
	}
	if err := e.checkStep("update repository", StateReceiptBuilt); err != nil {
		return err
	}

	if e.summary.IsRejected() || e.root == nil {
		e.state = StateRepoUpdated
		return nil
	}
	if e.root.IsLocal() {
		e.root.Discard()
		e.state = StateRepoUpdated
		return nil
	}

	root := e.root
	sender := e.tx.Sender
	if !e.refund.IsZero() && !root.AddBalance(sender, e.refund.ToBig()) {
		return e.abort(fmt.Errorf("failed to refund %v to %v", e.refund, sender))
	}
	for _, address := range e.summary.DeletedAccounts() {
		root.DeleteAccount(address)
	}
	if !e.fee.IsZero() && !root.AddBalance(e.block.Coinbase, e.fee.ToBig()) {
		return e.abort(fmt.Errorf("failed to credit %v to coinbase %v", e.fee, e.block.Coinbase))
	}
	if err := root.Err(); err != nil {
		return e.abort(err)
	}
	if err := root.Commit(); err != nil {
		return e.abort(err)
	}
	e.state = StateRepoUpdated
	return nil
}

func (e *TransactionExecutor) abort(err error) error {
	e.root.Discard()
	return errors.Join(ErrUpdateFailed, err)
}

// discard drops the modifications of the execution after a failed step.
func (e *TransactionExecutor) discard(err error) error {
	if e.root != nil {
		e.root.Discard()
	}
	return err
}

const ErrUpdateFailed = kiln.ConstError("failed to update repository")
