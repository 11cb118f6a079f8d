// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kernel

import (
	"errors"
	"math/big"
	"slices"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/repository"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/mock/gomock"
)

func newTestContext(t *testing.T) kiln.ExecutionContext {
	t.Helper()
	ctx, err := kiln.NewExecutionContext(kiln.ContextParams{
		Recipient:   kiln.Address{2},
		Origin:      kiln.Address{1},
		Caller:      kiln.Address{1},
		EnergyLimit: 1000,
	})
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}
	return ctx
}

func newTestRepository() *memory.Repository {
	return memory.NewFromState(memory.WorldState{
		{1}: {Balance: kiln.NewValue(100), Nonce: 4},
		{2}: {Code: kiln.Code{0x60, 0x00}, Storage: memory.Storage{{1}: {2}}},
	})
}

func TestBridge_ReadsForwardToRepository(t *testing.T) {
	repo := newTestRepository()
	bridge := New(repo, newTestContext(t), false)

	if !bridge.AccountExists(kiln.Address{1}) {
		t.Errorf("account 1 should exist")
	}
	if bridge.AccountExists(kiln.Address{3}) {
		t.Errorf("account 3 should not exist")
	}
	if want, got := kiln.NewValue(100), bridge.GetBalance(kiln.Address{1}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if want, got := uint64(4), bridge.GetNonce(kiln.Address{1}); want != got {
		t.Errorf("unexpected nonce, wanted %d, got %d", want, got)
	}
	if want, got := (kiln.Word{2}), bridge.GetStorage(kiln.Address{2}, kiln.Key{1}); want != got {
		t.Errorf("unexpected storage, wanted %v, got %v", want, got)
	}
	if want, got := kiln.Hash(crypto.Keccak256Hash([]byte{0x60, 0x00})), bridge.GetCodeHash(kiln.Address{2}); want != got {
		t.Errorf("unexpected code hash, wanted %v, got %v", want, got)
	}
	if want, got := (kiln.Hash{}), bridge.GetCodeHash(kiln.Address{3}); want != got {
		t.Errorf("unexpected code hash of missing account, wanted %v, got %v", want, got)
	}
	if err := bridge.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBridge_MutationsAreRecordedInOrder(t *testing.T) {
	ctx := newTestContext(t)
	bridge := New(newTestRepository(), ctx, false)

	bridge.CreateAccount(kiln.Address{3})
	bridge.AddBalance(kiln.Address{3}, big.NewInt(5))
	bridge.IncrementNonce(kiln.Address{3})
	bridge.DeployCode(kiln.Address{3}, kiln.Code{1, 2})
	bridge.SetStorage(kiln.Address{3}, kiln.Key{1}, kiln.Word{1})
	bridge.MarkForDeletion(kiln.Address{3})
	bridge.DeleteAccount(kiln.Address{3})

	want := []MutationKind{
		MutationAccountCreation,
		MutationBalanceDelta,
		MutationNonceIncrement,
		MutationCodeDeployment,
		MutationStorageWrite,
		MutationDeletionMark,
		MutationAccountDeletion,
	}
	mutations := bridge.Mutations()
	if len(mutations) != len(want) {
		t.Fatalf("unexpected number of mutations, wanted %d, got %d", len(want), len(mutations))
	}
	for i, m := range mutations {
		if m.Kind != want[i] {
			t.Errorf("unexpected kind of mutation %d, wanted %v, got %v", i, want[i], m.Kind)
		}
		if m.Address != (kiln.Address{3}) {
			t.Errorf("unexpected address of mutation %d: %v", i, m.Address)
		}
		if m.Owner == nil || m.Owner.Recipient() != ctx.Recipient() {
			t.Errorf("mutation %d not owned by the bridge context", i)
		}
	}
}

func TestBridge_CommitOfRootWritesToRepository(t *testing.T) {
	repo := newTestRepository()
	bridge := New(repo, newTestContext(t), false)

	bridge.SetStorage(kiln.Address{2}, kiln.Key{1}, kiln.Word{7})
	if !bridge.Transfer(kiln.Address{1}, kiln.Address{2}, kiln.NewValue(40)) {
		t.Fatalf("transfer failed")
	}

	if want, got := (kiln.Word{2}), mustGetStorage(t, repo, kiln.Address{2}, kiln.Key{1}); want != got {
		t.Errorf("repository modified before commit, wanted %v, got %v", want, got)
	}
	if err := bridge.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if want, got := (kiln.Word{7}), mustGetStorage(t, repo, kiln.Address{2}, kiln.Key{1}); want != got {
		t.Errorf("unexpected storage after commit, wanted %v, got %v", want, got)
	}
	state := repo.State()
	if want, got := kiln.NewValue(60), state[kiln.Address{1}].Balance; want != got {
		t.Errorf("unexpected sender balance, wanted %v, got %v", want, got)
	}
	if want, got := kiln.NewValue(40), state[kiln.Address{2}].Balance; want != got {
		t.Errorf("unexpected receiver balance, wanted %v, got %v", want, got)
	}
}

func TestBridge_CommitOfLocalRootLeavesRepositoryUntouched(t *testing.T) {
	repo := newTestRepository()
	before := repo.State()
	bridge := New(repo, newTestContext(t), true)

	bridge.CreateAccount(kiln.Address{9})
	bridge.AddBalance(kiln.Address{1}, big.NewInt(-50))
	bridge.DeployCode(kiln.Address{9}, kiln.Code{1})
	bridge.SetStorage(kiln.Address{2}, kiln.Key{1}, kiln.Word{})
	if err := bridge.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	if diff := before.Diff(repo.State()); len(diff) != 0 {
		t.Errorf("local call modified repository: %v", diff)
	}
}

func TestBridge_LocalModeIsInheritedByChildScopes(t *testing.T) {
	for _, local := range []bool{true, false} {
		root := New(newTestRepository(), newTestContext(t), local)
		child := root.Track(newTestContext(t))
		if want, got := local, root.IsLocal(); want != got {
			t.Errorf("unexpected mode of root, wanted %t, got %t", want, got)
		}
		if want, got := local, child.IsLocal(); want != got {
			t.Errorf("unexpected mode of child, wanted %t, got %t", want, got)
		}
	}
}

func TestBridge_ChildCommitMergesIntoParent(t *testing.T) {
	repo := newTestRepository()
	root := New(repo, newTestContext(t), false)
	child := root.Track(newTestContext(t))

	child.SetStorage(kiln.Address{2}, kiln.Key{5}, kiln.Word{5})
	child.EmitLog(kiln.Log{Address: kiln.Address{2}, Topics: []kiln.Hash{{1}}})
	child.MarkForDeletion(kiln.Address{2})

	if want, got := (kiln.Word{}), root.GetStorage(kiln.Address{2}, kiln.Key{5}); want != got {
		t.Errorf("child modification visible in parent before commit: %v", got)
	}
	if err := child.Commit(); err != nil {
		t.Fatalf("failed to commit child: %v", err)
	}
	if want, got := (kiln.Word{5}), root.GetStorage(kiln.Address{2}, kiln.Key{5}); want != got {
		t.Errorf("unexpected storage in parent, wanted %v, got %v", want, got)
	}
	if want, got := 1, len(root.Logs()); want != got {
		t.Errorf("unexpected number of logs, wanted %d, got %d", want, got)
	}
	if want, got := []kiln.Address{{2}}, root.DeletedAccounts(); !slices.Equal(want, got) {
		t.Errorf("unexpected deleted accounts, wanted %v, got %v", want, got)
	}
	if want, got := 2, len(root.Mutations()); want != got {
		t.Errorf("unexpected number of mutations, wanted %d, got %d", want, got)
	}
	if want, got := (kiln.Word{2}), mustGetStorage(t, repo, kiln.Address{2}, kiln.Key{1}); want != got {
		t.Errorf("child commit reached repository, wanted %v, got %v", want, got)
	}
}

func TestBridge_DiscardedChildLeavesNoTrace(t *testing.T) {
	repo := newTestRepository()
	before := repo.State()
	root := New(repo, newTestContext(t), false)
	child := root.Track(newTestContext(t))
	grandChild := child.Track(newTestContext(t))

	grandChild.SetStorage(kiln.Address{2}, kiln.Key{1}, kiln.Word{9})
	grandChild.EmitLog(kiln.Log{Address: kiln.Address{2}})
	if err := grandChild.Commit(); err != nil {
		t.Fatalf("failed to commit grand child: %v", err)
	}
	child.MarkForDeletion(kiln.Address{1})
	child.Discard()

	if want, got := (kiln.Word{2}), root.GetStorage(kiln.Address{2}, kiln.Key{1}); want != got {
		t.Errorf("discarded modification visible, wanted %v, got %v", want, got)
	}
	if len(root.Logs()) != 0 || len(root.DeletedAccounts()) != 0 || len(root.Mutations()) != 0 {
		t.Errorf("discarded records visible in parent")
	}
	if err := root.Commit(); err != nil {
		t.Fatalf("failed to commit root: %v", err)
	}
	if diff := before.Diff(repo.State()); len(diff) != 0 {
		t.Errorf("discarded modifications reached repository: %v", diff)
	}
}

func TestBridge_ClosedScopeCannotBeCommittedTwice(t *testing.T) {
	bridge := New(newTestRepository(), newTestContext(t), false)
	if err := bridge.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if err := bridge.Commit(); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrScopeClosed, err)
	}
}

func TestBridge_AddBalanceOutOfRangeIsRejected(t *testing.T) {
	bridge := New(newTestRepository(), newTestContext(t), false)

	if bridge.AddBalance(kiln.Address{1}, big.NewInt(-101)) {
		t.Errorf("negative balance should be rejected")
	}
	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if bridge.AddBalance(kiln.Address{1}, limit) {
		t.Errorf("balance overflow should be rejected")
	}
	if want, got := kiln.NewValue(100), bridge.GetBalance(kiln.Address{1}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if err := bridge.Err(); err != nil {
		t.Errorf("range violations must not be reported as repository failures: %v", err)
	}
	if len(bridge.Mutations()) != 0 {
		t.Errorf("rejected updates must not be recorded")
	}
}

func TestBridge_TransferWithInsufficientBalanceFails(t *testing.T) {
	bridge := New(newTestRepository(), newTestContext(t), false)

	if bridge.Transfer(kiln.Address{1}, kiln.Address{2}, kiln.NewValue(101)) {
		t.Errorf("transfer should have failed")
	}
	if !bridge.Transfer(kiln.Address{1}, kiln.Address{2}, kiln.Value{}) {
		t.Errorf("zero transfer should succeed")
	}
	if want, got := kiln.NewValue(100), bridge.GetBalance(kiln.Address{1}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
}

func TestBridge_RepositoryFailuresAreStickyAndPropagateToParents(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := kiln.NewMockRepository(ctrl)
	injected := errors.New("injected")

	backend.EXPECT().StartTracking().Return(repository.NewTracking(backend))
	backend.EXPECT().HasAccount(kiln.Address{1}).Return(false, injected)

	root := New(backend, newTestContext(t), false)
	child := root.Track(newTestContext(t))

	if child.AccountExists(kiln.Address{1}) {
		t.Errorf("failed lookups should report missing accounts")
	}
	if !errors.Is(child.Err(), injected) {
		t.Errorf("unexpected error in child, wanted %v, got %v", injected, child.Err())
	}
	if !errors.Is(root.Err(), injected) {
		t.Errorf("unexpected error in root, wanted %v, got %v", injected, root.Err())
	}
	if err := root.Commit(); !errors.Is(err, injected) {
		t.Errorf("commit of failed scope should fail, got %v", err)
	}
}

func TestBridge_CallWithoutHandlerFails(t *testing.T) {
	ctx := newTestContext(t)
	bridge := New(newTestRepository(), ctx, false)

	res := bridge.Call(ctx)
	if want, got := kiln.ResultFailure, res.Code(); want != got {
		t.Errorf("unexpected result code, wanted %v, got %v", want, got)
	}
	if want, got := ctx.EnergyLimit(), res.EnergyLeft(); want != got {
		t.Errorf("unexpected energy left, wanted %d, got %d", want, got)
	}
}

func TestBridge_CallIsForwardedToHandler(t *testing.T) {
	ctx := newTestContext(t)
	root := New(newTestRepository(), ctx, false)
	want := kiln.MustNewExecutionResult(kiln.ResultSuccess, 12, kiln.Data{1})

	var seen *Bridge
	root.SetCallHandler(func(bridge *Bridge, _ kiln.ExecutionContext) *kiln.ExecutionResult {
		seen = bridge
		return want
	})
	child := root.Track(ctx)
	if got := child.Call(ctx); !want.Equal(got) {
		t.Errorf("unexpected result, wanted %v, got %v", want, got)
	}
	if seen != child {
		t.Errorf("handler should receive the calling scope")
	}
}

func mustGetStorage(t *testing.T, repo kiln.Repository, address kiln.Address, key kiln.Key) kiln.Word {
	t.Helper()
	value, err := repo.GetStorage(address, key)
	if err != nil {
		t.Fatalf("failed to read storage: %v", err)
	}
	return value
}
