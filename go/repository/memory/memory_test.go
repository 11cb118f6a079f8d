// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/repository"
)

func TestRepository_MissingAccountsReadAsZero(t *testing.T) {
	repo := New()
	address := kiln.Address{1}
	if exists, err := repo.HasAccount(address); err != nil || exists {
		t.Errorf("unexpected existence %t, err %v", exists, err)
	}
	if balance, err := repo.GetBalance(address); err != nil || !balance.IsZero() {
		t.Errorf("unexpected balance %v, err %v", balance, err)
	}
	if code, err := repo.GetCode(address); err != nil || len(code) != 0 {
		t.Errorf("unexpected code %x, err %v", code, err)
	}
	if value, err := repo.GetStorage(address, kiln.Key{1}); err != nil || value != (kiln.Word{}) {
		t.Errorf("unexpected storage value %v, err %v", value, err)
	}
}

func TestRepository_AddBalanceCreatesAccountAndRejectsNegativeBalances(t *testing.T) {
	repo := New()
	address := kiln.Address{1}
	if err := repo.AddBalance(address, big.NewInt(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := repo.HasAccount(address); !exists {
		t.Errorf("account should exist")
	}
	if err := repo.AddBalance(address, big.NewInt(-11)); !errors.Is(err, kiln.ErrInsufficientBalance) {
		t.Errorf("unexpected error, wanted %v, got %v", kiln.ErrInsufficientBalance, err)
	}
	if err := repo.AddBalance(address, big.NewInt(-10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance, _ := repo.GetBalance(address); !balance.IsZero() {
		t.Errorf("unexpected balance %v", balance)
	}
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := repo.AddBalance(address, overflow); !errors.Is(err, kiln.ErrBalanceOverflow) {
		t.Errorf("unexpected error, wanted %v, got %v", kiln.ErrBalanceOverflow, err)
	}
}

func TestRepository_DeleteAccountRemovesAllContent(t *testing.T) {
	address := kiln.Address{1}
	repo := NewFromState(WorldState{
		address: {Balance: kiln.NewValue(5), Nonce: 2, Code: kiln.Code{1}, Storage: Storage{{1}: {2}}},
	})
	if err := repo.DeleteAccount(address); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := repo.HasAccount(address); exists {
		t.Errorf("account should be deleted")
	}
	if diff := repo.State().Diff(WorldState{}); len(diff) != 0 {
		t.Errorf("unexpected state: %v", diff)
	}
}

func TestRepository_TrackingViewIsIsolatedUntilFlushed(t *testing.T) {
	address := kiln.Address{1}
	repo := NewFromState(WorldState{address: {Balance: kiln.NewValue(10)}})
	before := repo.State()

	view := repo.StartTracking()
	if err := view.AddBalance(address, big.NewInt(-4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := view.PutStorage(address, kiln.Key{1}, kiln.Word{2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance, _ := view.GetBalance(address); balance != kiln.NewValue(6) {
		t.Errorf("view does not see its own modification, got %v", balance)
	}
	if !repo.State().Equal(before) {
		t.Errorf("parent modified before flush: %v", repo.State().Diff(before))
	}

	if err := view.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := WorldState{address: {Balance: kiln.NewValue(6), Storage: Storage{{1}: {2}}}}
	if got := repo.State(); !got.Equal(want) {
		t.Errorf("unexpected state after flush: %v", got.Diff(want))
	}
}

func TestRepository_RollbackDiscardsTrackedModifications(t *testing.T) {
	repo := New()
	view := repo.StartTracking()
	if err := view.PutCode(kiln.Address{1}, kiln.Code{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view.Rollback()
	if err := view.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.State(); len(got) != 0 {
		t.Errorf("unexpected state after rollback: %v", got)
	}
}

func TestRepository_NestedViewsRollUpIntoTheirParent(t *testing.T) {
	repo := New()
	outer := repo.StartTracking()
	inner := outer.StartTracking()
	if err := inner.IncrementNonce(kiln.Address{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inner.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nonce, _ := outer.GetNonce(kiln.Address{1}); nonce != 1 {
		t.Errorf("outer view does not see flushed nonce, got %d", nonce)
	}
	if nonce, _ := repo.GetNonce(kiln.Address{1}); nonce != 0 {
		t.Errorf("repository modified before outer flush, got %d", nonce)
	}
	if err := outer.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nonce, _ := repo.GetNonce(kiln.Address{1}); nonce != 1 {
		t.Errorf("unexpected nonce after flush, got %d", nonce)
	}
}

func TestRepository_ApplyOpsIsAtomic(t *testing.T) {
	address := kiln.Address{1}
	repo := NewFromState(WorldState{address: {Balance: kiln.NewValue(10)}})
	before := repo.State()

	err := repo.ApplyOps([]repository.Op{
		{Kind: repository.OpPutStorage, Address: address, Key: kiln.Key{1}, Value: kiln.Word{1}},
		{Kind: repository.OpAddBalance, Address: address, Delta: big.NewInt(-11)},
	})
	if !errors.Is(err, kiln.ErrInsufficientBalance) {
		t.Fatalf("unexpected error, wanted %v, got %v", kiln.ErrInsufficientBalance, err)
	}
	if got := repo.State(); !got.Equal(before) {
		t.Errorf("failed batch modified state: %v", got.Diff(before))
	}
}

func TestRepository_DeletedAndRecreatedAccountsLoseTheirStorage(t *testing.T) {
	address := kiln.Address{1}
	repo := NewFromState(WorldState{address: {Nonce: 1, Storage: Storage{{1}: {1}, {2}: {2}}}})
	view := repo.StartTracking()
	if err := view.DeleteAccount(address); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := view.PutStorage(address, kiln.Key{2}, kiln.Word{3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value, _ := view.GetStorage(address, kiln.Key{1}); value != (kiln.Word{}) {
		t.Errorf("deleted storage still visible: %v", value)
	}
	if err := view.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := WorldState{address: {Storage: Storage{{2}: {3}}}}
	if got := repo.State(); !got.Equal(want) {
		t.Errorf("unexpected state: %v", got.Diff(want))
	}
}

func TestRepository_ClosedRepositoryReportsErrors(t *testing.T) {
	repo := New()
	repo.Close()
	if _, err := repo.GetBalance(kiln.Address{}); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrClosed, err)
	}
	if err := repo.AddBalance(kiln.Address{}, big.NewInt(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrClosed, err)
	}
	view := repo.StartTracking()
	if err := view.CreateAccount(kiln.Address{}); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrClosed, err)
	}
}

func TestRepository_ConcurrentFlushesAreSerialized(t *testing.T) {
	repo := New()
	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			view := repo.StartTracking()
			if err := view.AddBalance(kiln.Address{1}, big.NewInt(1)); err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err := view.Flush(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if balance, _ := repo.GetBalance(kiln.Address{1}); balance != kiln.NewValue(workers) {
		t.Errorf("unexpected balance, wanted %d, got %v", workers, balance)
	}
}

func TestWorldState_DiffReportsDifferences(t *testing.T) {
	a := WorldState{kiln.Address{1}: {Balance: kiln.NewValue(1)}}
	b := WorldState{kiln.Address{1}: {Balance: kiln.NewValue(2)}, kiln.Address{2}: {}}
	if a.Equal(b) {
		t.Errorf("states should differ")
	}
	if want, got := 1, len(a.Diff(b)); want != got {
		t.Errorf("unexpected number of differences, wanted %d, got %d: %v", want, got, a.Diff(b))
	}
	if !a.Equal(a.Clone()) {
		t.Errorf("clone should be equal")
	}
}

func TestWorldState_DiffCoversCodeAndStorage(t *testing.T) {
	a := WorldState{kiln.Address{1}: {
		Code:    kiln.Code{1, 2},
		Storage: Storage{kiln.Key{1}: kiln.Word{1}, kiln.Key{2}: {}},
	}}
	b := a.Clone()
	if diff := a.Diff(b); len(diff) != 0 {
		t.Fatalf("clone differs: %v", diff)
	}

	account := b[kiln.Address{1}]
	account.Code[0] = 7
	account.Storage[kiln.Key{1}] = kiln.Word{2}
	account.Storage[kiln.Key{3}] = kiln.Word{3}

	if want, got := 3, len(a.Diff(b)); want != got {
		t.Errorf("unexpected number of differences, wanted %d, got %d: %v", want, got, a.Diff(b))
	}
	if want, got := (kiln.Word{1}), a[kiln.Address{1}].Storage[kiln.Key{1}]; want != got {
		t.Errorf("clone shares storage with original, wanted %v, got %v", want, got)
	}
	if want, got := byte(1), a[kiln.Address{1}].Code[0]; want != got {
		t.Errorf("clone shares code with original, wanted %v, got %v", want, got)
	}
}
