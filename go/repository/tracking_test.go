// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package repository

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"go.uber.org/mock/gomock"
)

func TestTracking_ReadsOfUntouchedAccountsAreForwarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	address := kiln.Address{1}

	parent.EXPECT().GetStorage(address, kiln.Key{2}).Return(kiln.Word{3}, nil)
	parent.EXPECT().HasAccount(address).Return(false, nil)

	tracking := NewTracking(parent)
	if value, err := tracking.GetStorage(address, kiln.Key{2}); err != nil || value != (kiln.Word{3}) {
		t.Errorf("unexpected value %v, err %v", value, err)
	}
	if exists, err := tracking.HasAccount(address); err != nil || exists {
		t.Errorf("unexpected existence %t, err %v", exists, err)
	}
}

func TestTracking_ParentErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	injected := errors.New("injected")

	parent.EXPECT().HasAccount(gomock.Any()).Return(false, injected).AnyTimes()

	tracking := NewTracking(parent)
	if err := tracking.AddBalance(kiln.Address{1}, big.NewInt(1)); !errors.Is(err, injected) {
		t.Errorf("unexpected error, wanted %v, got %v", injected, err)
	}
	if _, err := tracking.GetBalance(kiln.Address{1}); !errors.Is(err, injected) {
		t.Errorf("unexpected error, wanted %v, got %v", injected, err)
	}
	if len(tracking.Ops()) != 0 {
		t.Errorf("failed operations must not be recorded")
	}
}

func TestTracking_FlushReplaysOperationsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	address := kiln.Address{1}

	parent.EXPECT().HasAccount(address).Return(true, nil)
	parent.EXPECT().GetBalance(address).Return(kiln.NewValue(10), nil)
	parent.EXPECT().GetNonce(address).Return(uint64(0), nil)
	parent.EXPECT().GetCode(address).Return(nil, nil)

	tracking := NewTracking(parent)
	if err := tracking.AddBalance(address, big.NewInt(-3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracking.PutStorage(address, kiln.Key{1}, kiln.Word{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracking.DeleteAccount(address); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gomock.InOrder(
		parent.EXPECT().AddBalance(address, big.NewInt(-3)).Return(nil),
		parent.EXPECT().PutStorage(address, kiln.Key{1}, kiln.Word{1}).Return(nil),
		parent.EXPECT().DeleteAccount(address).Return(nil),
	)
	if err := tracking.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracking.Ops()) != 0 || len(tracking.Changes()) != 0 {
		t.Errorf("flush should reset the view")
	}
}

func TestTracking_FailedFlushRetainsModifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	address := kiln.Address{1}
	injected := errors.New("injected")

	parent.EXPECT().HasAccount(address).Return(false, nil)
	parent.EXPECT().IncrementNonce(address).Return(injected)

	tracking := NewTracking(parent)
	if err := tracking.IncrementNonce(address); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracking.Flush(); !errors.Is(err, injected) {
		t.Errorf("unexpected error, wanted %v, got %v", injected, err)
	}
	if want, got := 1, len(tracking.Ops()); want != got {
		t.Errorf("unexpected number of retained operations, wanted %d, got %d", want, got)
	}
}

func TestTracking_ChangesSummarizeFinalAccountStates(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	parent.EXPECT().HasAccount(gomock.Any()).Return(false, nil).Times(2)

	tracking := NewTracking(parent)
	first, second := kiln.Address{1}, kiln.Address{2}
	if err := tracking.PutCode(second, kiln.Code{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracking.AddBalance(first, big.NewInt(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracking.IncrementNonce(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changes := tracking.Changes()
	if want, got := 2, len(changes); want != got {
		t.Fatalf("unexpected number of changes, wanted %d, got %d", want, got)
	}
	if changes[0].Address != second || changes[1].Address != first {
		t.Errorf("changes are not in modification order: %v", changes)
	}
	if !changes[0].Exists || changes[0].Nonce != 1 || len(changes[0].Code) != 1 {
		t.Errorf("unexpected change of second account: %+v", changes[0])
	}
	if changes[1].Balance != kiln.NewValue(5) {
		t.Errorf("unexpected balance of first account: %v", changes[1].Balance)
	}
}

func TestReplay_UnknownOperationsAreRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	parent := kiln.NewMockRepository(ctrl)
	if err := Replay(parent, []Op{{Kind: OpKind(42)}}); err == nil {
		t.Errorf("expected error, got nil")
	}
}

func TestAddToBalance(t *testing.T) {
	tests := map[string]struct {
		balance kiln.Value
		delta   *big.Int
		want    kiln.Value
		err     error
	}{
		"increase":  {kiln.NewValue(1), big.NewInt(2), kiln.NewValue(3), nil},
		"decrease":  {kiln.NewValue(3), big.NewInt(-2), kiln.NewValue(1), nil},
		"to zero":   {kiln.NewValue(3), big.NewInt(-3), kiln.NewValue(), nil},
		"underflow": {kiln.NewValue(3), big.NewInt(-4), kiln.Value{}, kiln.ErrInsufficientBalance},
		"overflow":  {kiln.NewValue(1), new(big.Int).Lsh(big.NewInt(1), 256), kiln.Value{}, kiln.ErrBalanceOverflow},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := AddToBalance(test.balance, test.delta)
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Errorf("unexpected error, wanted %v, got %v", test.err, err)
				}
				return
			}
			if err != nil || got != test.want {
				t.Errorf("unexpected result %v, err %v", got, err)
			}
		})
	}
}
