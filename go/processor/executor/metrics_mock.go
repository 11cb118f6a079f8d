// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package executor is a generated GoMock package.
package executor

import (
	reflect "reflect"
	time "time"

	kiln "github.com/Fantom-foundation/Kiln/go/kiln"
	gomock "go.uber.org/mock/gomock"
)

// MockMetrics is a mock of Metrics interface.
type MockMetrics struct {
	ctrl     *gomock.Controller
	recorder *MockMetricsMockRecorder
}

// MockMetricsMockRecorder is the mock recorder for MockMetrics.
type MockMetricsMockRecorder struct {
	mock *MockMetrics
}

// NewMockMetrics creates a new mock instance.
func NewMockMetrics(ctrl *gomock.Controller) *MockMetrics {
	mock := &MockMetrics{ctrl: ctrl}
	mock.recorder = &MockMetricsMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMetrics) EXPECT() *MockMetricsMockRecorder {
	return m.recorder
}

// FaultContained mocks base method.
func (m *MockMetrics) FaultContained() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "FaultContained")
}

// FaultContained indicates an expected call of FaultContained.
func (mr *MockMetricsMockRecorder) FaultContained() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FaultContained", reflect.TypeOf((*MockMetrics)(nil).FaultContained))
}

// TransactionExecuted mocks base method.
func (m *MockMetrics) TransactionExecuted(summary *kiln.TxSummary, duration time.Duration) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "TransactionExecuted", summary, duration)
}

// TransactionExecuted indicates an expected call of TransactionExecuted.
func (mr *MockMetricsMockRecorder) TransactionExecuted(summary, duration any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TransactionExecuted", reflect.TypeOf((*MockMetrics)(nil).TransactionExecuted), summary, duration)
}
