// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kiln is a generated GoMock package.
package kiln

import (
	big "math/big"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockInterpreter is a mock of Interpreter interface.
type MockInterpreter struct {
	ctrl     *gomock.Controller
	recorder *MockInterpreterMockRecorder
}

// MockInterpreterMockRecorder is the mock recorder for MockInterpreter.
type MockInterpreterMockRecorder struct {
	mock *MockInterpreter
}

// NewMockInterpreter creates a new mock instance.
func NewMockInterpreter(ctrl *gomock.Controller) *MockInterpreter {
	mock := &MockInterpreter{ctrl: ctrl}
	mock.recorder = &MockInterpreterMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInterpreter) EXPECT() *MockInterpreterMockRecorder {
	return m.recorder
}

// Run mocks base method.
func (m *MockInterpreter) Run(code Code, ctx ExecutionContext, bridge StateBridge) (*ExecutionResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", code, ctx, bridge)
	ret0, _ := ret[0].(*ExecutionResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockInterpreterMockRecorder) Run(code, ctx, bridge any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockInterpreter)(nil).Run), code, ctx, bridge)
}

// MockPrecompiledContract is a mock of PrecompiledContract interface.
type MockPrecompiledContract struct {
	ctrl     *gomock.Controller
	recorder *MockPrecompiledContractMockRecorder
}

// MockPrecompiledContractMockRecorder is the mock recorder for MockPrecompiledContract.
type MockPrecompiledContractMockRecorder struct {
	mock *MockPrecompiledContract
}

// NewMockPrecompiledContract creates a new mock instance.
func NewMockPrecompiledContract(ctrl *gomock.Controller) *MockPrecompiledContract {
	mock := &MockPrecompiledContract{ctrl: ctrl}
	mock.recorder = &MockPrecompiledContractMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPrecompiledContract) EXPECT() *MockPrecompiledContractMockRecorder {
	return m.recorder
}

// Execute mocks base method.
func (m *MockPrecompiledContract) Execute(input Data, energyLimit Energy) *ExecutionResult {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Execute", input, energyLimit)
	ret0, _ := ret[0].(*ExecutionResult)
	return ret0
}

// Execute indicates an expected call of Execute.
func (mr *MockPrecompiledContractMockRecorder) Execute(input, energyLimit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Execute", reflect.TypeOf((*MockPrecompiledContract)(nil).Execute), input, energyLimit)
}

// MockStateBridge is a mock of StateBridge interface.
type MockStateBridge struct {
	ctrl     *gomock.Controller
	recorder *MockStateBridgeMockRecorder
}

// MockStateBridgeMockRecorder is the mock recorder for MockStateBridge.
type MockStateBridgeMockRecorder struct {
	mock *MockStateBridge
}

// NewMockStateBridge creates a new mock instance.
func NewMockStateBridge(ctrl *gomock.Controller) *MockStateBridge {
	mock := &MockStateBridge{ctrl: ctrl}
	mock.recorder = &MockStateBridgeMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStateBridge) EXPECT() *MockStateBridgeMockRecorder {
	return m.recorder
}

// AccountExists mocks base method.
func (m *MockStateBridge) AccountExists(arg0 Address) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AccountExists", arg0)
	ret0, _ := ret[0].(bool)
	return ret0
}

// AccountExists indicates an expected call of AccountExists.
func (mr *MockStateBridgeMockRecorder) AccountExists(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AccountExists", reflect.TypeOf((*MockStateBridge)(nil).AccountExists), arg0)
}

// AddBalance mocks base method.
func (m *MockStateBridge) AddBalance(arg0 Address, arg1 *big.Int) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddBalance", arg0, arg1)
	ret0, _ := ret[0].(bool)
	return ret0
}

// AddBalance indicates an expected call of AddBalance.
func (mr *MockStateBridgeMockRecorder) AddBalance(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddBalance", reflect.TypeOf((*MockStateBridge)(nil).AddBalance), arg0, arg1)
}

// Call mocks base method.
func (m *MockStateBridge) Call(arg0 ExecutionContext) *ExecutionResult {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Call", arg0)
	ret0, _ := ret[0].(*ExecutionResult)
	return ret0
}

// Call indicates an expected call of Call.
func (mr *MockStateBridgeMockRecorder) Call(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Call", reflect.TypeOf((*MockStateBridge)(nil).Call), arg0)
}

// CreateAccount mocks base method.
func (m *MockStateBridge) CreateAccount(arg0 Address) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "CreateAccount", arg0)
}

// CreateAccount indicates an expected call of CreateAccount.
func (mr *MockStateBridgeMockRecorder) CreateAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateAccount", reflect.TypeOf((*MockStateBridge)(nil).CreateAccount), arg0)
}

// DeployCode mocks base method.
func (m *MockStateBridge) DeployCode(arg0 Address, arg1 Code) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "DeployCode", arg0, arg1)
}

// DeployCode indicates an expected call of DeployCode.
func (mr *MockStateBridgeMockRecorder) DeployCode(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeployCode", reflect.TypeOf((*MockStateBridge)(nil).DeployCode), arg0, arg1)
}

// EmitLog mocks base method.
func (m *MockStateBridge) EmitLog(arg0 Log) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "EmitLog", arg0)
}

// EmitLog indicates an expected call of EmitLog.
func (mr *MockStateBridgeMockRecorder) EmitLog(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EmitLog", reflect.TypeOf((*MockStateBridge)(nil).EmitLog), arg0)
}

// GetBalance mocks base method.
func (m *MockStateBridge) GetBalance(arg0 Address) Value {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBalance", arg0)
	ret0, _ := ret[0].(Value)
	return ret0
}

// GetBalance indicates an expected call of GetBalance.
func (mr *MockStateBridgeMockRecorder) GetBalance(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBalance", reflect.TypeOf((*MockStateBridge)(nil).GetBalance), arg0)
}

// GetCode mocks base method.
func (m *MockStateBridge) GetCode(arg0 Address) Code {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetCode", arg0)
	ret0, _ := ret[0].(Code)
	return ret0
}

// GetCode indicates an expected call of GetCode.
func (mr *MockStateBridgeMockRecorder) GetCode(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetCode", reflect.TypeOf((*MockStateBridge)(nil).GetCode), arg0)
}

// GetCodeHash mocks base method.
func (m *MockStateBridge) GetCodeHash(arg0 Address) Hash {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetCodeHash", arg0)
	ret0, _ := ret[0].(Hash)
	return ret0
}

// GetCodeHash indicates an expected call of GetCodeHash.
func (mr *MockStateBridgeMockRecorder) GetCodeHash(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetCodeHash", reflect.TypeOf((*MockStateBridge)(nil).GetCodeHash), arg0)
}

// GetNonce mocks base method.
func (m *MockStateBridge) GetNonce(arg0 Address) uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetNonce", arg0)
	ret0, _ := ret[0].(uint64)
	return ret0
}

// GetNonce indicates an expected call of GetNonce.
func (mr *MockStateBridgeMockRecorder) GetNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetNonce", reflect.TypeOf((*MockStateBridge)(nil).GetNonce), arg0)
}

// GetStorage mocks base method.
func (m *MockStateBridge) GetStorage(arg0 Address, arg1 Key) Word {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStorage", arg0, arg1)
	ret0, _ := ret[0].(Word)
	return ret0
}

// GetStorage indicates an expected call of GetStorage.
func (mr *MockStateBridgeMockRecorder) GetStorage(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStorage", reflect.TypeOf((*MockStateBridge)(nil).GetStorage), arg0, arg1)
}

// IncrementNonce mocks base method.
func (m *MockStateBridge) IncrementNonce(arg0 Address) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "IncrementNonce", arg0)
}

// IncrementNonce indicates an expected call of IncrementNonce.
func (mr *MockStateBridgeMockRecorder) IncrementNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IncrementNonce", reflect.TypeOf((*MockStateBridge)(nil).IncrementNonce), arg0)
}

// MarkForDeletion mocks base method.
func (m *MockStateBridge) MarkForDeletion(arg0 Address) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "MarkForDeletion", arg0)
}

// MarkForDeletion indicates an expected call of MarkForDeletion.
func (mr *MockStateBridgeMockRecorder) MarkForDeletion(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkForDeletion", reflect.TypeOf((*MockStateBridge)(nil).MarkForDeletion), arg0)
}

// SetStorage mocks base method.
func (m *MockStateBridge) SetStorage(arg0 Address, arg1 Key, arg2 Word) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetStorage", arg0, arg1, arg2)
}

// SetStorage indicates an expected call of SetStorage.
func (mr *MockStateBridgeMockRecorder) SetStorage(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetStorage", reflect.TypeOf((*MockStateBridge)(nil).SetStorage), arg0, arg1, arg2)
}

// Transfer mocks base method.
func (m *MockStateBridge) Transfer(from Address, to Address, value Value) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Transfer", from, to, value)
	ret0, _ := ret[0].(bool)
	return ret0
}

// Transfer indicates an expected call of Transfer.
func (mr *MockStateBridgeMockRecorder) Transfer(from, to, value any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Transfer", reflect.TypeOf((*MockStateBridge)(nil).Transfer), from, to, value)
}
