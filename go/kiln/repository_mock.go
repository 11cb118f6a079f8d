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

// MockRepository is a mock of Repository interface.
type MockRepository struct {
	ctrl     *gomock.Controller
	recorder *MockRepositoryMockRecorder
}

// MockRepositoryMockRecorder is the mock recorder for MockRepository.
type MockRepositoryMockRecorder struct {
	mock *MockRepository
}

// NewMockRepository creates a new mock instance.
func NewMockRepository(ctrl *gomock.Controller) *MockRepository {
	mock := &MockRepository{ctrl: ctrl}
	mock.recorder = &MockRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRepository) EXPECT() *MockRepositoryMockRecorder {
	return m.recorder
}

// AddBalance mocks base method.
func (m *MockRepository) AddBalance(arg0 Address, arg1 *big.Int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddBalance", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// AddBalance indicates an expected call of AddBalance.
func (mr *MockRepositoryMockRecorder) AddBalance(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddBalance", reflect.TypeOf((*MockRepository)(nil).AddBalance), arg0, arg1)
}

// CreateAccount mocks base method.
func (m *MockRepository) CreateAccount(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateAccount", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateAccount indicates an expected call of CreateAccount.
func (mr *MockRepositoryMockRecorder) CreateAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateAccount", reflect.TypeOf((*MockRepository)(nil).CreateAccount), arg0)
}

// DeleteAccount mocks base method.
func (m *MockRepository) DeleteAccount(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteAccount", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteAccount indicates an expected call of DeleteAccount.
func (mr *MockRepositoryMockRecorder) DeleteAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteAccount", reflect.TypeOf((*MockRepository)(nil).DeleteAccount), arg0)
}

// GetBalance mocks base method.
func (m *MockRepository) GetBalance(arg0 Address) (Value, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBalance", arg0)
	ret0, _ := ret[0].(Value)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetBalance indicates an expected call of GetBalance.
func (mr *MockRepositoryMockRecorder) GetBalance(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBalance", reflect.TypeOf((*MockRepository)(nil).GetBalance), arg0)
}

// GetCode mocks base method.
func (m *MockRepository) GetCode(arg0 Address) (Code, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetCode", arg0)
	ret0, _ := ret[0].(Code)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetCode indicates an expected call of GetCode.
func (mr *MockRepositoryMockRecorder) GetCode(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetCode", reflect.TypeOf((*MockRepository)(nil).GetCode), arg0)
}

// GetNonce mocks base method.
func (m *MockRepository) GetNonce(arg0 Address) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetNonce", arg0)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetNonce indicates an expected call of GetNonce.
func (mr *MockRepositoryMockRecorder) GetNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetNonce", reflect.TypeOf((*MockRepository)(nil).GetNonce), arg0)
}

// GetStorage mocks base method.
func (m *MockRepository) GetStorage(arg0 Address, arg1 Key) (Word, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStorage", arg0, arg1)
	ret0, _ := ret[0].(Word)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetStorage indicates an expected call of GetStorage.
func (mr *MockRepositoryMockRecorder) GetStorage(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStorage", reflect.TypeOf((*MockRepository)(nil).GetStorage), arg0, arg1)
}

// HasAccount mocks base method.
func (m *MockRepository) HasAccount(arg0 Address) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HasAccount", arg0)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// HasAccount indicates an expected call of HasAccount.
func (mr *MockRepositoryMockRecorder) HasAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HasAccount", reflect.TypeOf((*MockRepository)(nil).HasAccount), arg0)
}

// IncrementNonce mocks base method.
func (m *MockRepository) IncrementNonce(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IncrementNonce", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// IncrementNonce indicates an expected call of IncrementNonce.
func (mr *MockRepositoryMockRecorder) IncrementNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IncrementNonce", reflect.TypeOf((*MockRepository)(nil).IncrementNonce), arg0)
}

// PutCode mocks base method.
func (m *MockRepository) PutCode(arg0 Address, arg1 Code) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PutCode", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// PutCode indicates an expected call of PutCode.
func (mr *MockRepositoryMockRecorder) PutCode(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PutCode", reflect.TypeOf((*MockRepository)(nil).PutCode), arg0, arg1)
}

// PutStorage mocks base method.
func (m *MockRepository) PutStorage(arg0 Address, arg1 Key, arg2 Word) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PutStorage", arg0, arg1, arg2)
	ret0, _ := ret[0].(error)
	return ret0
}

// PutStorage indicates an expected call of PutStorage.
func (mr *MockRepositoryMockRecorder) PutStorage(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PutStorage", reflect.TypeOf((*MockRepository)(nil).PutStorage), arg0, arg1, arg2)
}

// StartTracking mocks base method.
func (m *MockRepository) StartTracking() TrackingRepository {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StartTracking")
	ret0, _ := ret[0].(TrackingRepository)
	return ret0
}

// StartTracking indicates an expected call of StartTracking.
func (mr *MockRepositoryMockRecorder) StartTracking() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StartTracking", reflect.TypeOf((*MockRepository)(nil).StartTracking))
}

// MockTrackingRepository is a mock of TrackingRepository interface.
type MockTrackingRepository struct {
	ctrl     *gomock.Controller
	recorder *MockTrackingRepositoryMockRecorder
}

// MockTrackingRepositoryMockRecorder is the mock recorder for MockTrackingRepository.
type MockTrackingRepositoryMockRecorder struct {
	mock *MockTrackingRepository
}

// NewMockTrackingRepository creates a new mock instance.
func NewMockTrackingRepository(ctrl *gomock.Controller) *MockTrackingRepository {
	mock := &MockTrackingRepository{ctrl: ctrl}
	mock.recorder = &MockTrackingRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTrackingRepository) EXPECT() *MockTrackingRepositoryMockRecorder {
	return m.recorder
}

// AddBalance mocks base method.
func (m *MockTrackingRepository) AddBalance(arg0 Address, arg1 *big.Int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddBalance", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// AddBalance indicates an expected call of AddBalance.
func (mr *MockTrackingRepositoryMockRecorder) AddBalance(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddBalance", reflect.TypeOf((*MockTrackingRepository)(nil).AddBalance), arg0, arg1)
}

// CreateAccount mocks base method.
func (m *MockTrackingRepository) CreateAccount(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateAccount", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateAccount indicates an expected call of CreateAccount.
func (mr *MockTrackingRepositoryMockRecorder) CreateAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateAccount", reflect.TypeOf((*MockTrackingRepository)(nil).CreateAccount), arg0)
}

// DeleteAccount mocks base method.
func (m *MockTrackingRepository) DeleteAccount(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteAccount", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteAccount indicates an expected call of DeleteAccount.
func (mr *MockTrackingRepositoryMockRecorder) DeleteAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteAccount", reflect.TypeOf((*MockTrackingRepository)(nil).DeleteAccount), arg0)
}

// Flush mocks base method.
func (m *MockTrackingRepository) Flush() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Flush")
	ret0, _ := ret[0].(error)
	return ret0
}

// Flush indicates an expected call of Flush.
func (mr *MockTrackingRepositoryMockRecorder) Flush() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Flush", reflect.TypeOf((*MockTrackingRepository)(nil).Flush))
}

// GetBalance mocks base method.
func (m *MockTrackingRepository) GetBalance(arg0 Address) (Value, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBalance", arg0)
	ret0, _ := ret[0].(Value)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetBalance indicates an expected call of GetBalance.
func (mr *MockTrackingRepositoryMockRecorder) GetBalance(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBalance", reflect.TypeOf((*MockTrackingRepository)(nil).GetBalance), arg0)
}

// GetCode mocks base method.
func (m *MockTrackingRepository) GetCode(arg0 Address) (Code, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetCode", arg0)
	ret0, _ := ret[0].(Code)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetCode indicates an expected call of GetCode.
func (mr *MockTrackingRepositoryMockRecorder) GetCode(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetCode", reflect.TypeOf((*MockTrackingRepository)(nil).GetCode), arg0)
}

// GetNonce mocks base method.
func (m *MockTrackingRepository) GetNonce(arg0 Address) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetNonce", arg0)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetNonce indicates an expected call of GetNonce.
func (mr *MockTrackingRepositoryMockRecorder) GetNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetNonce", reflect.TypeOf((*MockTrackingRepository)(nil).GetNonce), arg0)
}

// GetStorage mocks base method.
func (m *MockTrackingRepository) GetStorage(arg0 Address, arg1 Key) (Word, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStorage", arg0, arg1)
	ret0, _ := ret[0].(Word)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetStorage indicates an expected call of GetStorage.
func (mr *MockTrackingRepositoryMockRecorder) GetStorage(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStorage", reflect.TypeOf((*MockTrackingRepository)(nil).GetStorage), arg0, arg1)
}

// HasAccount mocks base method.
func (m *MockTrackingRepository) HasAccount(arg0 Address) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HasAccount", arg0)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// HasAccount indicates an expected call of HasAccount.
func (mr *MockTrackingRepositoryMockRecorder) HasAccount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HasAccount", reflect.TypeOf((*MockTrackingRepository)(nil).HasAccount), arg0)
}

// IncrementNonce mocks base method.
func (m *MockTrackingRepository) IncrementNonce(arg0 Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IncrementNonce", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// IncrementNonce indicates an expected call of IncrementNonce.
func (mr *MockTrackingRepositoryMockRecorder) IncrementNonce(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IncrementNonce", reflect.TypeOf((*MockTrackingRepository)(nil).IncrementNonce), arg0)
}

// PutCode mocks base method.
func (m *MockTrackingRepository) PutCode(arg0 Address, arg1 Code) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PutCode", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// PutCode indicates an expected call of PutCode.
func (mr *MockTrackingRepositoryMockRecorder) PutCode(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PutCode", reflect.TypeOf((*MockTrackingRepository)(nil).PutCode), arg0, arg1)
}

// PutStorage mocks base method.
func (m *MockTrackingRepository) PutStorage(arg0 Address, arg1 Key, arg2 Word) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PutStorage", arg0, arg1, arg2)
	ret0, _ := ret[0].(error)
	return ret0
}

// PutStorage indicates an expected call of PutStorage.
func (mr *MockTrackingRepositoryMockRecorder) PutStorage(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PutStorage", reflect.TypeOf((*MockTrackingRepository)(nil).PutStorage), arg0, arg1, arg2)
}

// Rollback mocks base method.
func (m *MockTrackingRepository) Rollback() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Rollback")
}

// Rollback indicates an expected call of Rollback.
func (mr *MockTrackingRepositoryMockRecorder) Rollback() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Rollback", reflect.TypeOf((*MockTrackingRepository)(nil).Rollback))
}

// StartTracking mocks base method.
func (m *MockTrackingRepository) StartTracking() TrackingRepository {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StartTracking")
	ret0, _ := ret[0].(TrackingRepository)
	return ret0
}

// StartTracking indicates an expected call of StartTracking.
func (mr *MockTrackingRepositoryMockRecorder) StartTracking() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StartTracking", reflect.TypeOf((*MockTrackingRepository)(nil).StartTracking))
}
