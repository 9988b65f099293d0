package codec

// Hand-written in the shape go.uber.org/mock's mockgen would produce for
// `mockgen -source=codec.go -package=codec Codec`, since this module does
// not run code generators.

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	"github.com/dac1976/corelib-go/internal/wire"
)

type MockCodec struct {
	ctrl     *gomock.Controller
	recorder *MockCodecMockRecorder
}

type MockCodecMockRecorder struct {
	mock *MockCodec
}

func NewMockCodec(ctrl *gomock.Controller) *MockCodec {
	mock := &MockCodec{ctrl: ctrl}
	mock.recorder = &MockCodecMockRecorder{mock}
	return mock
}

func (m *MockCodec) EXPECT() *MockCodecMockRecorder {
	return m.recorder
}

func (m *MockCodec) Marshal(v any) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Marshal", v)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockCodecMockRecorder) Marshal(v any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Marshal", reflect.TypeOf((*MockCodec)(nil).Marshal), v)
}

func (m *MockCodec) Unmarshal(data []byte, v any) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Unmarshal", data, v)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockCodecMockRecorder) Unmarshal(data, v any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Unmarshal", reflect.TypeOf((*MockCodec)(nil).Unmarshal), data, v)
}

func (m *MockCodec) ArchiveType() wire.ArchiveType {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ArchiveType")
	ret0, _ := ret[0].(wire.ArchiveType)
	return ret0
}

func (mr *MockCodecMockRecorder) ArchiveType() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ArchiveType", reflect.TypeOf((*MockCodec)(nil).ArchiveType))
}
