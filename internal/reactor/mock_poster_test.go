package reactor

// Hand-written in the shape go.uber.org/mock's mockgen would produce for
// `mockgen -source=strand.go -package=reactor Poster`, since this module
// does not run code generators.

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

type MockPoster struct {
	ctrl     *gomock.Controller
	recorder *MockPosterMockRecorder
}

type MockPosterMockRecorder struct {
	mock *MockPoster
}

func NewMockPoster(ctrl *gomock.Controller) *MockPoster {
	mock := &MockPoster{ctrl: ctrl}
	mock.recorder = &MockPosterMockRecorder{mock}
	return mock
}

func (m *MockPoster) EXPECT() *MockPosterMockRecorder {
	return m.recorder
}

func (m *MockPoster) Post(fn Task) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Post", fn)
}

func (mr *MockPosterMockRecorder) Post(fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Post", reflect.TypeOf((*MockPoster)(nil).Post), fn)
}
