package mocks

import (
	"io"
	"strings"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/helpdesk-mailsync/internal/storage"
)

var _ storage.FileStorage = (*MockFileStorage)(nil)

// MockFileStorage stands in for the attachment store
type MockFileStorage struct {
	mock.Mock
}

// Holding makes Get return body for an attachment path.
func (m *MockFileStorage) Holding(path, body string) *mock.Call {
	return m.On("Get", path).Return(io.NopCloser(strings.NewReader(body)), nil)
}

// Missing makes Get fail for an attachment path.
func (m *MockFileStorage) Missing(path string, err error) *mock.Call {
	if err == nil {
		err = storage.ErrFileNotFound
	}
	return m.On("Get", path).Return(nil, err)
}

func (m *MockFileStorage) Save(filename string, content io.Reader) (string, error) {
	args := m.Called(filename, content)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) Get(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockFileStorage) Delete(path string) error {
	return m.Called(path).Error(0)
}
