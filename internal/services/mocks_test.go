package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadBytes(ctx context.Context, filename string, b []byte) (string, error) {
	args := m.Called(ctx, filename, b)
	return args.String(0), args.Error(1)
}

func (m *MockUploader) RetrievalURL(contentHash string) string {
	args := m.Called(contentHash)
	return args.String(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishMessage(ctx context.Context, key, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
