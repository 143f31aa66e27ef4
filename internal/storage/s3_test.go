package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func TestS3Config_Validate(t *testing.T) {
	assert.Error(t, S3Config{}.Validate())
	assert.Error(t, S3Config{Region: "us-east-1", AccessKeyID: "id"}.Validate())
	assert.NoError(t, S3Config{Region: "us-east-1"}.Validate())
	assert.NoError(t, S3Config{Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "secret"}.Validate())
}

func TestNewS3Store_CustomEndpoint(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		EndpointURL:     "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Region:          "us-east-1",
	}, nopLogger{})
	require.NoError(t, err)
	assert.True(t, store.client.Options().UsePathStyle)
}
