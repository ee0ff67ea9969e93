package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := &ProviderError{Provider: "openai", Status: tt.status}
			assert.Equal(t, tt.want, err.Retryable())
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	err := &ProviderError{Provider: "anthropic", Status: 401, Message: "invalid x-api-key"}

	assert.Equal(t, "anthropic error (status 401): invalid x-api-key", err.Error())
}

func TestIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("%w: %w", ErrEmbedding, &ProviderError{Provider: "openai", Status: 401})

	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsRetryable(&ProviderError{Status: 502}))
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(fmt.Errorf("send request: %w", context.Canceled)))
}

func TestRetryDelay(t *testing.T) {
	limited := &ProviderError{Status: 429, RetryAfter: 3 * time.Second}

	assert.Equal(t, 3*time.Second, RetryDelay(fmt.Errorf("wrap: %w", limited), time.Second))
	assert.Equal(t, 5*time.Second, RetryDelay(limited, 5*time.Second))
	assert.Equal(t, time.Second, RetryDelay(errors.New("eof"), time.Second))
}
