package ai

import (
	"context"
	"encoding/json"
	"sync"
)

// MockClient is a test double for Client. It returns Response verbatim.
type MockClient struct {
	mu          sync.Mutex
	Response    []byte
	Err         error
	Calls       int
	LastRequest *RequestBody // captures the last request for inspection
}

// NewMockClient creates a MockClient that answers with a chat-completion
// document carrying text.
func NewMockClient(text string) *MockClient {
	return &MockClient{Response: ChatCompletionDoc(text)}
}

func (m *MockClient) Send(_ context.Context, req RequestBody) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastRequest = &req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockClient) HealthCheck(_ context.Context) error {
	return m.Err
}

// ChatCompletionDoc renders a minimal chat-completion response.
func ChatCompletionDoc(text string) []byte {
	return mustJSON(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": text}},
		},
	})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
