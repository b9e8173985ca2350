package pr

import "context"

// MockProvider is a mock implementation of Provider for testing.
type MockProvider struct {
	CreatePRFunc   func(ctx context.Context, opts Options) (*PullRequest, error)
	GetPRFunc      func(ctx context.Context, id int) (*PullRequest, error)
	AddCommentFunc func(ctx context.Context, id int, body string) error
	ListPRsFunc    func(ctx context.Context, filter Filter) ([]*PullRequest, error)

	Created []Options // Options of every CreatePR call
}

// CreatePR implements Provider.
func (m *MockProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	m.Created = append(m.Created, opts)
	if m.CreatePRFunc != nil {
		return m.CreatePRFunc(ctx, opts)
	}
	return &PullRequest{ID: 1, HTMLURL: "https://example.com/pr/1", Title: opts.Title, Head: opts.Head, Base: opts.Base}, nil
}

// GetPR implements Provider.
func (m *MockProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	if m.GetPRFunc != nil {
		return m.GetPRFunc(ctx, id)
	}
	return &PullRequest{ID: id}, nil
}

// AddComment implements Provider.
func (m *MockProvider) AddComment(ctx context.Context, id int, body string) error {
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, id, body)
	}
	return nil
}

// ListPRs implements Provider.
func (m *MockProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	if m.ListPRsFunc != nil {
		return m.ListPRsFunc(ctx, filter)
	}
	return []*PullRequest{}, nil
}
