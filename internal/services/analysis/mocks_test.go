package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
	"github.com/ternarybob/brandscope/internal/services/llm"
)

// mockTransport simulates the provider transport. Behavior is keyed by
// provider id so matrix tests can mix healthy, malformed, and failing
// providers in one run.
type mockTransport struct {
	mu        sync.Mutex
	responses map[string]string // provider -> response text
	errors    map[string]error  // provider -> forced error
	calls     []mockCall
}

type mockCall struct {
	provider   string
	structured bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

func (m *mockTransport) Complete(ctx context.Context, providerID, prompt string, opts interfaces.CompletionOptions) (*interfaces.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{provider: providerID, structured: opts.StructuredOutput})
	m.mu.Unlock()

	if err, ok := m.errors[providerID]; ok {
		return nil, err
	}
	text, ok := m.responses[providerID]
	if !ok {
		return nil, &llm.TransportError{Provider: providerID, Message: "no mock response configured"}
	}
	return &interfaces.Completion{Text: text}, nil
}

func (m *mockTransport) VerifyKey(ctx context.Context, apiKey string) error {
	return nil
}

func (m *mockTransport) callCount(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.provider == provider {
			count++
		}
	}
	return count
}

// mockGenerator simulates the secondary model. Responses are consumed in
// order; after they run out the last one repeats. A forced error applies
// to every call.
type mockGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (m *mockGenerator) GenerateContent(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("no mock response configured")
	}
	if m.calls <= len(m.responses) {
		return m.responses[m.calls-1], nil
	}
	return m.responses[len(m.responses)-1], nil
}

// memStorage is an in-memory AnalysisStorage for tracker and
// orchestrator tests. Snapshots are copied on read and write.
type memStorage struct {
	mu         sync.RWMutex
	analyses   map[string]models.Analysis
	saves      int
	failAtSave int // 1-based save call that fails, 0 for never
}

func newMemStorage() *memStorage {
	return &memStorage{analyses: make(map[string]models.Analysis)}
}

func (s *memStorage) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failAtSave > 0 && s.saves == s.failAtSave {
		return fmt.Errorf("storage write failed")
	}
	s.analyses[analysis.ID] = *analysis
	return nil
}

func (s *memStorage) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analysis, ok := s.analyses[id]
	if !ok {
		return nil, interfaces.ErrAnalysisNotFound
	}
	copied := analysis
	return &copied, nil
}

func (s *memStorage) ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Analysis
	for _, analysis := range s.analyses {
		copied := analysis
		result = append(result, &copied)
	}
	return result, nil
}

func (s *memStorage) DeleteAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, id)
	return nil
}

func (s *memStorage) CountAnalyses(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses), nil
}

// validStructuredResponse builds a provider JSON response with the given
// ranked brand names
func validStructuredResponse(names ...string) string {
	out := `{"brands": [`
	for i, name := range names {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"name": %q, "ranking": %d, "positives": ["good support"], "negatives": ["pricey"], "overallSentiment": "positive"}`, name, i+1)
	}
	return out + `]}`
}
