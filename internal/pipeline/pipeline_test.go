package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurex/rfq-matcher/internal/entity"
	"github.com/procurex/rfq-matcher/internal/extract"
	"github.com/procurex/rfq-matcher/internal/llm"
	"github.com/procurex/rfq-matcher/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedChat replays canned completions, repeating the last one.
type scriptedChat struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (c *scriptedChat) Complete(_ context.Context, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	idx := c.calls - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

var _ llm.ChatClient = (*scriptedChat)(nil)

// stubMatcher routes each item through MatchFunc and counts calls.
type stubMatcher struct {
	mu        sync.Mutex
	calls     int
	MatchFunc func(ctx context.Context, item entity.LineItem) ([]entity.MatchCandidate, error)
}

func (m *stubMatcher) Match(ctx context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, item)
	}
	return nil, nil
}

func (m *stubMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestFactory(chat llm.ChatClient) *extract.Factory {
	model := extract.NewModelExtractor(chat, extract.ModelConfig{
		MaxAttempts: 1,
		Backoff:     time.Millisecond,
	}, discardLogger())
	return extract.NewFactory(model, discardLogger())
}

const sewpDoc = `Request for Quote
Reply by Date: 2025-05-28

1 | Catalyst 9300 Switch | C9300-48P-A | 4
2 | NCI Ultimate License | SW-NCI-ULT-FP | 5152
3 | Rack Install Service | SVC-INSTALL | 2
`

func singleCandidate(name string) []entity.MatchCandidate {
	return []entity.MatchCandidate{{
		Product:        entity.SupplierProduct{ID: 1, Name: name},
		CompositeScore: 0.9,
	}}
}

func TestRun_ReportsPreserveLineItemOrder(t *testing.T) {
	matcher := &stubMatcher{
		MatchFunc: func(_ context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
			// Finish the first item last so pool scheduling order and
			// report order diverge unless indexing holds.
			if item.Name == "Catalyst 9300 Switch" {
				time.Sleep(30 * time.Millisecond)
			}
			return singleCandidate(item.Name), nil
		},
	}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher,
		WithPoolSize(3), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{ID: "rfq-1", Text: sewpDoc, SourceType: "SEWP"})
	require.NoError(t, err)
	require.Len(t, res.Reports, 3)

	assert.Equal(t, "Catalyst 9300 Switch", res.Reports[0].Item.Name)
	assert.Equal(t, "NCI Ultimate License", res.Reports[1].Item.Name)
	assert.Equal(t, "Rack Install Service", res.Reports[2].Item.Name)
	for i, rep := range res.Reports {
		require.Len(t, rep.Candidates, 1, "report %d", i)
		assert.Equal(t, rep.Item.Name, rep.Candidates[0].Product.Name)
	}
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "2025-05-28", res.DueDate.Format("2006-01-02"))
}

func TestRun_MatchFailureYieldsEmptyReportForThatItemOnly(t *testing.T) {
	matcher := &stubMatcher{
		MatchFunc: func(_ context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
			if item.PartNumber == "SW-NCI-ULT-FP" {
				return nil, repository.ErrCatalogUnavailable
			}
			return singleCandidate(item.Name), nil
		},
	}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{ID: "rfq-2", Text: sewpDoc, SourceType: "SEWP"})
	require.NoError(t, err)
	require.Len(t, res.Reports, 3)

	assert.NotEmpty(t, res.Reports[0].Candidates)
	assert.Empty(t, res.Reports[1].Candidates)
	assert.ErrorIs(t, res.Reports[1].Err, repository.ErrCatalogUnavailable)
	assert.Equal(t, "NCI Ultimate License", res.Reports[1].Item.Name)
	assert.NotEmpty(t, res.Reports[2].Candidates)
}

func TestRun_UnstructuredSEWPDocumentFallsBackToModel(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		`{"due_date": "2025-06-15", "items": [{"name": "Edge Router", "part_number": "RTR-100", "quantity": 2}]}`,
	}}
	matcher := &stubMatcher{
		MatchFunc: func(_ context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
			return singleCandidate(item.Name), nil
		},
	}
	orch, err := NewOrchestrator(newTestFactory(chat), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{
		ID:         "rfq-3",
		Text:       "We would like pricing for two edge routers, delivery to Denver.",
		SourceType: "SEWP",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "Edge Router", res.Reports[0].Item.Name)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "2025-06-15", res.DueDate.Format("2006-01-02"))
}

func TestRun_UnknownSourceGoesStraightToModel(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		`{"due_date": "", "items": [{"name": "Toner Cartridge", "quantity": "12"}]}`,
	}}
	matcher := &stubMatcher{}
	orch, err := NewOrchestrator(newTestFactory(chat), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{ID: "rfq-4", Text: "free-form email", SourceType: "EMAIL"})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "Toner Cartridge", res.Reports[0].Item.Name)
	assert.Equal(t, 12, res.Reports[0].Item.Quantity)
	assert.Nil(t, res.DueDate)
}

func TestRun_ExtractionFailureFailsDocument(t *testing.T) {
	chat := &scriptedChat{responses: []string{"not json at all"}}
	orch, err := NewOrchestrator(newTestFactory(chat), &stubMatcher{}, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	_, err = orch.Run(context.Background(), Document{ID: "rfq-5", Text: "???", SourceType: "EMAIL"})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrModelExtractionFailed)
	assert.Contains(t, err.Error(), "rfq-5")
}

func TestRun_NoItemsProducesNoReports(t *testing.T) {
	matcher := &stubMatcher{}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{
		ID:         "rfq-6",
		Text:       "Reply by Date: 2025-05-28\nno item table here",
		SourceType: "SEWP",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Reports)
	assert.Equal(t, 0, matcher.callCount())
	require.NotNil(t, res.DueDate)
}

func TestRun_CancellationStopsBeforeNextItem(t *testing.T) {
	matcher := &stubMatcher{}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = orch.Run(ctx, Document{ID: "rfq-7", Text: sewpDoc, SourceType: "SEWP"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, matcher.callCount())
}

func TestRun_CancellationMidFanOutReturnsCompletedReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	matcher := &stubMatcher{
		MatchFunc: func(_ context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
			// Cancel while the fan-out is still in flight; the single
			// worker keeps later submissions queued behind this one.
			if item.Name == "Catalyst 9300 Switch" {
				cancel()
			}
			return singleCandidate(item.Name), nil
		},
	}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher,
		WithPoolSize(1), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(ctx, Document{ID: "rfq-9", Text: sewpDoc, SourceType: "SEWP"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The first item was submitted before the cancel, so at least one
	// report completed; the final item never passed the context check.
	require.NotEmpty(t, res.Reports)
	require.Less(t, len(res.Reports), 3)
	wantNames := []string{"Catalyst 9300 Switch", "NCI Ultimate License"}
	for i, rep := range res.Reports {
		assert.Equal(t, wantNames[i], rep.Item.Name)
		require.Len(t, rep.Candidates, 1)
		assert.Equal(t, rep.Item.Name, rep.Candidates[0].Product.Name)
	}
}

func TestRun_DroppedRowCountSurfaces(t *testing.T) {
	doc := sewpDoc + "4 | Broken Row | BR-1 | zero\n"
	matcher := &stubMatcher{
		MatchFunc: func(_ context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
			return singleCandidate(item.Name), nil
		},
	}
	orch, err := NewOrchestrator(newTestFactory(&scriptedChat{}), matcher, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer orch.Release()

	res, err := orch.Run(context.Background(), Document{ID: "rfq-8", Text: doc, SourceType: "SEWP"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Len(t, res.Reports, 3)
}
