package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(chat *scriptedChat) *Factory {
	model := NewModelExtractor(chat, ModelConfig{
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
		CallTimeout: time.Second,
	}, nil)
	return NewFactory(model, nil)
}

func TestForSource_KnownTagUsesStructuredExtractor(t *testing.T) {
	chat := &scriptedChat{responses: []string{validResponse}}
	ex := testFactory(chat).ForSource("SEWP")

	doc := "Reply by Date: 2025-05-28\nSwitch 48p | C9300-48P-A | 4\n"
	res, err := ex.Extract(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Zero(t, chat.calls, "structured document must not reach the model")
}

func TestForSource_TagMatchingIsCaseInsensitive(t *testing.T) {
	chat := &scriptedChat{responses: []string{validResponse}}
	ex := testFactory(chat).ForSource(" sewp ")

	doc := "Reply by Date: 2025-05-28\nSwitch 48p | C9300-48P-A | 4\n"
	_, err := ex.Extract(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Zero(t, chat.calls)
}

func TestForSource_UnknownTagUsesModelExtractor(t *testing.T) {
	chat := &scriptedChat{responses: []string{validResponse}}
	ex := testFactory(chat).ForSource("GSA")

	res, err := ex.Extract(context.Background(), "free-form request", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
	assert.Len(t, res.Items, 1)
}

func TestForSource_FallsBackOnceOnUnstructuredDocument(t *testing.T) {
	chat := &scriptedChat{responses: []string{validResponse}}
	ex := testFactory(chat).ForSource("SEWP")

	res, err := ex.Extract(context.Background(), "hello, we need a few switches please", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls, "fallback should invoke the model exactly once")
	assert.Len(t, res.Items, 1)
}

func TestForSource_FallbackFailurePropagates(t *testing.T) {
	chat := &scriptedChat{responses: []string{"not json"}}
	ex := testFactory(chat).ForSource("SEWP")

	_, err := ex.Extract(context.Background(), "hello, we need a few switches please", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelExtractionFailed)
}
