package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 0.7, cfg.Match.VectorWeight)
	assert.Equal(t, 0.3, cfg.Match.SymbolicWeight)
	assert.Equal(t, 0.15, cfg.Match.ExactMatchBonus)
	assert.Equal(t, 0.6, cfg.Match.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Match.TopK)
	assert.Equal(t, 50, cfg.Match.CandidatePool)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/rfq")
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("MATCH_TOP_K", "3")
	t.Setenv("MATCH_WORKERS", "8")
	t.Setenv("OPENAI_TIMEOUT", "10s")

	cfg := LoadConfig()

	assert.Equal(t, "postgres://localhost:5432/rfq", cfg.Database.DSN)
	assert.Equal(t, 0.75, cfg.Match.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Match.TopK)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/rfq")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	cfg.Database.DSN = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg = LoadConfig()
	cfg.Match.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Match.TopK = 0
	assert.Error(t, cfg.Validate())
}
