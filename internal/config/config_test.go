package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "OCRvKing", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "openai", cfg.AIProvider)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, 20, cfg.MaxUploadMB)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("OCRV_AI_PROVIDER", "gemini-self-hosted")
	_, err := Load()
	require.Error(t, err)
}

func TestHTTPAddressKeepsExplicitColon(t *testing.T) {
	t.Setenv("OCRV_APP_PORT", ":9999")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddress())
}
