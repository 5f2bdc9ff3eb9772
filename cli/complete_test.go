package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prachwal/rag07/config"
)

func TestCompleteProviders(t *testing.T) {
	s := config.Default()

	assert.Equal(t, []string{"openai", "openrouter"}, CompleteProviders(s, "Open"))
	assert.Len(t, CompleteProviders(s, ""), len(s.LLMProviders))
	assert.Empty(t, CompleteProviders(s, "zzz"))

	assert.Equal(t, []string{"memory"}, CompleteVectorProviders(s, "m"))
}

func TestCompleteCollections(t *testing.T) {
	app, _ := newTestApp(t, &fakeGen{})
	ctx := context.Background()

	for _, name := range []string{"papers", "patents", "notes"} {
		require.NoError(t, app.Store.CreateCollection(ctx, name, 2))
	}

	assert.Equal(t, []string{"papers", "patents"}, CompleteCollections(ctx, app, "pa"))
	assert.Equal(t, []string{"notes"}, CompleteCollections(ctx, app, "n"))
}
