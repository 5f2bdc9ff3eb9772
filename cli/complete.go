// Shell completion helpers.

package cli

import (
	"context"
	"strings"

	"github.com/prachwal/rag07/config"
	"github.com/prachwal/rag07/internal/prefix"
)

// CompleteProviders lists configured LLM providers starting with toComplete.
func CompleteProviders(settings *config.Settings, toComplete string) []string {
	return prefix.FromKeys(settings.ProviderNames()...).Complete(strings.ToLower(toComplete))
}

// CompleteVectorProviders lists configured vector stores starting with toComplete.
func CompleteVectorProviders(settings *config.Settings, toComplete string) []string {
	names := make([]string, 0, len(settings.VectorProviders))
	for _, v := range settings.VectorProviders {
		names = append(names, v.Name)
	}
	return prefix.FromKeys(names...).Complete(strings.ToLower(toComplete))
}

// CompleteCollections lists stored collections starting with toComplete.
func CompleteCollections(ctx context.Context, app *App, toComplete string) []string {
	names, err := app.Store.ListCollections(ctx)
	if err != nil {
		return nil
	}
	return prefix.FromKeys(names...).Complete(toComplete)
}
