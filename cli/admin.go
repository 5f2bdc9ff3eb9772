// Provider and store administration commands.

package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prachwal/rag07/llm"
)

const healthTimeout = 10 * time.Second

// Models prints the catalog of the selected provider.
func Models(ctx context.Context, app *App, useCache, asJSON bool) error {
	gen, err := app.Generator()
	if err != nil {
		return err
	}
	catalog, err := gen.ListModels(app.Context(ctx), useCache)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(app.Out, catalog)
	}

	header := fmt.Sprintf("%s: %d models", catalog.Provider, catalog.TotalCount)
	if catalog.Cached {
		header += " (cached " + catalog.CacheTimestamp.Format(time.DateTime) + ")"
	}
	fmt.Fprintln(app.Out, header)
	if catalog.Error != "" {
		fmt.Fprintf(app.Out, "Warning: showing configured models, fetch failed: %s\n", catalog.Error)
	}

	w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTOOLS\tCAPABILITIES")
	for _, m := range catalog.Models {
		caps := make([]string, len(m.Capabilities))
		for i, c := range m.Capabilities {
			caps[i] = string(c)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", m.ID, m.SupportsTools, strings.Join(caps, ","))
	}
	return w.Flush()
}

// HealthStatus is one provider's health check outcome.
type HealthStatus struct {
	Provider string `json:"provider"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// CheckHealth checks every configured provider concurrently. Providers that
// cannot be created (missing credentials) are reported unhealthy with the reason.
func CheckHealth(ctx context.Context, app *App) []HealthStatus {
	names := app.Settings.ProviderNames()
	statuses := make([]HealthStatus, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			statuses[i] = HealthStatus{Provider: name}
			gen, err := app.Factory.Create(name)
			if err != nil {
				statuses[i].Error = err.Error()
				return nil
			}
			cctx, cancel := context.WithTimeout(app.Context(ctx), healthTimeout)
			defer cancel()
			statuses[i].Healthy = gen.HealthCheck(cctx)
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

// Health prints CheckHealth results and the vector store state.
func Health(ctx context.Context, app *App, asJSON bool) error {
	statuses := CheckHealth(ctx, app)
	if asJSON {
		return writeJSON(app.Out, statuses)
	}

	w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tDETAIL")
	for _, s := range statuses {
		status := "ok"
		if !s.Healthy {
			status = "unavailable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Provider, status, s.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	collections, err := app.Store.ListCollections(ctx)
	if err != nil {
		fmt.Fprintf(app.Out, "\nVector store %s: %v\n", app.Store.Name(), err)
		return nil
	}
	fmt.Fprintf(app.Out, "\nVector store %s: %d collections\n", app.Store.Name(), len(collections))
	return nil
}

// Collections lists collections with their sizes.
func Collections(ctx context.Context, app *App) error {
	names, err := app.Store.ListCollections(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(app.Out, "No collections.")
		return nil
	}
	w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOCUMENTS\tDIMENSION")
	for _, name := range names {
		info, err := app.Store.GetCollectionInfo(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", info.Name, info.Count, info.Dimension)
	}
	return w.Flush()
}

// CollectionInfo prints one collection's summary.
func CollectionInfo(ctx context.Context, app *App, name string) error {
	info, err := app.Store.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(app.Out, "Name: %s\nDocuments: %d\nDimension: %d\n", info.Name, info.Count, info.Dimension)
	return nil
}

// DeleteCollection removes a collection and its documents.
func DeleteCollection(ctx context.Context, app *App, name string) error {
	if err := app.Store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	app.Logger.Info().Str("collection", name).Msg("collection_deleted")
	fmt.Fprintf(app.Out, "Deleted collection %s\n", name)
	return nil
}

// Browse prints a page of documents.
func Browse(ctx context.Context, app *App, name string, offset, limit int) error {
	docs, err := app.Store.BrowseVectors(ctx, name, offset, limit)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(docs) == 0 {
		fmt.Fprintln(app.Out, "No documents.")
		return nil
	}
	for _, d := range docs {
		source, _ := d.Metadata["source"].(string)
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(app.Out, "%s (%s)\n   %s\n\n", d.ID, source, truncateString(d.Text, maxPreviewLen))
	}
	return nil
}

// ClearCache drops cached model catalogs; an empty provider clears all.
func ClearCache(ctx context.Context, app *App, provider string) error {
	if provider != "" {
		if p, err := llm.ParseProviderType(provider); err == nil {
			provider = p.String()
		}
	}
	if err := app.Cache.Clear(ctx, provider); err != nil {
		return err
	}
	if provider == "" {
		fmt.Fprintln(app.Out, "Cleared model cache")
	} else {
		fmt.Fprintf(app.Out, "Cleared model cache for %s\n", provider)
	}
	return nil
}
