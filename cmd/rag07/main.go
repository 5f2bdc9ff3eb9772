// Package main provides the rag07 CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prachwal/rag07/cli"
	"github.com/prachwal/rag07/config"
)

var (
	// Global flags
	configPath     string
	provider       string
	model          string
	vectorProvider string
	collection     string
	verbose        bool
	jsonOutput     bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "rag07",
		Short: "Retrieval-augmented question answering over your documents",
		Long: `rag07 answers questions from an indexed document collection.

Providers that support function calling drive a bounded loop with two tools:
- search_documents: vector similarity search over the collection
- get_document_details: fetch a full document by id

Other providers use a single retrieve-then-generate pass.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "rag07.yaml", "Path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini, openrouter, deepseek, lmstudio, ollama)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Override the provider's default model")
	rootCmd.PersistentFlags().StringVar(&vectorProvider, "vector-provider", "", "Vector store (sqlite, memory)")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "Collection name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs and loop steps")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON output")

	registerCompletions(rootCmd)

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(collectionsCmd())
	rootCmd.AddCommand(cacheCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, run func(ctx context.Context, app *cli.App) error) error {
	app, err := cli.Open(cli.Options{
		ConfigPath:     configPath,
		Provider:       provider,
		Model:          model,
		VectorProvider: vectorProvider,
		Collection:     collection,
		Verbose:        verbose,
		Out:            cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer app.Close()
	return run(cmd.Context(), app)
}

// registerCompletions completes provider flags from the loaded settings.
func registerCompletions(rootCmd *cobra.Command) {
	settingsCompletion := func(complete func(*config.Settings, string) []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			s, err := config.Load(configPath)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return complete(s, toComplete), cobra.ShellCompDirectiveNoFileComp
		}
	}
	_ = rootCmd.RegisterFlagCompletionFunc("provider", settingsCompletion(cli.CompleteProviders))
	_ = rootCmd.RegisterFlagCompletionFunc("vector-provider", settingsCompletion(cli.CompleteVectorProviders))
}

// completeCollections completes the first argument with stored collection names.
func completeCollections(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	_ = withApp(cmd, func(ctx context.Context, app *cli.App) error {
		names = cli.CompleteCollections(ctx, app, toComplete)
		return nil
	})
	return names, cobra.ShellCompDirectiveNoFileComp
}

func askCmd() *cobra.Command {
	var maxIter int
	var noTools bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Ask(ctx, app, strings.Join(args, " "), cli.AskOptions{
					MaxIterations: maxIter,
					NoTools:       noTools,
					JSON:          jsonOutput,
					ShowSteps:     verbose,
				})
			})
		},
	}

	cmd.Flags().IntVarP(&maxIter, "max-iterations", "m", 0, "Maximum loop iterations (default from config)")
	cmd.Flags().BoolVar(&noTools, "no-tools", false, "Skip function calling and use single-pass retrieval")

	return cmd
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the passages closest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Search(ctx, app, strings.Join(args, " "), limit, jsonOutput)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of results (1-20)")

	return cmd
}

func indexCmd() *cobra.Command {
	opts := cli.DefaultIndexOptions()

	cmd := &cobra.Command{
		Use:   "index [path...]",
		Short: "Chunk, embed and store .txt, .md and .html files",
		Long: `Index files or directories into the selected collection.

HTML is converted to markdown, text is cleaned and split into overlapping
chunks, duplicate chunks are skipped, and chunks are embedded concurrently.
Each chunk keeps its file path as "source" metadata.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				stats, err := cli.Index(ctx, app, args, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Indexed %d chunks from %d files into %s (%d duplicates skipped)\n",
					stats.Chunks, stats.Files, app.Collection, stats.Duplicates)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", opts.ChunkSize, "Maximum characters per chunk")
	cmd.Flags().IntVar(&opts.Overlap, "overlap", opts.Overlap, "Characters shared by consecutive chunks")
	cmd.Flags().IntVar(&opts.Workers, "workers", opts.Workers, "Concurrent embedding requests")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "Chunks per embedding request")

	return cmd
}

func modelsCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the selected provider's models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Models(ctx, app, !noCache, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Fetch the list even if a cached copy is fresh")

	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check every configured provider and the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Health(ctx, app, jsonOutput)
			})
		},
	}
}

func collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List and manage collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Collections(ctx, app)
			})
		},
	}

	info := &cobra.Command{
		Use:   "info [name]",
		Short: "Show a collection's size and dimension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.CollectionInfo(ctx, app, args[0])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.DeleteCollection(ctx, app, args[0])
			})
		},
	}

	var offset, limit int
	browse := &cobra.Command{
		Use:   "browse [name]",
		Short: "Page through a collection's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.Browse(ctx, app, args[0], offset, limit)
			})
		},
	}
	browse.Flags().IntVar(&offset, "offset", 0, "Documents to skip")
	browse.Flags().IntVarP(&limit, "limit", "n", 10, "Documents to show")

	for _, sub := range []*cobra.Command{info, del, browse} {
		sub.ValidArgsFunction = completeCollections
	}
	cmd.AddCommand(info, del, browse)
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model list cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [provider]",
		Short: "Clear cached model lists (all providers when none given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return cli.ClearCache(ctx, app, name)
			})
		},
	})

	return cmd
}
