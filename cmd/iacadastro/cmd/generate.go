package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lucasrcosta20/IA-Cadastro/internal/app"
	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
	"github.com/lucasrcosta20/IA-Cadastro/internal/usecase"
)

func init() {
	generateCmd.Flags().IntP("workers", "w", 0, "concurrent generations (default from config)")
	generateCmd.Flags().Bool("no-cache", false, "skip cache lookups")
	generateCmd.Flags().IntP("retry", "r", -1, "retry rounds for failed products (default from config)")
	generateCmd.Flags().StringP("output", "o", "", "write results as JSON to this file")
	generateCmd.Flags().Bool("no-progress", false, "hide the progress bar")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate <PRODUCTS.json>",
	Short: "Generate descriptions for a JSON array of products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		retries, _ := cmd.Flags().GetInt("retry")
		output, _ := cmd.Flags().GetString("output")
		noProgress, _ := cmd.Flags().GetBool("no-progress")

		if workers < 0 {
			return fmt.Errorf("--workers must not be negative")
		}
		if retries < 0 {
			retries = cfg.Generation.RetryAttempts
		}

		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("failed to open products file: %w", err)
		}
		products, err := readProducts(f)
		f.Close()
		if err != nil {
			return err
		}
		if len(products) == 0 {
			return fmt.Errorf("no products in %s", args[0])
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return withApp(func(a *app.App) error {
			if noCache {
				useCache := false
				if _, err := a.Service.UpdateConfig(usecase.ConfigPatch{UseCache: &useCache}); err != nil {
					return err
				}
			}

			log.WithFields(log.Fields{
				"products": len(products),
				"model":    a.Service.Config().ModelID,
			}).Info("generating descriptions")

			start := time.Now()
			results := runWithProgress(ctx, a, products, workers, !noProgress)

			if retries > 0 && domain.Summarize(results).Failed > 0 {
				log.WithField("attempts", retries).Info("retrying failed products")
				results = a.Service.RetryFailed(ctx, results, retries, cfg.Generation.RetryDelay)
			}

			if output != "" {
				if err := writeResultsFile(output, results); err != nil {
					return err
				}
			} else {
				printResults(os.Stdout, results)
			}

			summary := domain.Summarize(results)
			log.WithFields(log.Fields{
				"elapsed":    time.Since(start).Round(time.Millisecond).String(),
				"from_cache": summary.FromCache,
			}).Info(summary.String())
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d products failed", summary.Failed, summary.Processed)
			}
			return nil
		})
	},
}

func runWithProgress(ctx context.Context, a *app.App, products []domain.Product, workers int, show bool) []domain.GenerationResult {
	if !show {
		return a.Service.GenerateBatch(ctx, products, workers, nil)
	}

	p := mpb.New(
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	bar := p.New(int64(len(products)),
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
		mpb.PrependDecorators(
			decor.Name("gerando "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "✅ "),
			decor.Name(" ] "),
			decor.Percentage(),
		),
	)

	results := a.Service.GenerateBatch(ctx, products, workers, func(completed, total int) {
		bar.SetCurrent(int64(completed))
	})
	bar.SetTotal(-1, true)
	p.Wait()
	return results
}

func readProducts(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func writeResults(w io.Writer, results []domain.GenerationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

func writeResultsFile(path string, results []domain.GenerationResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeResults(f, results); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if st, err := os.Stat(path); err == nil {
		log.WithField("size", humanize.Bytes(uint64(st.Size()))).Infof("results written to %s", path)
	}
	return nil
}

func printResults(w io.Writer, results []domain.GenerationResult) {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for i, r := range results {
		if !r.Success {
			fmt.Fprintf(w, "%s %d. %s: %s\n", fail("✗"), i+1, r.Product.Name, r.ErrorMessage)
			continue
		}
		source := r.GenerationTime.Round(time.Millisecond).String()
		if r.FromCache {
			source = "cache"
		}
		fmt.Fprintf(w, "%s %d. %s %s\n%s\n\n", ok("✓"), i+1, r.Product.Name, dim("("+source+")"), r.Description)
	}
}
