package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lucasrcosta20/IA-Cadastro/internal/app"
	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(healthCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model catalog and what is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			models := a.Service.ListModels(cmd.Context())
			if len(models) == 0 {
				log.Warn("ollama server not reachable")
				return nil
			}
			printModels(os.Stdout, models, a.Service.Config().ModelID)
			return nil
		})
	},
}

func printModels(out io.Writer, models []domain.AIModel, current string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSIZE\tSPEED\tQUALITY\tSTATUS")
	for _, m := range models {
		status := color.RedString("not installed")
		if m.Installed {
			status = color.GreenString("installed")
		}
		name := m.ID
		if m.Recommended {
			name += " *"
		}
		if m.ID == current {
			name += " (active)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, m.Size, m.Speed, m.Quality, status)
	}
	w.Flush()
}

var pullCmd = &cobra.Command{
	Use:   "pull <MODEL>",
	Short: "Download a model into the Ollama server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return withApp(func(a *app.App) error {
			p := mpb.New(mpb.WithWidth(60))
			var bar *mpb.Bar
			var status string

			ok := a.Service.PullModel(ctx, args[0], func(pp domain.PullProgress) {
				if pp.Status != status {
					status = pp.Status
					log.WithField("model", args[0]).Debug(status)
				}
				if pp.Total <= 0 {
					return
				}
				if bar == nil {
					bar = p.New(pp.Total,
						mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
						mpb.PrependDecorators(
							decor.Name(args[0]+" "),
							decor.CountersKibiByte("% .2f / % .2f"),
						),
						mpb.AppendDecorators(
							decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "✅ "),
							decor.Name(" ] "),
							decor.AverageSpeed(decor.SizeB1024(0), "% .2f"),
						),
					)
				}
				bar.SetTotal(pp.Total, false)
				bar.SetCurrent(pp.Completed)
			})
			if bar != nil {
				if ok {
					bar.SetTotal(-1, true)
				} else {
					bar.Abort(false)
				}
			}
			p.Wait()

			if !ok {
				return fmt.Errorf("failed to pull %s (last status: %q)", args[0], status)
			}
			log.WithField("model", args[0]).Info("model pulled")
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the Ollama server answers and the active model is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			ctx := cmd.Context()
			stats := a.Service.Stats(ctx)
			if !stats.ModelAvailable {
				return fmt.Errorf("ollama server at %s is not reachable", a.Client.BaseURL())
			}

			installed := 0
			active := false
			for _, m := range a.Service.ListModels(ctx) {
				if m.Installed {
					installed++
					if m.ID == stats.CurrentModel {
						active = true
					}
				}
			}

			log.WithFields(log.Fields{
				"ollama":    a.Client.BaseURL(),
				"installed": humanize.Comma(int64(installed)),
				"cache":     humanize.Comma(int64(stats.CacheSize)),
			}).Info("ollama server reachable")
			if !active {
				log.Warnf("active model %s is not installed, run: iacadastro pull %s", stats.CurrentModel, stats.CurrentModel)
			}
			return nil
		})
	},
}
