package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lucasrcosta20/IA-Cadastro/internal/app"
	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the description cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			printCacheStats(os.Stdout, a.Service.CacheStats())
			return nil
		})
	},
}

func printCacheStats(w io.Writer, s domain.CacheStats) {
	fmt.Fprintf(w, "Entries:  %s\n", humanize.Comma(int64(s.Size)))
	fmt.Fprintf(w, "Hits:     %s\n", humanize.Comma(s.Hits))
	fmt.Fprintf(w, "Misses:   %s\n", humanize.Comma(s.Misses))
	fmt.Fprintf(w, "Hit rate: %.1f%%\n", s.HitRate)
	fmt.Fprintf(w, "TTL:      %gh\n", s.TTLHours)
	fmt.Fprintf(w, "Store:    %s", s.StoreKind)
	if s.StoreLocation != "" {
		fmt.Fprintf(w, " (%s)", s.StoreLocation)
	}
	fmt.Fprintln(w)
	if s.StoreExists {
		fmt.Fprintf(w, "Size:     %s\n", s.StoreSize)
	}
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			size := a.Cache.Size()
			if err := a.Service.ClearCache(); err != nil {
				return err
			}
			log.Infof("removed %s cached descriptions", humanize.Comma(int64(size)))
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cached descriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			removed := a.Service.PruneCache()
			log.Infof("removed %s expired descriptions, %s left",
				humanize.Comma(int64(removed)), humanize.Comma(int64(a.Cache.Size())))
			return nil
		})
	},
}
