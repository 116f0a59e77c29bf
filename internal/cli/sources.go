package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/util"
	"github.com/ppiankov/reportwatch/internal/validate"
)

var (
	checkListings bool
	checkWorkers  int
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sources",
	Long: `List the source catalog in configuration order.

With --check every listing page is probed (HEAD, falling back to GET)
and its reachability is reported.`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().BoolVar(&checkListings, "check", false, "probe every listing page")
	sourcesCmd.Flags().IntVar(&checkWorkers, "workers", 8, "concurrent probes with --check")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog := model.NewCatalog(cfg.Sources)

	if !checkListings {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFOLDER\tSTRATEGY\tLISTING URL")
		for _, s := range catalog.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Folder, s.Strategy, s.ListingURL)
		}
		return w.Flush()
	}

	httpClient, err := util.NewHTTPClient(util.ClientOptions{
		Timeout:     cfg.HTTP.Timeout,
		InsecureTLS: cfg.HTTP.InsecureTLS,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	checker := validate.NewListingChecker(httpClient, cfg.HTTP.UserAgent, checkWorkers)
	statuses := checker.Check(ctx, catalog.All())

	unreachable := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tREACHABLE\tDETAIL")
	for _, st := range statuses {
		detail := st.RedirectURL
		if st.Error != "" {
			detail = st.Error
		}
		if !st.Reachable {
			unreachable++
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%s\n", st.Source, st.StatusCode, st.Reachable, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if unreachable > 0 {
		return fmt.Errorf("%d of %d listing pages unreachable", unreachable, len(statuses))
	}
	return nil
}
