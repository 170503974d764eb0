package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/listing"
)

var listFlags struct {
	filter           string
	sort             string
	limit            int
	includeDestroyed bool
	watch            bool
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ps"},
	Short:   "List agents across every configured provider",
	RunE:    runList,
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.filter, "filter", "", `filter expression, e.g. name == "worker" && tags.env == "prod"`)
	f.StringVar(&listFlags.sort, "sort", "", "sort by field name (disables streaming)")
	f.IntVar(&listFlags.limit, "limit", 0, "max rows (0 = unlimited)")
	f.BoolVar(&listFlags.includeDestroyed, "all", false, "include destroyed hosts")
	f.BoolVar(&listFlags.watch, "watch", false, "list through the batch path instead of streaming (sort/limit still apply); prints once, without refreshing")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var pred listing.Predicate
	if listFlags.filter != "" {
		p, err := listing.ParseFilter(listFlags.filter)
		if err != nil {
			return fmt.Errorf("parse --filter: %w", err)
		}
		pred = p
	}

	opts := listing.Options{
		IncludeDestroyed: listFlags.includeDestroyed,
		Filter:           pred,
		Sort:             listFlags.sort,
		Limit:            listFlags.limit,
		Watch:            listFlags.watch,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Watch || opts.Sort != "" {
		views, errs := listing.ListBatch(ctx, current.providers, opts)
		printViews(cmd, views)
		printListErrors(cmd, errs)
		return nil
	}

	views, errCh := listing.ListStreaming(ctx, current.providers, opts)
	var collected []listing.AgentView
	for v := range views {
		collected = append(collected, v)
	}
	if opts.Limit > 0 && len(collected) > opts.Limit {
		collected = collected[:opts.Limit]
	}
	printViews(cmd, collected)
	var errs []listing.ErrorInfo
	for e := range errCh {
		errs = append(errs, e)
	}
	printListErrors(cmd, errs)
	return nil
}

func printViews(cmd *cobra.Command, views []listing.AgentView) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tTYPE\tHOST\tPROVIDER\tSTATE")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.AgentName, v.AgentType, v.HostName, v.Provider, colorizeState(string(v.HostState)))
	}
	w.Flush()
}

func colorizeState(state string) string {
	switch state {
	case "RUNNING":
		return color.GreenString(state)
	case "STOPPED", "DESTROYED":
		return color.RedString(state)
	case "BUILDING":
		return color.YellowString(state)
	default:
		return state
	}
}

func printListErrors(cmd *cobra.Command, errs []listing.ErrorInfo) {
	for _, e := range errs {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("provider %s: %v", e.Provider, e.Err))
	}
}
