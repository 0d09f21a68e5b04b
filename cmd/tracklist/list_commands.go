package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tracklist/internal/engine"
	"tracklist/internal/media"
	"tracklist/internal/site"
)

func newListCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx),
		newInfoCommand(ctx),
		newQueueCommand(ctx),
		newSearchCommand(ctx),
		newFindCommand(ctx),
		newMediatypesCommand(ctx),
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var pattern string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine) error {
				mt, err := eng.Mediatype()
				if err != nil {
					return err
				}
				var items []media.Item
				switch {
				case pattern != "":
					items, err = eng.RegexList(pattern)
				default:
					items, err = eng.FilterList(media.Status(strings.TrimSpace(status)))
				}
				if err != nil {
					return err
				}
				if pattern != "" && status != "" {
					items = slices.DeleteFunc(items, func(it media.Item) bool { return it.MyStatus != media.Status(status) })
				}
				if jsonOut {
					return writeJSON(cmd, itemViews(items))
				}
				renderItems(cmd, mt, items)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show items with this status")
	cmd.Flags().StringVarP(&pattern, "filter", "f", "", "Case-insensitive regular expression over titles")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show the details of one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				mt, err := eng.Mediatype()
				if err != nil {
					return err
				}
				item, err := eng.GetShowInfo(id)
				if err != nil {
					return err
				}
				details, err := eng.GetShowDetails(runCtx, item)
				if err != nil {
					return err
				}
				altname, err := eng.Altname(id)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, itemViews([]media.Item{details})[0])
				}
				renderDetails(cmd, mt, details, altname)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show changes waiting to be sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine) error {
				entries, err := eng.GetQueue()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, entries)
				}
				renderQueue(cmd, entries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var season bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the site for titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := site.SearchKeyword
			if season {
				method = site.SearchSeason
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				items, err := eng.Search(runCtx, strings.Join(args, " "), method)
				if err != nil {
					return err
				}
				renderSearchResults(cmd, items)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&season, "season", false, "Treat the query as a season (e.g. \"2024 winter\")")
	return cmd
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-find items on the local list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine) error {
				mt, err := eng.Mediatype()
				if err != nil {
					return err
				}
				items, err := eng.FindLocal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				renderItems(cmd, mt, items)
				return nil
			})
		},
	}
}

func newMediatypesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mediatypes",
		Short: "List the mediatypes the account's site offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine) error {
				current, err := eng.Mediatype()
				if err != nil {
					return err
				}
				all, err := eng.Mediatypes()
				if err != nil {
					return err
				}
				names := make([]string, 0, len(all))
				for name := range all {
					names = append(names, name)
				}
				slices.Sort(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					mt := all[name]
					marker := ""
					if name == current.Name {
						marker = "*"
					}
					statuses := make([]string, 0, len(mt.Statuses))
					for _, st := range mt.Statuses {
						statuses = append(statuses, string(st))
					}
					rows = append(rows, []string{marker, name, strings.Join(statuses, ", "), formatScore(mt.ScoreMax), yesNo(mt.CanPlay)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{col(""), col("Mediatype"), col("Statuses"), numCol("Max score"), col("Play")},
					rows,
				))
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
