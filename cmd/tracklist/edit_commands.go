package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tracklist/internal/engine"
	"tracklist/internal/media"
	"tracklist/internal/site"
)

func newEditCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newEpisodeCommand(ctx),
		newScoreCommand(ctx),
		newStatusCommand(ctx),
		newDeleteCommand(ctx),
		newAltnameCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var pick string
	var status string

	cmd := &cobra.Command{
		Use:   "add <query>",
		Short: "Search the site and add a title to the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				results, err := eng.Search(runCtx, query, site.SearchKeyword)
				if err != nil {
					return err
				}
				item, err := chooseResult(results, media.ID(strings.TrimSpace(pick)))
				if err != nil {
					if len(results) > 1 {
						renderSearchResults(cmd, results)
					}
					return fmt.Errorf("add %q: %w", query, err)
				}
				item.MyStatus = media.Status(strings.TrimSpace(status))
				return eng.AddShow(runCtx, item)
			})
		},
	}
	cmd.Flags().StringVar(&pick, "id", "", "Id of the search result to add")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Initial status (defaults to the mediatype's first)")
	return cmd
}

func chooseResult(results []media.Item, id media.ID) (media.Item, error) {
	if id != "" {
		idx := slices.IndexFunc(results, func(it media.Item) bool { return it.ID == id })
		if idx < 0 {
			return media.Item{}, fmt.Errorf("no search result has id %s", id)
		}
		return results[idx], nil
	}
	switch len(results) {
	case 0:
		return media.Item{}, errors.New("no titles match")
	case 1:
		return results[0], nil
	default:
		return media.Item{}, fmt.Errorf("%d titles match; choose one with --id", len(results))
	}
}

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episode <id> <number|next>",
		Short: "Set the progress of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			next := strings.EqualFold(strings.TrimSpace(args[1]), "next")
			var n int
			if !next {
				if n, err = strconv.Atoi(strings.TrimSpace(args[1])); err != nil {
					return fmt.Errorf("invalid episode %q", args[1])
				}
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				if next {
					item, err := eng.GetShowInfo(id)
					if err != nil {
						return err
					}
					n = item.MyProgress + 1
				}
				item, err := eng.SetEpisode(runCtx, id, n)
				if err != nil {
					return err
				}
				return printItemLine(cmd, eng, item)
			})
		},
	}
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "score <id> <score>",
		Short: "Set the score of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			score, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Errorf("invalid score %q", args[1])
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				item, err := eng.SetScore(runCtx, id, score)
				if err != nil {
					return err
				}
				return printItemLine(cmd, eng, item)
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the status of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st := media.Status(strings.TrimSpace(args[1]))
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				item, err := eng.SetStatus(runCtx, id, st)
				if err != nil {
					return err
				}
				return printItemLine(cmd, eng, item)
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an item from the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				if err := eng.DeleteShow(runCtx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
				return nil
			})
		},
	}
}

func newAltnameCommand(ctx *commandContext) *cobra.Command {
	var clearName bool

	cmd := &cobra.Command{
		Use:   "altname <id> [title]",
		Short: "Show or set the alternate title used to match files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				out := cmd.OutOrStdout()
				if name == "" && !clearName {
					current, err := eng.Altname(id)
					if err != nil {
						return err
					}
					if current == "" {
						fmt.Fprintf(out, "%s has no alternate title\n", id)
					} else {
						fmt.Fprintln(out, current)
					}
					return nil
				}
				if err := eng.SetAltname(runCtx, id, name); err != nil {
					return err
				}
				if name == "" {
					fmt.Fprintf(out, "Cleared the alternate title of %s\n", id)
				} else {
					fmt.Fprintf(out, "Alternate title of %s set to %q\n", id, name)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearName, "clear", false, "Remove the alternate title")
	return cmd
}

func printItemLine(cmd *cobra.Command, eng *engine.Engine, item media.Item) error {
	mt, err := eng.Mediatype()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s, score %s\n",
		displayTitle(item), formatProgress(item), mt.StatusLabel(item.MyStatus), formatScore(item.MyScore))
	return nil
}

func displayTitle(item media.Item) string {
	if item.Title != "" {
		return item.Title
	}
	return item.ID.String()
}
