package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"tracklist/internal/media"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// itemView is the JSON shape of a list item; it keeps the transient flags
// the stored form omits.
type itemView struct {
	media.Item
	Queued      bool `json:"queued"`
	NewEpisodes bool `json:"new_episodes"`
	Playing     bool `json:"playing"`
}

func itemViews(items []media.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, itemView{Item: it, Queued: it.Queued, NewEpisodes: it.NewEpisodes, Playing: it.Playing})
	}
	return out
}

func renderItems(cmd *cobra.Command, mt media.Mediatype, items []media.Item) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID.String(),
			it.Title,
			formatProgress(it),
			formatScore(it.MyScore),
			mt.StatusLabel(it.MyStatus),
			itemFlags(it),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{numCol("ID"), titleCol("Title"), numCol("Progress"), numCol("Score"), col("Status"), col("Flags")},
		rows,
	))
}

func renderSearchResults(cmd *cobra.Command, items []media.Item) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ID.String(), it.Title, formatTotal(it.Total), string(it.Status)})
	}
	fmt.Fprintln(out, renderTable(
		[]column{numCol("ID"), titleCol("Title"), numCol("Episodes"), col("Airing")},
		rows,
	))
}

func renderDetails(cmd *cobra.Command, mt media.Mediatype, it media.Item, altname string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", it.Title, it.ID)
	lines := [][2]string{
		{"Aliases", strings.Join(it.Aliases, ", ")},
		{"Alternate title", altname},
		{"Airing", string(it.Status)},
		{"Aired", formatRange(it.StartDate, it.EndDate)},
		{"URL", it.URL},
		{"Progress", formatProgress(it)},
		{"Status", mt.StatusLabel(it.MyStatus)},
		{"Score", formatScore(it.MyScore)},
		{"Started", formatDate(it.MyStartDate)},
		{"Finished", formatDate(it.MyFinishDate)},
		{"Flags", itemFlags(it)},
	}
	if it.NextEpisodeNumber > 0 {
		lines = append(lines, [2]string{"Next episode", fmt.Sprintf("%d %s", it.NextEpisodeNumber, formatDate(it.NextEpisodeTime))})
	}
	for _, line := range lines {
		if strings.TrimSpace(line[1]) == "" {
			continue
		}
		fmt.Fprintf(out, "  %-16s %s\n", line[0]+":", line[1])
	}
}

func renderQueue(cmd *cobra.Command, entries []media.QueueEntry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			entry.ID.String(),
			entry.Title,
			string(entry.Action),
			strings.Join(entry.Changes.Fields(), ", "),
			entry.QueuedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{numCol("#"), numCol("ID"), titleCol("Title"), col("Action"), col("Fields"), col("Queued")},
		rows,
	))
}

func formatProgress(it media.Item) string {
	return fmt.Sprintf("%d/%s", it.MyProgress, formatTotal(it.Total))
}

func formatTotal(total int) string {
	if total <= 0 {
		return "?"
	}
	return strconv.Itoa(total)
}

func formatScore(score float64) string {
	if score == 0 {
		return "-"
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatRange(start, end *time.Time) string {
	from, to := formatDate(start), formatDate(end)
	switch {
	case from == "" && to == "":
		return ""
	case to == "":
		return from + " -"
	default:
		return from + " - " + to
	}
}

func itemFlags(it media.Item) string {
	flags := make([]string, 0, 3)
	if it.Queued {
		flags = append(flags, "queued")
	}
	if it.NewEpisodes {
		flags = append(flags, "new")
	}
	if it.Playing {
		flags = append(flags, "playing")
	}
	return strings.Join(flags, ",")
}
