package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/textutil"
	"tracklist/internal/tracker"
)

// Launcher opens path in player. It must not wait for the player to exit.
type Launcher func(ctx context.Context, player, path string) error

func startPlayer(_ context.Context, player, path string) error {
	args := strings.Fields(player)
	if len(args) == 0 {
		return media.Wrap(media.ErrUnsupported, "engine", "play", "no player configured", nil)
	}
	cmd := exec.Command(args[0], append(args[1:], path)...)
	if err := cmd.Start(); err != nil {
		return media.Wrap(media.ErrNotFound, "engine", "play", fmt.Sprintf("cannot start %s", args[0]), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// libraryFile is a video under searchdir attributed to a list item.
type libraryFile struct {
	Path  string
	Start int
	End   int
}

func (f libraryFile) covers(episode int) bool {
	return episode >= f.Start && episode <= f.End
}

// scanLibrary walks every searchdir and attributes each parsable video file
// to the best-matching item of list.
func (e *Engine) scanLibrary(list map[media.ID]media.Item, altnames map[media.ID]string) map[media.ID][]libraryFile {
	parse := e.opts.Parser
	if parse == nil {
		parse = textutil.ParseFilename
	}
	found := make(map[media.ID][]libraryFile)
	for _, root := range e.cfg.SearchDir {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil
			}
			if d.IsDir() || !tracker.IsVideo(d.Name()) {
				return nil
			}
			var match tracker.Match
			parsed, ok := parse(d.Name())
			if ok {
				match, ok = tracker.FindMatch(list, altnames, parsed.Title)
			}
			// With library_full_path the folder name may carry the title.
			if !ok && e.cfg.LibraryFullPath {
				if parsed, ok = parse(filepath.Base(filepath.Dir(path)) + " " + d.Name()); ok {
					match, ok = tracker.FindMatch(list, altnames, parsed.Title)
				}
			}
			if !ok {
				return nil
			}
			start := max(parsed.EpisodeStart, 1)
			found[match.Item.ID] = append(found[match.Item.ID], libraryFile{
				Path:  path,
				Start: start,
				End:   max(parsed.EpisodeEnd, start),
			})
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(e.logger, "library scan incomplete", "library_scan_failed",
				logging.String("dir", root),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that searchdir exists and is readable"),
			)
		}
	}
	for id := range found {
		slices.SortFunc(found[id], func(a, b libraryFile) int { return strings.Compare(a.Path, b.Path) })
	}
	return found
}

// PlayEpisode starts the player on the file holding episode ep of id and
// returns the episode played. ep <= 0 plays the next unwatched episode.
func (e *Engine) PlayEpisode(ctx context.Context, id media.ID, ep int) (int, error) {
	what := fmt.Sprintf("playing %s", id)
	h, mt, err := e.session()
	if err != nil {
		return 0, e.report(err, what)
	}
	if !mt.CanPlay {
		return 0, e.report(unsupported("play", mt), what)
	}
	item, ok := h.Item(id)
	if !ok {
		return 0, e.report(media.Wrap(media.ErrNotFound, "engine", "play", fmt.Sprintf("%s is not on the list", id), nil), what)
	}
	if ep <= 0 {
		ep = item.MyProgress + 1
	}
	if item.Total > 0 && ep > item.Total {
		return 0, e.report(media.Wrap(media.ErrOutOfRange, "engine", "play", fmt.Sprintf("episode %d is past the total of %d", ep, item.Total), nil), what)
	}

	files := e.scanLibrary(map[media.ID]media.Item{id: item}, map[media.ID]string{id: h.AltnameGet(id)})[id]
	idx := slices.IndexFunc(files, func(f libraryFile) bool { return f.covers(ep) })
	if idx < 0 {
		return 0, e.report(media.Wrap(media.ErrNotFound, "engine", "play", fmt.Sprintf("no file for episode %d", ep), nil),
			fmt.Sprintf("finding episode %d of %s", ep, displayName(item)))
	}
	path := files[idx].Path
	if err := e.launcher(ctx, e.cfg.Player, path); err != nil {
		return 0, e.report(err, what)
	}
	e.logger.Info("player started",
		logging.String(logging.FieldItemID, id.String()),
		logging.Int(logging.FieldEpisode, ep),
		logging.String("file", path),
		logging.String(logging.FieldEventType, "play_episode"),
	)
	e.messenger.Message(LevelInfo, fmt.Sprintf("Playing %s episode %d.", displayName(item), ep))
	return ep, nil
}

// GetNewEpisodes scans searchdir for files past each item's progress, marks
// those items and returns them ordered by id. ids limits the scan; none
// means the whole list.
func (e *Engine) GetNewEpisodes(ctx context.Context, ids ...media.ID) ([]media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return nil, e.report(err, "looking for new episodes")
	}
	list := h.Get()
	if len(ids) > 0 {
		subset := make(map[media.ID]media.Item, len(ids))
		for _, id := range ids {
			if it, ok := list[id]; ok {
				subset[id] = it
			}
		}
		list = subset
	}
	if _, err := os.Stat(firstDir(e.cfg.SearchDir)); err != nil {
		return nil, e.report(media.Wrap(media.ErrNotFound, "engine", "neweps", "searchdir is not available", err), "looking for new episodes")
	}

	var fresh []media.ID
	for id, files := range e.scanLibrary(list, h.AltNames()) {
		item := list[id]
		if slices.ContainsFunc(files, func(f libraryFile) bool {
			return f.End > item.MyProgress && (item.Total == 0 || f.Start <= item.Total)
		}) {
			fresh = append(fresh, id)
		}
	}
	h.SetNewEpisodes(fresh)
	h.Publish(signals.Event{Name: signals.ListChanged})
	e.settle(ctx)

	out := make([]media.Item, 0, len(fresh))
	for _, id := range media.SortedIDs(h.Get()) {
		if slices.Contains(fresh, id) {
			item, _ := h.Item(id)
			out = append(out, item)
		}
	}
	return out, nil
}

func firstDir(dirs []string) string {
	if len(dirs) == 0 {
		return ""
	}
	return dirs[0]
}
