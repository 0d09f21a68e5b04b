package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tracklist/internal/engine"
	"tracklist/internal/signals"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Watch playback and update progress until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runEngine(cmd, true, func(runCtx context.Context, eng *engine.Engine) error {
				if _, ok := eng.TrackerStatus(); !ok {
					return errors.New("the tracker is not available for this mediatype; see `tracklist logs`")
				}
				out := cmd.OutOrStdout()
				unsubscribe := eng.Subscribe(signals.TrackerState, func(_ context.Context, ev signals.Event) {
					fmt.Fprintln(out, trackerLine(ev.Tracker))
				})
				defer unsubscribe()

				signalCtx, stop := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				fmt.Fprintln(cmd.ErrOrStderr(), renderStatusLine(statusOK, "Tracking playback; press Ctrl+C to stop.", shouldColorize(cmd.ErrOrStderr())))
				<-signalCtx.Done()
				return nil
			})
		},
	}
}

func trackerLine(st signals.TrackerStatus) string {
	switch {
	case st.Title != "":
		return fmt.Sprintf("%-13s %s episode %d (%s/%s)", st.State, st.Title, st.Episode, st.Dwell.Round(time.Second), st.Wait)
	case st.Filename != "":
		return fmt.Sprintf("%-13s %s", st.State, st.Filename)
	default:
		return st.State
	}
}
