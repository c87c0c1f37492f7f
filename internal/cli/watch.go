package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/syncer"
	"modtracker/internal/tracker"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show your timers ticking live",
	Long: `Show your timers ticking live until interrupted.

Timers are fetched from the server every poll interval and ticked locally every
second in between. When the day changes the previous day is committed.

While watching, type a timer command and press Enter:

  start <project>            stop <project>           reset <project>
  preset <project> <H:MM>    adjust <project> <+|-H:MM>
  comment <project> <text...>`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := session()
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return fmt.Errorf("stored session is invalid, login again: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initial, err := loadNames(ctx, client)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	names := initial

	fmt.Println(titleStyle.Render("modtracker") + mutedStyle.Render("  "+cfg.Username+" @ "+cfg.ServerURL+"  (Ctrl+C to quit)"))

	poller := syncer.NewPoller(client, syncer.Options{
		UserID:         userID,
		PollInterval:   cfg.PollInterval,
		TickInterval:   cfg.TickInterval,
		StorageTimeout: cfg.StorageTimeout,
		OnTick: func(v syncer.View) {
			mu.Lock()
			line := statusLine(v, names)
			mu.Unlock()
			fmt.Print("\r\033[K" + line)
		},
		OnRollover: func(r *service.RolloverResult) {
			if !r.Committed {
				return
			}
			fmt.Printf("\r\033[K%s\n", warnStyle.Render(fmt.Sprintf("Committed %d entries for %s", len(r.Entries), r.Day)))
			if fresh, err := loadNames(ctx, client); err == nil {
				mu.Lock()
				names = fresh
				mu.Unlock()
			}
		},
	})

	handle := poller.Start(ctx)
	go readActions(ctx, os.Stdin, client, poller)
	<-ctx.Done()
	handle.Stop()
	fmt.Println()
	logger.Debug("watch stopped")
	return nil
}

func loadNames(ctx context.Context, client *syncer.Client) (map[uuid.UUID]string, error) {
	views, err := client.Projects(ctx, true)
	if err != nil {
		return nil, err
	}
	return projectNames(views), nil
}

func statusLine(v syncer.View, names map[uuid.UUID]string) string {
	var b strings.Builder
	switch v.State {
	case syncer.StateIdle:
		b.WriteString(mutedStyle.Render("connecting…"))
	case syncer.StateSyncing:
		b.WriteString(mutedStyle.Render("⟳ "))
	}

	if v.RunningProjectID != nil {
		name := names[*v.RunningProjectID]
		if name == "" {
			name = v.RunningProjectID.String()[:8]
		}
		b.WriteString(runningStyle.Render("▶ " + name + " " + tracker.FormatHMS(v.Display[*v.RunningProjectID])))
	} else if v.State != syncer.StateIdle {
		b.WriteString(mutedStyle.Render("no timer running"))
	}

	var total int64
	for _, s := range v.Display {
		total += s
	}
	if v.State != syncer.StateIdle {
		b.WriteString(mutedStyle.Render("  today " + tracker.FormatHMS(total)))
	}
	if v.LastErr != nil {
		b.WriteString("  " + errorStyle.Render("offline"))
	}
	return b.String()
}

// readActions applies timer commands typed on in to the poller's local state until in
// closes or ctx is done.
func readActions(ctx context.Context, in io.Reader, client *syncer.Client, poller *syncer.Poller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ref, build, err := parseWatchAction(line)
		if err != nil {
			fmt.Printf("\r\033[K%s\n", errorStyle.Render(err.Error()))
			continue
		}
		project, err := resolveProject(ctx, client, ref)
		if err != nil {
			fmt.Printf("\r\033[K%s\n", errorStyle.Render(err.Error()))
			continue
		}
		if _, err := poller.Do(ctx, build(project.ID)); err != nil {
			logger.Warn("timer action not saved", logger.F("project_id", project.ID.String()), logger.F("error", err))
			fmt.Printf("\r\033[K%s\n", errorStyle.Render("not saved, the next poll restores the server state"))
		}
	}
}

type actionBuilder func(projectID uuid.UUID) syncer.Action

// parseWatchAction splits a typed command into the project reference and the action to run.
func parseWatchAction(line string) (string, actionBuilder, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("expected <command> <project>, got %q", line)
	}
	verb, ref, rest := strings.ToLower(fields[0]), fields[1], fields[2:]

	switch verb {
	case "start", "stop", "reset":
		if len(rest) > 0 {
			return "", nil, fmt.Errorf("%s takes only a project", verb)
		}
	case "preset", "adjust":
		if len(rest) != 1 {
			return "", nil, fmt.Errorf("%s takes a project and a duration", verb)
		}
	case "comment":
	default:
		return "", nil, fmt.Errorf("unknown command %q", verb)
	}

	var build actionBuilder
	switch verb {
	case "start":
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, now time.Time) []model.UserProjectState { return ts.Start(id, now) }
		}
	case "stop":
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, now time.Time) []model.UserProjectState { return ts.Stop(id, now) }
		}
	case "reset":
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState { return ts.Reset(id) }
		}
	case "preset":
		seconds, err := tracker.ParseHMS(rest[0])
		if err != nil {
			return "", nil, err
		}
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
				return ts.StartWithPreset(id, seconds, now)
			}
		}
	case "adjust":
		delta, err := parseDelta(rest[0])
		if err != nil {
			return "", nil, err
		}
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState { return ts.Adjust(id, delta) }
		}
	case "comment":
		text := strings.Join(rest, " ")
		build = func(id uuid.UUID) syncer.Action {
			return func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState { return ts.SetComment(id, text) }
		}
	}
	return ref, build, nil
}
