package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"modtracker/internal/model"
	"modtracker/internal/syncer"
	"modtracker/internal/tracker"
)

var startCmd = &cobra.Command{
	Use:   "start <project>",
	Short: "Start a timer, stopping any other",
	Args:  cobra.ExactArgs(1),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, _ []string) ([]model.UserProjectState, error) {
		return c.Start(ctx, id)
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop <project>",
	Short: "Stop a timer and bank its time",
	Args:  cobra.ExactArgs(1),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, _ []string) ([]model.UserProjectState, error) {
		return c.Stop(ctx, id)
	}),
}

var presetCmd = &cobra.Command{
	Use:   "preset <project> <duration>",
	Short: "Set a timer to a duration (H:MM, H:MM:SS or seconds) and start it",
	Args:  cobra.ExactArgs(2),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, args []string) ([]model.UserProjectState, error) {
		seconds, err := tracker.ParseHMS(args[0])
		if err != nil {
			return nil, err
		}
		return c.StartWithPreset(ctx, id, seconds)
	}),
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <project> <+|-duration>",
	Short: "Add or remove banked time",
	Example: `  modtracker adjust backend +0:15
  modtracker adjust backend -- -300`,
	Args: cobra.ExactArgs(2),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, args []string) ([]model.UserProjectState, error) {
		delta, err := parseDelta(args[0])
		if err != nil {
			return nil, err
		}
		return c.Adjust(ctx, id, delta)
	}),
}

var resetCmd = &cobra.Command{
	Use:   "reset <project>",
	Short: "Zero a timer and stop it",
	Args:  cobra.ExactArgs(1),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, _ []string) ([]model.UserProjectState, error) {
		return c.Reset(ctx, id)
	}),
}

var commentCmd = &cobra.Command{
	Use:   "comment <project> <text...>",
	Short: "Set the comment committed with a timer",
	Args:  cobra.MinimumNArgs(1),
	RunE: timerCommand(func(ctx context.Context, c *syncer.Client, id uuid.UUID, args []string) ([]model.UserProjectState, error) {
		return c.SetComment(ctx, id, strings.Join(args, " "))
	}),
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit all accrued time into the log and zero the timers",
	Args:  cobra.NoArgs,
	RunE:  runCommit,
}

var commitDay string

func init() {
	commitCmd.Flags().StringVar(&commitDay, "day", "", "Date to record the entries under (YYYY-MM-DD, default today)")
}

type timerFunc func(ctx context.Context, c *syncer.Client, projectID uuid.UUID, args []string) ([]model.UserProjectState, error)

// timerCommand resolves the project argument, runs fn with the remaining arguments and
// prints the records the server changed.
func timerCommand(fn timerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := session()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		project, err := resolveProject(ctx, client, args[0])
		if err != nil {
			return err
		}
		changed, err := fn(ctx, client, project.ID, args[1:])
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			fmt.Println(mutedStyle.Render("Nothing changed."))
			return nil
		}

		views, err := client.Projects(ctx, true)
		if err != nil {
			return err
		}
		names := projectNames(views)
		for _, s := range changed {
			printState(names[s.ProjectID], s)
		}
		return nil
	}
}

func printState(name string, s model.UserProjectState) {
	status := mutedStyle.Render("stopped")
	if s.IsRunning() {
		status = runningStyle.Render("running since " + s.RunningSince.Local().Format("15:04:05"))
	}
	fmt.Printf("%s  %s  %s\n", titleStyle.Render(name), tracker.FormatHMS(s.BaseSeconds), status)
}

func parseDelta(v string) (int64, error) {
	sign := int64(1)
	switch {
	case strings.HasPrefix(v, "-"):
		sign = -1
		v = v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	}
	seconds, err := tracker.ParseHMS(v)
	if err != nil {
		return 0, err
	}
	return sign * seconds, nil
}

func runCommit(cmd *cobra.Command, args []string) error {
	if commitDay != "" && !tracker.ValidDateKey(commitDay) {
		return fmt.Errorf("invalid --day %q, expected YYYY-MM-DD", commitDay)
	}
	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := client.Commit(ctx, commitDay)
	if err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		fmt.Println(mutedStyle.Render("No accrued time to commit."))
		return nil
	}

	var total int64
	t := newTable("PROJECT", "DURATION", "COMMENT")
	for _, e := range result.Entries {
		comment := ""
		if e.Comment != nil {
			comment = *e.Comment
		}
		t.add(e.ProjectName, tracker.FormatHMS(e.DurationSeconds), comment)
		total += e.DurationSeconds
	}
	fmt.Println(titleStyle.Render("Committed " + result.Day))
	fmt.Print(t.String())
	fmt.Printf("Total %s\n", tracker.FormatHMS(total))
	return nil
}
