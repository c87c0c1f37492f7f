package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"modtracker/internal/model"
	"modtracker/internal/syncer"
	"modtracker/internal/tracker"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Review, add and correct committed time",
}

var logListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List log entries",
	Args:    cobra.NoArgs,
	RunE:    runLogList,
}

var logAddCmd = &cobra.Command{
	Use:   "add <project> <duration>",
	Short: "Add a manual entry, usually for a past day",
	Args:  cobra.ExactArgs(2),
	RunE:  runLogAdd,
}

var logEditCmd = &cobra.Command{
	Use:   "edit <log-id> <duration>",
	Short: "Correct an entry; the change is kept in its history",
	Args:  cobra.ExactArgs(2),
	RunE:  runLogEdit,
}

var logHistoryCmd = &cobra.Command{
	Use:   "history <log-id>",
	Short: "Show every change made to an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogHistory,
}

var (
	logFrom    string
	logTo      string
	logUser    string
	logProject string
	logDate    string
	logComment string
	logKind    string
)

func init() {
	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logAddCmd)
	logCmd.AddCommand(logEditCmd)
	logCmd.AddCommand(logHistoryCmd)

	logListCmd.Flags().StringVar(&logFrom, "from", "", "First day (YYYY-MM-DD)")
	logListCmd.Flags().StringVar(&logTo, "to", "", "Last day (YYYY-MM-DD)")
	logListCmd.Flags().StringVar(&logUser, "user", "", "User id (admins only)")
	logListCmd.Flags().StringVarP(&logProject, "project", "P", "", "Project name or id")

	logAddCmd.Flags().StringVar(&logDate, "date", "", "Day of the entry (YYYY-MM-DD, default today)")
	logAddCmd.Flags().StringVarP(&logComment, "comment", "m", "", "Comment")
	logAddCmd.Flags().StringVar(&logKind, "kind", string(model.LogKindManual), "MANUAL or PRESET")

	logEditCmd.Flags().StringVar(&logDate, "date", "", "New day (YYYY-MM-DD, default unchanged)")
	logEditCmd.Flags().StringVarP(&logComment, "comment", "m", "", "New comment (default unchanged)")
}

func runLogList(cmd *cobra.Command, args []string) error {
	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	q := syncer.LogQuery{From: logFrom, To: logTo}
	if logUser != "" {
		id, err := uuid.Parse(logUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		q.UserID = &id
	}
	if logProject != "" {
		p, err := resolveProject(ctx, client, logProject)
		if err != nil {
			return err
		}
		q.ProjectID = &p.ID
	}

	entries, err := client.Logs(ctx, q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No log entries.")
		return nil
	}

	var total int64
	t := newTable("ID", "DATE", "PROJECT", "DURATION", "KIND", "COMMENT")
	for _, e := range entries {
		comment := ""
		if e.Comment != nil {
			comment = *e.Comment
		}
		t.add(e.ID.String(), e.Date, e.ProjectName, tracker.FormatHMS(e.DurationSeconds), string(e.Kind), comment)
		total += e.DurationSeconds
	}
	fmt.Print(t.String())
	fmt.Printf("%d entries, %s\n", len(entries), tracker.FormatHMS(total))
	return nil
}

func runLogAdd(cmd *cobra.Command, args []string) error {
	seconds, err := tracker.ParseHMS(args[1])
	if err != nil {
		return err
	}
	date := logDate
	if date == "" {
		date = tracker.DateKey(time.Now())
	}
	if !tracker.ValidDateKey(date) {
		return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
	}

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
	entry, err := client.AddLog(ctx, syncer.NewLog{
		ProjectID:       project.ID.String(),
		Date:            date,
		DurationSeconds: seconds,
		Kind:            model.LogKind(strings.ToUpper(logKind)),
		Comment:         logComment,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s to %s on %s (%s)\n", tracker.FormatHMS(entry.DurationSeconds), entry.ProjectName, entry.Date, mutedStyle.Render(entry.ID.String()))
	return nil
}

func runLogEdit(cmd *cobra.Command, args []string) error {
	logID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid log id: %w", err)
	}
	seconds, err := tracker.ParseHMS(args[1])
	if err != nil {
		return err
	}

	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	edit := syncer.LogChange{DurationSeconds: seconds, Date: logDate}
	if cmd.Flags().Changed("comment") {
		edit.Comment = &logComment
	}
	if edit.Date == "" || edit.Comment == nil {
		current, err := findLog(cmd, client, logID)
		if err != nil {
			return err
		}
		if edit.Date == "" {
			edit.Date = current.Date
		}
		if edit.Comment == nil {
			edit.Comment = current.Comment
		}
	}

	record, err := client.EditLog(ctx, logID, edit)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s → %s\n", record.OldDate, tracker.FormatHMS(record.OldDurationSeconds), tracker.FormatHMS(record.NewDurationSeconds))
	return nil
}

// findLog looks the entry up among the logs the caller can see. Edits resend every field.
func findLog(cmd *cobra.Command, client *syncer.Client, logID uuid.UUID) (*model.DailyLogEntry, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	entries, err := client.Logs(ctx, syncer.LogQuery{})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == logID {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("log entry %s not found", logID)
}

func runLogHistory(cmd *cobra.Command, args []string) error {
	logID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid log id: %w", err)
	}
	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	records, err := client.LogHistory(ctx, logID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("Never edited.")
		return nil
	}

	t := newTable("WHEN", "DATE", "DURATION", "COMMENT")
	for _, r := range records {
		t.add(
			r.ModifiedAt.Local().Format("2006-01-02 15:04"),
			change(r.OldDate, r.NewDate),
			change(tracker.FormatHMS(r.OldDurationSeconds), tracker.FormatHMS(r.NewDurationSeconds)),
			change(deref(r.OldComment), deref(r.NewComment)),
		)
	}
	fmt.Print(t.String())
	return nil
}

func change(from, to string) string {
	if from == to {
		return mutedStyle.Render(from)
	}
	return from + " → " + to
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
