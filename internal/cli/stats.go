package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show committed hours",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var (
	statsDays     int
	statsOverview bool
)

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 7, "Number of days to show")
	statsCmd.Flags().BoolVar(&statsOverview, "overview", false, "Team overview (admins only)")
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if statsOverview {
		overview, err := client.Overview(ctx, "")
		if err != nil {
			return err
		}
		printOverview(overview)
		return nil
	}

	summary, err := client.PersonalStats(ctx, "", statsDays)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Last %d days: %sh", len(summary.Days), summary.TotalHours)))
	printDays(summary.Days)
	return nil
}

func printDays(days []service.DayStat) {
	var peak int64
	for _, d := range days {
		if d.Seconds > peak {
			peak = d.Seconds
		}
	}
	for _, d := range days {
		fmt.Printf("%s  %s  %s\n", d.Date, bar(d.Seconds, peak, 30), mutedStyle.Render(tracker.FormatHMS(d.Seconds)))
	}
}

func bar(value, peak int64, width int) string {
	if peak <= 0 || value <= 0 {
		return strings.Repeat(" ", width)
	}
	n := int(value * int64(width) / peak)
	if n == 0 {
		n = 1
	}
	return runningStyle.Render(strings.Repeat("█", n)) + strings.Repeat(" ", width-n)
}

func printOverview(o *service.Overview) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Team total %sh (as of %s)", o.TotalHours, o.Day)))

	fmt.Println()
	ops := newTable("OPERATOR", "HOURS", "PROJECTS")
	for _, op := range o.Operators {
		ops.add(op.Username, op.Hours.String(), fmt.Sprint(op.Projects))
	}
	fmt.Print(ops.String())

	fmt.Println()
	projects := newTable("PROJECT", "HOURS", "SHARE")
	for _, p := range o.Projects {
		projects.add(p.Name, p.Hours.String(), p.Percent.String()+"%")
	}
	fmt.Print(projects.String())

	fmt.Println()
	fmt.Println(headerStyle.Render("LAST 7 DAYS"))
	printDays(o.LastSevenDays)
}
