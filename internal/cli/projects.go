package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"modtracker/internal/service"
	"modtracker/internal/syncer"
	"modtracker/internal/tracker"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List projects with today's time",
	Args:    cobra.NoArgs,
	RunE:    runProjects,
}

var projectsAll bool

func init() {
	projectsCmd.Flags().BoolVarP(&projectsAll, "all", "a", false, "Include projects you have hidden")
}

func runProjects(cmd *cobra.Command, args []string) error {
	client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	views, err := client.Projects(ctx, projectsAll)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Println("No projects yet.")
		return nil
	}

	t := newTable("", "PROJECT", "CATEGORY", "TODAY", "COMMENT")
	for _, v := range views {
		mark := " "
		if v.IsRunning {
			mark = runningStyle.Render("▶")
		}
		name := v.Name
		if !v.IsActive {
			name += mutedStyle.Render(" (inactive)")
		}
		if v.IsHiddenForUser {
			name += mutedStyle.Render(" (hidden)")
		}
		comment := ""
		if v.SessionComment != nil {
			comment = *v.SessionComment
		}
		t.add(mark, name, v.Category, tracker.FormatHMS(v.DisplaySeconds), comment)
	}

	fmt.Println()
	fmt.Print(t.String())
	return nil
}

// resolveProject accepts a project id, or a name matched case-insensitively.
func resolveProject(ctx context.Context, client *syncer.Client, ref string) (service.ProjectView, error) {
	views, err := client.Projects(ctx, true)
	if err != nil {
		return service.ProjectView{}, err
	}

	if id, err := uuid.Parse(ref); err == nil {
		for _, v := range views {
			if v.ID == id {
				return v, nil
			}
		}
		return service.ProjectView{}, fmt.Errorf("no project with id %s", ref)
	}

	var matches []service.ProjectView
	for _, v := range views {
		if strings.EqualFold(v.Name, ref) {
			return v, nil
		}
		if strings.HasPrefix(strings.ToLower(v.Name), strings.ToLower(ref)) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return service.ProjectView{}, fmt.Errorf("no project named %q", ref)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return service.ProjectView{}, fmt.Errorf("%q matches several projects: %s", ref, strings.Join(names, ", "))
}

func projectNames(views []service.ProjectView) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(views))
	for _, v := range views {
		names[v.ID] = v.Name
	}
	return names
}
