package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"modtracker/internal/cache"
	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/tracker"
)

const (
	statsOverviewKey = "stats:overview"
	defaultStatsTTL  = 5 * time.Minute
	defaultSummary   = 7
)

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hundred        = decimal.NewFromInt(100)
)

// invalidateStats drops the cached overview after anything that changes the logs.
func invalidateStats(ctx context.Context, c *cache.Client) {
	_ = c.Delete(ctx, statsOverviewKey)
}

// Hours converts seconds to hours rounded to one decimal place.
func Hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour).Round(1)
}

func percent(part, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)).Round(1)
}

// DayStat is the logged total for one day.
type DayStat struct {
	Date    string          `json:"date"`
	Seconds int64           `json:"seconds"`
	Hours   decimal.Decimal `json:"hours"`
}

// OperatorStat is one user's all-time total.
type OperatorStat struct {
	UserID   uuid.UUID       `json:"user_id"`
	Username string          `json:"username"`
	Seconds  int64           `json:"seconds"`
	Hours    decimal.Decimal `json:"hours"`
	Projects int             `json:"projects"`
}

// UserShare is one user's contribution to a project.
type UserShare struct {
	UserID   uuid.UUID       `json:"user_id"`
	Username string          `json:"username"`
	Seconds  int64           `json:"seconds"`
	Hours    decimal.Decimal `json:"hours"`
}

// ProjectStat is a project's total and its share of all logged time.
type ProjectStat struct {
	ProjectID uuid.UUID       `json:"project_id"`
	Name      string          `json:"name"`
	Seconds   int64           `json:"seconds"`
	Hours     decimal.Decimal `json:"hours"`
	Percent   decimal.Decimal `json:"percent"`
	ByUser    []UserShare     `json:"by_user"`
}

// WeeklyStat is one user's total for an ISO week.
type WeeklyStat struct {
	UserID   uuid.UUID       `json:"user_id"`
	Username string          `json:"username"`
	Week     string          `json:"week"`
	Seconds  int64           `json:"seconds"`
	Hours    decimal.Decimal `json:"hours"`
}

// Overview is the admin dashboard aggregate.
type Overview struct {
	Day           string          `json:"day"`
	TotalSeconds  int64           `json:"total_seconds"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	Operators     []OperatorStat  `json:"operators"`
	Projects      []ProjectStat   `json:"projects"`
	LastSevenDays []DayStat       `json:"last_seven_days"`
	Weekly        []WeeklyStat    `json:"weekly"`
}

// PersonalSummary is a user's per-day totals over a trailing window.
type PersonalSummary struct {
	UserID       uuid.UUID       `json:"user_id"`
	TotalSeconds int64           `json:"total_seconds"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	Days         []DayStat       `json:"days"`
}

// StatsService aggregates committed logs for reporting.
type StatsService interface {
	Overview(ctx context.Context, today string) (*Overview, error)
	Personal(ctx context.Context, userID uuid.UUID, today string, days int) (*PersonalSummary, error)
}

type statsService struct {
	store repository.Store
	cache *cache.Client
	ttl   time.Duration
}

// NewStatsService creates a stats service. A ttl of zero uses the default.
func NewStatsService(store repository.Store, cache *cache.Client, ttl time.Duration) StatsService {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &statsService{store: store, cache: cache, ttl: ttl}
}

func (s *statsService) Overview(ctx context.Context, today string) (*Overview, error) {
	day, err := tracker.ParseDateKey(today, time.UTC)
	if err != nil {
		return nil, err
	}

	var cached Overview
	if s.cache.GetJSON(ctx, statsOverviewKey, &cached) && cached.Day == today {
		return &cached, nil
	}

	logs, err := s.store.Logs().List(ctx, repository.LogFilter{})
	if err != nil {
		return nil, storageErr("list logs", err)
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	projects, err := s.store.Projects().ListAll(ctx)
	if err != nil {
		return nil, storageErr("list projects", err)
	}

	overview := buildOverview(logs, users, projects, day)
	_ = s.cache.SetJSON(ctx, statsOverviewKey, overview, s.ttl)
	return overview, nil
}

func (s *statsService) Personal(ctx context.Context, userID uuid.UUID, today string, days int) (*PersonalSummary, error) {
	day, err := tracker.ParseDateKey(today, time.UTC)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultSummary
	}
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageErr("find user", err)
	}

	from := tracker.DateKey(day.AddDate(0, 0, -(days - 1)))
	logs, err := s.store.Logs().List(ctx, repository.LogFilter{UserID: &userID, From: from, To: today})
	if err != nil {
		return nil, storageErr("list logs", err)
	}

	summary := &PersonalSummary{UserID: userID, Days: dayWindow(logs, day, days)}
	for _, d := range summary.Days {
		summary.TotalSeconds += d.Seconds
	}
	summary.TotalHours = Hours(summary.TotalSeconds)
	return summary, nil
}

// dayWindow returns n consecutive days ending at last, oldest first, with missing days at zero.
func dayWindow(logs []model.DailyLogEntry, last time.Time, n int) []DayStat {
	perDay := make(map[string]int64)
	for _, e := range logs {
		perDay[e.Date] += e.DurationSeconds
	}
	out := make([]DayStat, 0, n)
	for i := n - 1; i >= 0; i-- {
		key := tracker.DateKey(last.AddDate(0, 0, -i))
		out = append(out, DayStat{Date: key, Seconds: perDay[key], Hours: Hours(perDay[key])})
	}
	return out
}

func buildOverview(logs []model.DailyLogEntry, users []model.User, projects []model.Project, today time.Time) *Overview {
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	projectNames := make(map[uuid.UUID]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	type weekKey struct {
		user uuid.UUID
		week string
	}
	perUser := make(map[uuid.UUID]int64)
	userProjects := make(map[uuid.UUID]map[uuid.UUID]bool)
	perProject := make(map[uuid.UUID]int64)
	projectUsers := make(map[uuid.UUID]map[uuid.UUID]int64)
	weekly := make(map[weekKey]int64)

	o := &Overview{Day: tracker.DateKey(today)}
	for _, e := range logs {
		o.TotalSeconds += e.DurationSeconds
		perUser[e.UserID] += e.DurationSeconds
		if userProjects[e.UserID] == nil {
			userProjects[e.UserID] = make(map[uuid.UUID]bool)
		}
		userProjects[e.UserID][e.ProjectID] = true

		perProject[e.ProjectID] += e.DurationSeconds
		if projectUsers[e.ProjectID] == nil {
			projectUsers[e.ProjectID] = make(map[uuid.UUID]int64)
		}
		projectUsers[e.ProjectID][e.UserID] += e.DurationSeconds
		if _, ok := projectNames[e.ProjectID]; !ok {
			projectNames[e.ProjectID] = e.ProjectName
		}

		if d, err := tracker.ParseDateKey(e.Date, time.UTC); err == nil {
			weekly[weekKey{user: e.UserID, week: tracker.WeekKey(d)}] += e.DurationSeconds
		}
	}
	o.TotalHours = Hours(o.TotalSeconds)

	for _, u := range users {
		total := perUser[u.ID]
		if u.IsAdmin() && total == 0 {
			continue
		}
		o.Operators = append(o.Operators, OperatorStat{
			UserID:   u.ID,
			Username: u.Username,
			Seconds:  total,
			Hours:    Hours(total),
			Projects: len(userProjects[u.ID]),
		})
	}
	sort.SliceStable(o.Operators, func(i, j int) bool {
		if o.Operators[i].Seconds != o.Operators[j].Seconds {
			return o.Operators[i].Seconds > o.Operators[j].Seconds
		}
		return o.Operators[i].Username < o.Operators[j].Username
	})

	for id, total := range perProject {
		stat := ProjectStat{
			ProjectID: id,
			Name:      projectNames[id],
			Seconds:   total,
			Hours:     Hours(total),
			Percent:   percent(total, o.TotalSeconds),
		}
		for uid, secs := range projectUsers[id] {
			stat.ByUser = append(stat.ByUser, UserShare{UserID: uid, Username: names[uid], Seconds: secs, Hours: Hours(secs)})
		}
		sort.Slice(stat.ByUser, func(i, j int) bool {
			if stat.ByUser[i].Seconds != stat.ByUser[j].Seconds {
				return stat.ByUser[i].Seconds > stat.ByUser[j].Seconds
			}
			return stat.ByUser[i].Username < stat.ByUser[j].Username
		})
		o.Projects = append(o.Projects, stat)
	}
	sort.Slice(o.Projects, func(i, j int) bool {
		if o.Projects[i].Seconds != o.Projects[j].Seconds {
			return o.Projects[i].Seconds > o.Projects[j].Seconds
		}
		return o.Projects[i].Name < o.Projects[j].Name
	})

	o.LastSevenDays = dayWindow(logs, today, 7)

	for k, secs := range weekly {
		o.Weekly = append(o.Weekly, WeeklyStat{UserID: k.user, Username: names[k.user], Week: k.week, Seconds: secs, Hours: Hours(secs)})
	}
	sort.Slice(o.Weekly, func(i, j int) bool {
		if o.Weekly[i].Username != o.Weekly[j].Username {
			return o.Weekly[i].Username < o.Weekly[j].Username
		}
		if o.Weekly[i].UserID != o.Weekly[j].UserID {
			return o.Weekly[i].UserID.String() < o.Weekly[j].UserID.String()
		}
		return o.Weekly[i].Week > o.Weekly[j].Week
	})
	return o
}
