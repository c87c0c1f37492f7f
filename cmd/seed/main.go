package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"modtracker/internal/config"
	"modtracker/internal/db"
	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/repository"
)

const adminUsername = "Admin"

type demoProject struct {
	Name     string
	Category string
	Color    string
}

var demoProjects = []demoProject{
	{Name: "Backend", Category: "Engineering", Color: "#2563eb"},
	{Name: "Frontend", Category: "Engineering", Color: "#16a34a"},
	{Name: "Support", Category: "Operations", Color: "#f59e0b"},
	{Name: "Meetings", Category: "General", Color: "#6b7280"},
}

func main() {
	cfg := config.Load()
	log := logger.Init("seed", cfg.LogLevel, os.Stdout)
	log.Info("starting seed script")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Error("failed to connect to database", logger.F("error", err))
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("failed to run migrations", logger.F("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	store := repository.NewStore(gormDB)

	admin, err := seedAdmin(ctx, store, getEnv("SEED_ADMIN_PASSWORD", "admin"))
	if err != nil {
		log.Error("failed to seed admin", logger.F("error", err))
		os.Exit(1)
	}
	log.Info("admin ready", logger.F("user_id", admin.ID.String()), logger.F("username", admin.Username))

	created, err := seedProjects(ctx, store, admin)
	if err != nil {
		log.Error("failed to seed projects", logger.F("error", err))
		os.Exit(1)
	}
	log.Info("seed completed", logger.F("projects_created", created))
}

// seedAdmin returns the existing admin or creates it.
func seedAdmin(ctx context.Context, store repository.Store, password string) (*model.User, error) {
	existing, err := store.Users().FindByUsername(ctx, adminUsername)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &model.User{
		Username:     adminUsername,
		PasswordHash: string(hashed),
		Role:         model.RoleAdmin,
	}
	if err := store.Users().Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// seedProjects adds the demo global projects that do not exist yet.
func seedProjects(ctx context.Context, store repository.Store, admin *model.User) (int, error) {
	existing, err := store.Projects().ListAll(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.Name] = true
	}

	created := 0
	for _, d := range demoProjects {
		if have[d.Name] {
			continue
		}
		project := &model.Project{
			CreatorID: admin.ID,
			Name:      d.Name,
			Category:  d.Category,
			Color:     d.Color,
			IsGlobal:  true,
			IsActive:  true,
		}
		if err := store.Projects().Create(ctx, project); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
