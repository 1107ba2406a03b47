// Command seed fills an empty database with sample categories, an admin
// account and one week of time slots.  It is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/config"
	"github.com/iliyamo/timeslot-booking/internal/database"
	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/service"
)

var (
	categoryNames = []string{"Cat 1", "Cat 2", "Cat 3"}
	slotHours     = []int{9, 11, 14, 16}
)

func main() {
	adminUser := flag.String("admin-user", envOr("SEED_ADMIN_USER", "admin"), "admin username")
	adminPass := flag.String("admin-pass", envOr("SEED_ADMIN_PASSWORD", "admin123"), "admin password")
	adminEmail := flag.String("admin-email", envOr("SEED_ADMIN_EMAIL", "admin@example.com"), "admin email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	loc, _ := cfg.Location()

	db, err := database.Open(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, 0), database.Options{MaxOpenConns: 2})
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db, logger.Named("migrate")); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cats, err := ensureCategories(ctx, repository.NewCategoryRepo(db))
	if err != nil {
		logger.Fatal("seed categories", zap.Error(err))
	}

	users := repository.NewUserRepo(db)
	if _, err := users.Create(ctx, adminAccount(*adminUser, *adminEmail, *adminPass), cfg.BcryptCost); err != nil {
		if !errors.Is(err, repository.ErrUsernameExists) {
			logger.Fatal("seed admin", zap.Error(err))
		}
		logger.Info("admin exists", zap.String("username", *adminUser))
	} else {
		logger.Info("admin created", zap.String("username", *adminUser))
	}

	slots := repository.NewTimeSlotRepo(db)
	n, err := slots.Count(ctx)
	if err != nil {
		logger.Fatal("count slots", zap.Error(err))
	}
	if n > 0 {
		logger.Info("slots exist; skipping", zap.Int64("count", n))
		return
	}
	created := 0
	for _, ts := range weekSlots(time.Now().In(loc), cats) {
		if err := slots.Create(ctx, &ts); err != nil {
			logger.Fatal("seed slot", zap.Error(err))
		}
		created++
	}
	logger.Info("slots created", zap.Int("count", created))
}

func adminAccount(username, email, password string) repository.NewUser {
	return repository.NewUser{Username: username, Email: email, Password: password, IsAdmin: true}
}

// ensureCategories returns the seed categories in order, creating any that
// are missing.
func ensureCategories(ctx context.Context, repo *repository.CategoryRepo) ([]model.Category, error) {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}
	out := make([]model.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		c, ok := byName[name]
		if !ok {
			c = model.Category{Name: name}
			if err := repo.Create(ctx, &c); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// weekSlots lays out Monday to Friday of now's week, one-hour slots at
// slotHours, cycling through cats.
func weekSlots(now time.Time, cats []model.Category) []model.TimeSlot {
	if len(cats) == 0 {
		return nil
	}
	monday := service.MondayOf(now)
	var out []model.TimeSlot
	for day := 0; day < 5; day++ {
		date := monday.AddDate(0, 0, day)
		for i, h := range slotHours {
			cat := cats[i%len(cats)]
			start := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, date.Location())
			out = append(out, model.TimeSlot{
				CategoryID: cat.ID,
				Title:      cat.Name + " Session",
				StartTime:  start,
				EndTime:    start.Add(time.Hour),
			})
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
