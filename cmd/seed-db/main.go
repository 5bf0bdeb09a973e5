package main

import (
	"context"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/storage/sqlstore"
)

type adminAccount struct {
	Email    string
	Password string
	Name     string
}

type dbConfig struct {
	DB sqlstore.Config `env:"DB"`
}

func main() {
	var (
		catalogFile string
		admin       adminAccount
	)

	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog .json or .json.gz file (embedded catalog when empty)")
	flag.StringVar(&admin.Email, "admin-email", "", "admin account email (or ADMIN_EMAIL env)")
	flag.StringVar(&admin.Password, "admin-password", "", "admin account password (or ADMIN_PASSWORD env)")
	flag.StringVar(&admin.Name, "admin-name", "Administrator", "admin account display name")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if admin.Email == "" {
		admin.Email = os.Getenv("ADMIN_EMAIL")
	}
	if admin.Password == "" {
		admin.Password = os.Getenv("ADMIN_PASSWORD")
	}

	var cfg dbConfig
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		SkipFiles:        true,
		AllowUnknownEnvs: true,
	}).Load(); err != nil {
		slog.Error("load database config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg.DB, catalogFile, admin); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg sqlstore.Config, catalogFile string, admin adminAccount) error {
	data, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}
	cat, err := parseCatalog(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	store, err := sqlstore.Open(ctx, cfg, nil)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer store.Close()

	slog.Info("running migrations", slog.String("driver", string(store.Driver())))

	if err := store.Migrate(ctx); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seed(ctx, store, cat, admin)
}

func seed(ctx context.Context, store *sqlstore.Store, cat *seedCatalog, admin adminAccount) error {
	repo := sqlstore.NewCatalogRepository(store)

	slog.Info("upserting occasions", slog.Int("count", len(cat.Occasions)))
	for i := range cat.Occasions {
		o := &cat.Occasions[i]
		if err := repo.UpsertOccasion(ctx, o); err != nil {
			return err
		}
	}

	slog.Info("upserting meal plans", slog.Int("count", len(cat.Offerings)))
	for i := range cat.Offerings {
		o := &cat.Offerings[i]
		if err := repo.UpsertOffering(ctx, o); err != nil {
			return err
		}
		slog.Info("upserted meal plan", slog.String("id", o.ID), slog.String("name", o.Name))
	}

	if admin.Email == "" && admin.Password == "" {
		slog.Info("no admin credentials given, skipping admin account")
		return nil
	}
	return seedAdmin(ctx, sqlstore.NewAuthRepository(store), admin)
}

func seedAdmin(ctx context.Context, users *sqlstore.AuthRepository, admin adminAccount) error {
	email := auth.NormalizeEmail(admin.Email)
	if email == "" {
		return errors.New("admin email is required with an admin password")
	}
	if len(admin.Password) < auth.MinPasswordLength {
		return errors.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := auth.NewService(users, users, auth.Config{}).HashPassword(admin.Password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	created, err := users.UpsertAdmin(ctx, &auth.User{
		ID:           uuid.NewString(),
		FullName:     admin.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	slog.Info("upserted admin account", slog.String("email", email), slog.Bool("created", created))
	return nil
}
