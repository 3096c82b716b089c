package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/log"
	_ "github.com/mattn/go-sqlite3"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/store/migrations"
)

type Config interface {
	DatabaseFile() string
}

type botStore struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewBotStore opens the credential database and brings its schema up to date.
func NewBotStore(config Config) (*botStore, error) {
	dsn := config.DatabaseFile()
	if !strings.HasPrefix(dsn, "file:") {
		if dir := path.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, &model.StoreUnavailableError{Err: fmt.Errorf("creating data directory: %w", err)}
			}
		}
		dsn = "file:" + dsn
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, &model.StoreUnavailableError{Err: fmt.Errorf("opening database: %w", err)}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &botStore{db: db, logger: log.New("store")}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, &model.StoreUnavailableError{Err: err}
	}

	return store, nil
}

func (s *botStore) migrate() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, _, _ := migrator.Version()
	s.logger.Infof("credential store schema at version %d", version)
	return nil
}

func (s *botStore) Close() error {
	return s.db.Close()
}

// ListBots returns every active bot.
func (s *botStore) ListBots(ctx context.Context) ([]model.BotCredentials, error) {
	bots := []model.BotCredentials{}
	err := s.db.SelectContext(ctx, &bots, `select ID, Token, Name, Active, CreatedAt from bots where Active = 1 order by ID`)
	if err != nil {
		return nil, &model.StoreUnavailableError{Err: fmt.Errorf("listing bots: %w", err)}
	}
	return bots, nil
}

// PutBot inserts a bot or replaces the token and name of an existing one.
func (s *botStore) PutBot(ctx context.Context, bot *model.BotCredentials) error {
	if bot.ID == "" || bot.Token == "" {
		return &model.ValidationError{Reason: "bot id and token are required"}
	}
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `insert into bots
		(ID, Token, Name, Active, CreatedAt)
		values(:ID, :Token, :Name, :Active, :CreatedAt)
		on conflict(ID) do update set Token = excluded.Token, Name = excluded.Name, Active = excluded.Active`, bot)
	if err != nil {
		return fmt.Errorf("inserting bot: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	s.logger.Infof("stored bot %s (token %s)", bot.ID, model.Fingerprint(bot.Token))
	return nil
}

// Deactivate marks a bot inactive; bots are never deleted.
func (s *botStore) Deactivate(ctx context.Context, id model.BotID) error {
	res, err := s.db.ExecContext(ctx, `update bots set Active = 0 where ID = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivating bot: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows == 0 {
		return model.ErrorBotNotFound
	}
	return nil
}
