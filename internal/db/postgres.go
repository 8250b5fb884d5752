package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/envutil"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "ai_backlog")
	sslmode := envutil.String("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

type fkConstraint struct {
	table      string
	name       string
	column     string
	refTable   string
	refColumn  string
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Backlog{},
		&types.ChatMessage{},
		&types.UserStory{},
		&types.Task{},
		&types.TechStackSuggestion{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Deleting a backlog cascades to its stories, chat history and
	// suggestions; deleting a story cascades to its tasks.
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []fkConstraint{
		{"user_tokens", "fk_user_tokens_user_id", "user_id", "users", "id"},
		{"backlogs", "fk_backlogs_user_id", "user_id", "users", "id"},
		{"chat_messages", "fk_chat_messages_backlog_id", "backlog_id", "backlogs", "id"},
		{"user_stories", "fk_user_stories_backlog_id", "backlog_id", "backlogs", "id"},
		{"tasks", "fk_tasks_user_story_id", "user_story_id", "user_stories", "id"},
		{"tech_stack_suggestions", "fk_tech_stack_suggestions_backlog_id", "backlog_id", "backlogs", "id"},
	}
	for _, fk := range constraints {
		drop := fmt.Sprintf(`ALTER TABLE %q DROP CONSTRAINT IF EXISTS %q`, fk.table, fk.name)
		if err := s.db.Exec(drop).Error; err != nil {
			return fmt.Errorf("failed to reset %s: %w", fk.name, err)
		}
		add := fmt.Sprintf(
			`ALTER TABLE %q ADD CONSTRAINT %q FOREIGN KEY (%q) REFERENCES %q(%q) ON DELETE CASCADE`,
			fk.table, fk.name, fk.column, fk.refTable, fk.refColumn,
		)
		if err := s.db.Exec(add).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
