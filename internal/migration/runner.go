// Package migration applies the gorm schema and the versioned SQL files in
// the migrations directory. Applied files are recorded in schema_migrations
// and skipped on the next start.
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leadscout/backend/internal/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SchemaMigration records one applied SQL file.
type SchemaMigration struct {
	Version   string    `gorm:"primaryKey;type:varchar(191)"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string { return "schema_migrations" }

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations runs the gorm auto-migration and then every SQL file not yet
// applied, in file name order. A missing directory is not an error.
func (r *Runner) RunMigrations(migrationsPath string) error {
	r.logger.Info("Starting database migrations...")

	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}
	if err := r.dbManager.DB.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := r.runSQLMigrations(migrationsPath)
	if err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.WithField("applied", applied).Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(migrationsPath string) (int, error) {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.WithField("path", migrationsPath).Warn("Migrations directory not found, skipping SQL migrations")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	var done []SchemaMigration
	if err := r.dbManager.DB.Find(&done).Error; err != nil {
		return 0, fmt.Errorf("load applied migrations: %w", err)
	}
	seen := make(map[string]bool, len(done))
	for _, m := range done {
		seen[m.Version] = true
	}

	applied := 0
	for _, fileName := range sqlFiles {
		if seen[fileName] {
			continue
		}
		if err := r.runSQLFile(filepath.Join(migrationsPath, fileName)); err != nil {
			return applied, fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}
		applied++
		r.logger.WithField("file", fileName).Info("Migration executed successfully")
	}
	return applied, nil
}

// runSQLFile executes the statements of one file and records it in the same
// transaction.
func (r *Runner) runSQLFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	name := filepath.Base(filePath)

	return r.dbManager.DB.Transaction(func(tx *gorm.DB) error {
		for i, stmt := range SplitStatements(string(content)) {
			r.logger.WithFields(logrus.Fields{
				"file":      name,
				"statement": i + 1,
			}).Debug("Executing SQL statement")

			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return tx.Create(&SchemaMigration{Version: name, AppliedAt: time.Now().UTC()}).Error
	})
}

// SplitStatements splits a script on semicolons outside of quotes and
// dollar-quoted bodies. Comment lines are dropped.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
		dollarTag  string
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		if quote == 0 && dollarTag == "" && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case dollarTag != "":
				if strings.HasPrefix(line[i:], dollarTag) {
					current.WriteString(dollarTag)
					i += len(dollarTag) - 1
					dollarTag = ""
					continue
				}
			case quote != 0:
				if ch == quote {
					quote = 0
				}
			case ch == '\'' || ch == '"':
				quote = ch
			case ch == '$':
				if end := strings.IndexByte(line[i+1:], '$'); end >= 0 && isDollarTag(line[i+1:i+1+end]) {
					dollarTag = line[i : i+end+2]
					current.WriteString(dollarTag)
					i += len(dollarTag) - 1
					continue
				}
			case ch == ';':
				flush()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}

func isDollarTag(tag string) bool {
	for _, r := range tag {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
