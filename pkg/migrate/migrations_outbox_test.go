package migrate_test

import (
	"strings"
	"testing"

	"github.com/memalerts/memalerts-backend/pkg/migrate"
)

func TestOutboxMigrationContainsPartialIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox_events.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TYPE event_type_enum AS ENUM",
		"CREATE TYPE aggregate_type_enum AS ENUM",
		"ix_outbox_events_unpublished",
		"WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestChatOutboxMigrationContainsStatusIndex(t *testing.T) {
	content := readMigration(t, "*_create_chat_outbox_messages.sql")

	checks := []string{
		"CREATE TYPE chat_outbox_status_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS chat_outbox_messages",
		"ix_chat_outbox_platform_status",
		"ON chat_outbox_messages (platform, status)",
		"DROP TABLE IF EXISTS chat_outbox_messages",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
