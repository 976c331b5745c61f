package database

import (
	"database/sql"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"
)

func TestMigrationManager_KnowledgeEntries(t *testing.T) {
	// 需要带pgvector扩展的真实数据库
	dbURL := os.Getenv("TEST_DB_URL")
	if dbURL == "" {
		t.Skip("Skipping migration test: TEST_DB_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	manager, err := NewMigrationManager(db, "../../migrations", logger)
	require.NoError(t, err)
	defer manager.Close()

	require.NoError(t, manager.Up())

	version, dirty, err := manager.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.GreaterOrEqual(t, version, uint(1))

	var exists bool
	err = db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'knowledge_entries')").Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	// 再次执行不报错
	require.NoError(t, manager.Up())

	require.NoError(t, manager.Goto(1))
	require.NoError(t, manager.Down())

	version, _, err = manager.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
