package dbm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/last9/otelkit/pkg/logger"
)

// The monitoring role never reads table data directly. It calls SECURITY
// DEFINER functions owned by the superuser, the same privilege split the
// managed-Postgres DBM agents use.
const (
	createRoleSQL = `
DO $$
BEGIN
    IF NOT EXISTS (SELECT FROM pg_catalog.pg_roles WHERE rolname = 'otel_monitor') THEN
        CREATE ROLE otel_monitor WITH LOGIN PASSWORD 'otel_monitor' CONNECTION LIMIT 5;
    END IF;
END
$$;`

	grantMonitorSQL = `GRANT pg_monitor TO otel_monitor;`

	createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS pg_stat_statements;`

	createSchemaSQL = `CREATE SCHEMA IF NOT EXISTS otel_monitor;`

	grantSchemaSQL = `GRANT USAGE ON SCHEMA otel_monitor TO otel_monitor;`

	activityFunctionSQL = `
CREATE OR REPLACE FUNCTION otel_monitor.activity()
RETURNS SETOF pg_stat_activity
LANGUAGE sql
SECURITY DEFINER
AS 'SELECT * FROM pg_catalog.pg_stat_activity;';`

	statementsFunctionSQL = `
CREATE OR REPLACE FUNCTION otel_monitor.statements()
RETURNS SETOF pg_stat_statements
LANGUAGE sql
SECURITY DEFINER
AS 'SELECT * FROM pg_stat_statements;';`

	explainFunctionSQL = `
CREATE OR REPLACE FUNCTION otel_monitor.explain_statement(
    l_query TEXT,
    OUT explain JSON
)
RETURNS SETOF JSON
LANGUAGE plpgsql
SECURITY DEFINER
AS $$
DECLARE
    curs REFCURSOR;
    plan JSON;
BEGIN
    OPEN curs FOR EXECUTE pg_catalog.concat('EXPLAIN (FORMAT JSON) ', l_query);
    FETCH curs INTO plan;
    CLOSE curs;
    RETURN QUERY SELECT plan;
END;
$$;`

	blockingViewSQL = `
CREATE OR REPLACE VIEW otel_monitor.blocking_queries AS
SELECT
    blocked_activity.datname AS database,
    blocked_locks.pid AS blocked_pid,
    blocked_activity.usename AS blocked_user,
    blocked_activity.query AS blocked_query,
    blocked_activity.query_start AS blocked_query_start,
    blocking_locks.pid AS blocking_pid,
    blocking_activity.usename AS blocking_user,
    blocking_activity.query AS blocking_query,
    blocked_locks.locktype AS lock_type
FROM pg_catalog.pg_locks blocked_locks
JOIN pg_catalog.pg_stat_activity blocked_activity
    ON blocked_activity.pid = blocked_locks.pid
JOIN pg_catalog.pg_locks blocking_locks
    ON blocking_locks.locktype = blocked_locks.locktype
    AND blocking_locks.database IS NOT DISTINCT FROM blocked_locks.database
    AND blocking_locks.relation IS NOT DISTINCT FROM blocked_locks.relation
    AND blocking_locks.pid != blocked_locks.pid
JOIN pg_catalog.pg_stat_activity blocking_activity
    ON blocking_activity.pid = blocking_locks.pid
WHERE NOT blocked_locks.granted;`

	grantFunctionsSQL = `
GRANT EXECUTE ON ALL FUNCTIONS IN SCHEMA otel_monitor TO otel_monitor;
GRANT SELECT ON otel_monitor.blocking_queries TO otel_monitor;`
)

// setupStatements in apply order. Each statement is idempotent so Setup can
// run on every deploy.
var setupStatements = []struct {
	name string
	sql  string
}{
	{"create monitoring role", createRoleSQL},
	{"grant pg_monitor", grantMonitorSQL},
	{"create pg_stat_statements extension", createExtensionSQL},
	{"create otel_monitor schema", createSchemaSQL},
	{"grant schema usage", grantSchemaSQL},
	{"create activity function", activityFunctionSQL},
	{"create statements function", statementsFunctionSQL},
	{"create explain function", explainFunctionSQL},
	{"create blocking queries view", blockingViewSQL},
	{"grant function execute", grantFunctionsSQL},
}

// Setup applies the monitoring DDL. The connection must have privileges to
// create roles and extensions (rds_superuser or equivalent).
func Setup(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range setupStatements {
		if err := db.WithContext(ctx).Exec(stmt.sql).Error; err != nil {
			return fmt.Errorf("dbm setup failed at %q: %w", stmt.name, err)
		}
		logger.Logger.Info("Applied DBM setup statement", zap.String("statement", stmt.name))
	}

	logger.Logger.Info("DBM setup complete, otel_monitor schema ready")
	return nil
}
