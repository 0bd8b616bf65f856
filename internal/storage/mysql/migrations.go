package mysql

import (
	"bufio"
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"MicroFrontend-Portal/deploy/migrations"
	"MicroFrontend-Portal/pkg/logger"
)

var embeddedMigrations fs.ReadFileFS = migrations.Files

const createVersionTable = `CREATE TABLE IF NOT EXISTS descriptor_schema_versions (
    version VARCHAR(32) NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`

// migration 对应 deploy/migrations 下的一个 SQL 文件。
type migration struct {
	version    string
	file       string
	statements []string
}

// runMigrations 创建版本表并按版本号依次执行未应用的迁移，每个文件一个事务。
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("创建迁移版本表失败: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	all, err := readMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	log := logger.Named("mysql")
	for _, m := range all {
		if applied[m.version] {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		log.Info("migration applied", "version", m.version, "file", m.file, "statements", len(m.statements))
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM descriptor_schema_versions`)
	if err != nil {
		return nil, fmt.Errorf("查询已应用的迁移失败: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("读取迁移版本失败: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, m migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("迁移 %s 开启事务失败: %w", m.file, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range m.statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("迁移 %s 第 %d 条语句失败: %w", m.file, i+1, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO descriptor_schema_versions (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().Unix()); err != nil {
		return fmt.Errorf("记录迁移 %s 失败: %w", m.file, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交迁移 %s 失败: %w", m.file, err)
	}
	return nil
}

// readMigrations 读取所有 .sql 文件，按版本号排序。文件名形如 0001_name.sql。
func readMigrations(fsys fs.ReadFileFS) ([]migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("列出迁移文件失败: %w", err)
	}

	var out []migration
	for _, file := range files {
		content, err := fsys.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", file, err)
		}
		statements := splitSQLStatements(string(content))
		if len(statements) == 0 {
			continue
		}
		out = append(out, migration{version: migrationVersion(file), file: file, statements: statements})
	}

	slices.SortFunc(out, func(a, b migration) int {
		return cmp.Or(cmp.Compare(a.version, b.version), cmp.Compare(a.file, b.file))
	})
	return out, nil
}

// splitSQLStatements 去掉 -- 注释行后按分号切分语句。
func splitSQLStatements(content string) []string {
	var body strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	var statements []string
	for _, stmt := range strings.Split(body.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func migrationVersion(file string) string {
	name := strings.TrimSuffix(path.Base(file), path.Ext(file))
	version, _, _ := strings.Cut(name, "_")
	return version
}
