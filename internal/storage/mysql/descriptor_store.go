package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"MicroFrontend-Portal/internal/descriptor"
	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/pkg/plugin"
)

// DescriptorStore 使用 plugin_descriptors 与 plugin_routes 两张表保存描述符。
type DescriptorStore struct {
	db *sql.DB
}

var (
	_ descriptor.Store  = (*DescriptorStore)(nil)
	_ descriptor.Writer = (*DescriptorStore)(nil)
)

// NewDescriptorStore 创建连接池并执行迁移。
func NewDescriptorStore(ctx context.Context, cfg Config) (*DescriptorStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open descriptor database")
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "migrate descriptor database")
	}
	return &DescriptorStore{db: db}, nil
}

// List 按写入顺序返回全部描述符及其路由。
func (s *DescriptorStore) List(ctx context.Context) ([]plugin.Descriptor, error) {
	items, err := s.listDescriptors(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := s.listRoutes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Routes = routes[items[i].Name]
		if items[i].Routes == nil {
			items[i].Routes = []plugin.RouteDescriptor{}
		}
	}
	return items, nil
}

func (s *DescriptorStore) listDescriptors(ctx context.Context) ([]plugin.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, entry FROM plugin_descriptors ORDER BY position, name`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询插件描述符失败")
	}
	defer rows.Close()

	items := []plugin.Descriptor{}
	for rows.Next() {
		var d plugin.Descriptor
		if err := rows.Scan(&d.Name, &d.Entry); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析插件描述符失败")
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历插件描述符失败")
	}
	return items, nil
}

func (s *DescriptorStore) listRoutes(ctx context.Context) (map[string][]plugin.RouteDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT descriptor_name, path, component FROM plugin_routes
        ORDER BY descriptor_name, position`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询插件路由失败")
	}
	defer rows.Close()

	routes := make(map[string][]plugin.RouteDescriptor)
	for rows.Next() {
		var name string
		var r plugin.RouteDescriptor
		if err := rows.Scan(&name, &r.Path, &r.Component); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析插件路由失败")
		}
		routes[name] = append(routes[name], r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历插件路由失败")
	}
	return routes, nil
}

// Save 在一个事务内整体替换描述符列表。
func (s *DescriptorStore) Save(ctx context.Context, descriptors []plugin.Descriptor) error {
	if err := descriptor.Validate(descriptors); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启事务失败")
	}
	if err := saveDescriptors(ctx, tx, descriptors); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交事务失败")
	}
	return nil
}

func saveDescriptors(ctx context.Context, tx *sql.Tx, descriptors []plugin.Descriptor) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM plugin_routes`); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "清理插件路由失败")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plugin_descriptors`); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "清理插件描述符失败")
	}

	now := time.Now().Unix()
	for i, d := range descriptors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plugin_descriptors (name, entry, position, updated_at) VALUES (?, ?, ?, ?)`,
			d.Name, d.Entry, i, now); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("写入插件 %s 失败", d.Name))
		}
		for j, r := range d.Routes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO plugin_routes (descriptor_name, position, path, component) VALUES (?, ?, ?, ?)`,
				d.Name, j, r.Path, r.Component); err != nil {
				return xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("写入插件 %s 路由失败", d.Name))
			}
		}
	}
	return nil
}

// Close 关闭底层数据库连接。
func (s *DescriptorStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
