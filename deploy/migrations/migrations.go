package migrations

import "embed"

// Files 暴露描述符存储的 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
