package database

import "embed"

// MigrationFS 嵌入 SQL 迁移文件
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
