// Пакет migrations: SQL-миграции схемы архива, встроенные в бинарь.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
