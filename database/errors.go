package database

import (
	"errors"

	mysql "github.com/go-sql-driver/mysql"
)

// IsDuplicateEntry MySQL 1062，违反唯一约束
func IsDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
