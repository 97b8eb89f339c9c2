// internal/config/database.go
package config

import (
	"fmt"
)

// DSN builds the postgres connection string for gorm.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=10",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
