package database

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log"
	"os"

	"creativesync-api/config"

	mysql "github.com/go-sql-driver/mysql"
)

// InitDB 打开数据库连接并建表，连接实例由调用方注入到各控制器
func InitDB(cfg *config.Config) (*sql.DB, error) {
	// TiDB Cloud等托管MySQL要求TLS，按DSN里的tls名称注册配置
	if cfg.DBTLS != "" && cfg.DBTLS != "true" && cfg.DBTLS != "false" && cfg.DBTLS != "skip-verify" {
		pool := x509.NewCertPool()
		if b, err := os.ReadFile(cfg.DBCAPath); err == nil && pool.AppendCertsFromPEM(b) {
			if err := mysql.RegisterTLSConfig(cfg.DBTLS, &tls.Config{RootCAs: pool}); err != nil {
				return nil, fmt.Errorf("register tls config: %w", err)
			}
		} else {
			log.Printf("warning: could not load CA file %s, falling back to InsecureSkipVerify", cfg.DBCAPath)
			if err := mysql.RegisterTLSConfig(cfg.DBTLS, &tls.Config{InsecureSkipVerify: true}); err != nil {
				return nil, fmt.Errorf("register tls config: %w", err)
			}
		}
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return db, nil
}

// ensureSchema 幂等建表。分类名唯一约束由库层保证，关闭并发查重的竞态窗口。
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			image TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price DECIMAL(10,2) NOT NULL,
			category_id BIGINT NULL,
			image TEXT,
			images JSON,
			size JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_products_category (category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(64) NOT NULL,
			address TEXT NOT NULL,
			city VARCHAR(128) NOT NULL,
			county VARCHAR(128) NOT NULL,
			items JSON NOT NULL,
			subtotal DECIMAL(10,2) NOT NULL,
			delivery_fee DECIMAL(10,2) NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_orders_created (created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64),
			address TEXT,
			title VARCHAR(255) NOT NULL,
			year VARCHAR(16),
			medium VARCHAR(255),
			dimensions VARCHAR(255),
			price VARCHAR(64),
			image_url TEXT,
			image_urls JSON,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
