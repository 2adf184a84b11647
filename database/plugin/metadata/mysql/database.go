// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/tally/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// errUnknownDatabase is the server error number for a missing schema
const errUnknownDatabase = 1049

// MetadataStoreMysql keeps governance state in a MySQL database
type MetadataStoreMysql struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
}

// New creates a store from individual connection settings. The connection
// is opened by Start.
func New(
	host string,
	port uint,
	user string,
	password string,
	database string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreMysql, error) {
	return NewWithOptions(
		WithHost(host),
		WithPort(port),
		WithUser(user),
		WithPassword(password),
		WithDatabase(database),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(db)
	}
	// Set defaults after options are applied
	if db.host == "" {
		db.host = "localhost"
	}
	if db.port == 0 {
		db.port = 3306
	}
	if db.user == "" {
		db.user = "root"
	}
	if db.database == "" {
		db.database = "tally"
	}
	if db.timeZone == "" {
		db.timeZone = "UTC"
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// driverConfig returns the parsed DSN when one is set, otherwise a config
// built from the individual connection settings
func (d *MetadataStoreMysql) driverConfig() (*mysql.Config, error) {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		return cfg, nil
	}
	cfg := mysql.NewConfig()
	cfg.User = d.user
	cfg.Passwd = d.password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.host, strconv.FormatUint(uint64(d.port), 10))
	cfg.DBName = d.database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if d.timeZone != "" {
		loc, err := time.LoadLocation(d.timeZone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", d.timeZone, err)
		}
		cfg.Loc = loc
	}
	if d.sslMode != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["tls"] = d.sslMode
	}
	return cfg, nil
}

func openGorm(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

func (d *MetadataStoreMysql) Start() error {
	cfg, err := d.driverConfig()
	if err != nil {
		return err
	}
	metadataDb, err := openGorm(cfg.FormatDSN())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if createErr := d.ensureDatabaseExists(cfg); createErr != nil {
			return errors.Join(err, createErr)
		}
		metadataDb, err = openGorm(cfg.FormatDSN())
		if err != nil {
			return err
		}
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store, err := gormstore.New(metadataDb, d.logger)
	d.Store = store
	return err
}

// ensureDatabaseExists connects without a schema and creates the configured
// one
func (d *MetadataStoreMysql) ensureDatabaseExists(cfg *mysql.Config) error {
	if cfg.DBName == "" {
		return errors.New("no database name configured")
	}
	adminCfg := cfg.Clone()
	adminCfg.DBName = ""
	adminDb, err := openGorm(adminCfg.FormatDSN())
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	d.logger.Info(
		"creating mysql database",
		"component", "database",
		"database", cfg.DBName,
	)
	stmt := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS `%s`",
		strings.ReplaceAll(cfg.DBName, "`", "``"),
	)
	return adminDb.Exec(stmt).Error
}

func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close is safe to call when Start failed or never ran
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
