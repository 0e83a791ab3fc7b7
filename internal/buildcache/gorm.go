package buildcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// HashGorm is the build_hash table row.
type HashGorm struct {
	BlockID string `gorm:"column:block_id;type:varchar(255);primaryKey"`
	Data    []byte `gorm:"column:data;type:longblob"`
}

func (h HashGorm) TableName() string {
	return "build_hash"
}

// GormStore keeps records in a SQL table through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens or creates a sqlite database file.
func OpenSQLite(path string) (*GormStore, error) {
	return openGorm(sqlite.Open(path), false)
}

// OpenMySQL connects to a MySQL server with a go-sql-driver DSN.
func OpenMySQL(dsn string) (*GormStore, error) {
	return openGorm(mysql.Open(dsn), true)
}

func openGorm(dialector gorm.Dialector, pooled bool) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	if pooled {
		sqlDb, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql db open: %w", err)
		}
		sqlDb.SetMaxIdleConns(2)
		sqlDb.SetMaxOpenConns(4)
		sqlDb.SetConnMaxLifetime(time.Hour)
	}
	if err := db.AutoMigrate(new(HashGorm)); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, blockID string) (*Record, error) {
	row := new(HashGorm)
	err := s.db.WithContext(ctx).Where("block_id = ?", recordKey(blockID)).First(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r := new(Record)
	if err := msgpack.Unmarshal(row.Data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *GormStore) Put(ctx context.Context, r *Record) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&HashGorm{BlockID: recordKey(r.BlockID), Data: data}).Error
}

func (s *GormStore) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
