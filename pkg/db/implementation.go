package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoReport is returned by LatestReport before anything has been saved.
var ErrNoReport = errors.New("no convergence report")

type database struct {
	db *gorm.DB
}

// New creates a new database connection
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: NewLogger(logrus.GetLevel().String()),
		}
	}

	var db *gorm.DB
	var err error

	switch dialect {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), config)
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), config)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&RuntimeSetting{},
		&Report{},
	); err != nil {
		return nil, err
	}

	d := &database{
		db: db,
	}
	return d, nil
}

func (d *database) VMIP(ctx context.Context) (string, error) {
	setting := RuntimeSetting{}
	sql := d.db.WithContext(ctx).Where("name = ?", settingVMIP).Limit(1).Find(&setting)
	return setting.Value, sql.Error
}

func (d *database) SetVMIP(ctx context.Context, ip string) error {
	sql := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&RuntimeSetting{
		Name:      settingVMIP,
		Value:     ip,
		UpdatedAt: time.Now(),
	})
	return sql.Error
}

func (d *database) SaveReport(ctx context.Context, kind string, resp *model.ConvergenceResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	sql := d.db.WithContext(ctx).Create(&Report{
		Kind:   kind,
		Status: string(resp.Status),
		Body:   string(body),
	})
	return sql.Error
}

// LatestReport returns the newest report of kind, or of any kind when kind is empty.
func (d *database) LatestReport(ctx context.Context, kind string) (*model.ConvergenceResponse, time.Time, error) {
	var reports []Report
	q := d.db.WithContext(ctx).Model(&Report{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	sql := q.Order("id desc").Limit(1).Find(&reports)
	if sql.Error != nil {
		return nil, time.Time{}, sql.Error
	}
	if len(reports) == 0 {
		return nil, time.Time{}, ErrNoReport
	}

	resp := &model.ConvergenceResponse{}
	if err := json.Unmarshal([]byte(reports[0].Body), resp); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding report %d: %w", reports[0].ID, err)
	}
	return resp, reports[0].CreatedAt, nil
}

// PurgeReports hard deletes reports older than maxAge and returns how many went.
func (d *database) PurgeReports(maxAge time.Duration) (int64, error) {
	sql := d.db.Unscoped().Where("created_at < ?", time.Now().Add(-maxAge)).Delete(&Report{})
	return sql.RowsAffected, sql.Error
}
