package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shipsync/internal/features/shipments/domain"
	"shipsync/internal/features/shipments/ports"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// shipmentRow is the mysql representation of one shipment record.
// Events are stored as a JSON blob; identity-based dedup happens in the
// domain before the row is written.
type shipmentRow struct {
	OrderKey     string    `gorm:"column:order_key;primaryKey;size:64"`
	Version      int64     `gorm:"column:version;not null"`
	ShipmentID   string    `gorm:"column:shipment_id;size:64;index"`
	AWB          string    `gorm:"column:awb;size:64;index"`
	CourierName  string    `gorm:"column:courier_name;size:128"`
	Status       int       `gorm:"column:status;not null"`
	StatusKnown  bool      `gorm:"column:status_known;not null"`
	TrackURL     string    `gorm:"column:track_url;size:512"`
	Events       string    `gorm:"column:events;type:json"`
	LastSyncedAt time.Time `gorm:"column:last_synced_at;index"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName maps the row to the shipment_states table.
func (shipmentRow) TableName() string {
	return "shipment_states"
}

// MySQLStore implements ports.OrderStore on the storefront's mysql,
// with optimistic locking on the version column.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore opens the DSN and migrates the shipment_states table.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	if err := db.AutoMigrate(&shipmentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate shipment_states: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// Get returns the record for an order key.
func (s *MySQLStore) Get(ctx context.Context, orderKey string) (*ports.Record, error) {
	var row shipmentRow
	err := s.db.WithContext(ctx).First(&row, "order_key = ?", orderKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", orderKey, err)
	}
	return rowToRecord(row)
}

// FindByIdentifier resolves an order key, AWB or shipment id to its record.
func (s *MySQLStore) FindByIdentifier(ctx context.Context, identifier string) (*ports.Record, error) {
	var row shipmentRow
	err := s.db.WithContext(ctx).
		Where("order_key = ? OR awb = ? OR shipment_id = ?", identifier, identifier, identifier).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identifier %s: %w", identifier, err)
	}
	return rowToRecord(row)
}

// CompareAndSwap writes state guarded by the version column. Version 0
// inserts; a duplicate key on insert or zero rows on update means another
// writer won the race.
func (s *MySQLStore) CompareAndSwap(ctx context.Context, orderKey string, expectedVersion int64, state domain.ShipmentState) error {
	row, err := recordToRow(orderKey, expectedVersion+1, state)
	if err != nil {
		return err
	}

	if expectedVersion == 0 {
		err := s.db.WithContext(ctx).Create(&row).Error
		if err != nil && isDuplicateKey(err) {
			return ports.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to create record %s: %w", orderKey, err)
		}
		return nil
	}

	res := s.db.WithContext(ctx).
		Model(&shipmentRow{}).
		Where("order_key = ? AND version = ?", orderKey, expectedVersion).
		Updates(map[string]interface{}{
			"version":        row.Version,
			"shipment_id":    row.ShipmentID,
			"awb":            row.AWB,
			"courier_name":   row.CourierName,
			"status":         row.Status,
			"status_known":   row.StatusKnown,
			"track_url":      row.TrackURL,
			"events":         row.Events,
			"last_synced_at": row.LastSyncedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update record %s: %w", orderKey, res.Error)
	}
	if res.RowsAffected == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

// SelectSyncCandidates returns up to limit stale or incomplete records,
// most-recently-updated first.
func (s *MySQLStore) SelectSyncCandidates(ctx context.Context, lookback time.Duration, limit int) ([]ports.Record, error) {
	cutoff := time.Now().Add(-lookback)

	var rows []shipmentRow
	err := s.db.WithContext(ctx).
		Where("last_synced_at < ? OR awb = '' OR status_known = ?", cutoff, false).
		Order("last_synced_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select sync candidates: %w", err)
	}

	records := make([]ports.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Ping checks database connectivity.
func (s *MySQLStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// rowToRecord converts a mysql row into a port record.
func rowToRecord(row shipmentRow) (*ports.Record, error) {
	var events []domain.ShipmentEvent
	if row.Events != "" {
		if err := json.Unmarshal([]byte(row.Events), &events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events for %s: %w", row.OrderKey, err)
		}
	}

	return &ports.Record{
		OrderKey: row.OrderKey,
		Version:  row.Version,
		State: domain.ShipmentState{
			ShipmentID:   row.ShipmentID,
			AWB:          row.AWB,
			CourierName:  row.CourierName,
			Status:       domain.CanonicalStatus(row.Status),
			StatusKnown:  row.StatusKnown,
			TrackURL:     row.TrackURL,
			Events:       events,
			LastSyncedAt: row.LastSyncedAt,
		},
	}, nil
}

// recordToRow converts state into its mysql representation.
func recordToRow(orderKey string, version int64, state domain.ShipmentState) (shipmentRow, error) {
	events, err := json.Marshal(state.Events)
	if err != nil {
		return shipmentRow{}, fmt.Errorf("failed to marshal events for %s: %w", orderKey, err)
	}

	return shipmentRow{
		OrderKey:     orderKey,
		Version:      version,
		ShipmentID:   state.ShipmentID,
		AWB:          state.AWB,
		CourierName:  state.CourierName,
		Status:       int(state.Status),
		StatusKnown:  state.StatusKnown,
		TrackURL:     state.TrackURL,
		Events:       string(events),
		LastSyncedAt: state.LastSyncedAt,
	}, nil
}

// isDuplicateKey detects a primary key collision on insert.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

var _ ports.OrderStore = (*MySQLStore)(nil)
