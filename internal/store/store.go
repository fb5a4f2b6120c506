package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"imonitor/internal/model"
)

var (
	// ErrTokenConflict reports that an insert collided with an existing token.
	ErrTokenConflict = errors.New("token already exists")

	// ErrNotFound reports that no node matches the given token.
	ErrNotFound = errors.New("node not found")
)

// Store persists Node records. Every mutation is committed before the call
// returns; reads reflect all prior committed writes.
type Store struct {
	db *gorm.DB
}

// New creates a new node store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns all nodes in stable registration order.
func (s *Store) List(ctx context.Context) ([]model.Node, error) {
	var nodes []model.Node
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

// Insert persists a freshly reserved node. Returns ErrTokenConflict when the
// token is already taken so the caller can regenerate and retry.
func (s *Store) Insert(ctx context.Context, node *model.Node) error {
	if err := s.db.WithContext(ctx).Create(node).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTokenConflict
		}
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

// FindByToken returns the node authenticated by token, or ErrNotFound.
func (s *Store) FindByToken(ctx context.Context, token string) (*model.Node, error) {
	var node model.Node
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node by token: %w", err)
	}
	return &node, nil
}

// UpdateReport applies one accepted report as a single UPDATE statement so the
// record always reflects one coherent snapshot. Hostname is kept when the
// report omits it; label is filled from hostname only while still empty;
// ip_address, meta and metrics are replaced wholesale, never merged. Silently
// a no-op when the token does not exist; callers needing a 404 must validate
// existence first.
func (s *Store) UpdateReport(ctx context.Context, token string, hostname *string, ipAddress string, meta, metrics datatypes.JSON, now int64) error {
	err := s.db.WithContext(ctx).Model(&model.Node{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"hostname":   gorm.Expr("COALESCE(?, hostname)", hostname),
			"label":      gorm.Expr("CASE WHEN label IS NULL OR label = '' THEN COALESCE(?, label) ELSE label END", hostname),
			"ip_address": ipAddress,
			"meta":       meta,
			"metrics":    metrics,
			"last_seen":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update node report: %w", err)
	}
	return nil
}

// Delete removes the node authenticated by token; a no-op if absent.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Node{}).Error; err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}
