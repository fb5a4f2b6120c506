package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"imonitor/internal/config"
	"imonitor/internal/events"
	"imonitor/internal/model"
	"imonitor/internal/store"
)

var (
	// ErrUnknownToken reports an operation against a token that was never
	// issued or has already been deleted.
	ErrUnknownToken = errors.New("unknown token")

	// ErrStorageUnavailable reports that the store could not complete an
	// operation. Not retried here; surfaced upward as a server error.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	tokenBytes      = 20
	tokenRetryLimit = 5
)

// Service enforces the reporting protocol on top of the store. It is
// stateless between calls; concurrency is delegated to the storage engine.
type Service struct {
	store  *store.Store
	events *events.Publisher
	cfg    *config.Config
	logger *logrus.Entry
}

// NewService creates a new registry service
func NewService(st *store.Store, pub *events.Publisher, cfg *config.Config, logger *logrus.Entry) *Service {
	return &Service{
		store:  st,
		events: pub,
		cfg:    cfg,
		logger: logger.WithField("component", "registry"),
	}
}

// Reservation is the result of reserving a node: a freshly minted identity,
// its credential, and a ready-to-run bootstrap command.
type Reservation struct {
	ID      string `json:"id"`
	Token   string `json:"token"`
	Command string `json:"command"`
}

// NodeView decorates a stored node with its derived status for read paths.
type NodeView struct {
	model.Node
	Status model.NodeStatus `json:"status"`
}

// ReportInput carries one report payload into the registry.
type ReportInput struct {
	Token     string
	Hostname  *string
	IPAddress string
	Meta      datatypes.JSON
	Metrics   datatypes.JSON
}

// Reserve mints a node identity and token and persists the empty record.
// Token collisions are recovered locally by regenerating; after
// tokenRetryLimit attempts the failure is treated as storage-level.
func (s *Service) Reserve(ctx context.Context, label string) (*Reservation, error) {
	for attempt := 0; attempt < tokenRetryLimit; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}

		node := &model.Node{
			ID:        uuid.New().String(),
			Token:     token,
			Label:     label,
			CreatedAt: time.Now().Unix(),
		}

		err = s.store.Insert(ctx, node)
		if errors.Is(err, store.ErrTokenConflict) {
			s.logger.Warnf("Token collision on attempt %d, regenerating", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		s.events.Publish(ctx, events.Event{
			Type:   events.EventNodeReserved,
			NodeID: node.ID,
			At:     node.CreatedAt,
		})

		return &Reservation{
			ID:      node.ID,
			Token:   token,
			Command: s.bootstrapCommand(token),
		}, nil
	}

	return nil, fmt.Errorf("%w: token collision persisted after %d attempts", ErrStorageUnavailable, tokenRetryLimit)
}

// ListWithStatus returns all nodes in registration order, each annotated with
// the status derived at the given instant. Read-only.
func (s *Service) ListWithStatus(ctx context.Context, now int64) ([]NodeView, error) {
	nodes, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	views := make([]NodeView, 0, len(nodes))
	timeout := int64(s.cfg.OfflineTimeoutSec)
	for _, n := range nodes {
		views = append(views, NodeView{
			Node:   n,
			Status: n.StatusAt(now, timeout),
		})
	}
	return views, nil
}

// IngestReport validates the token and applies the report snapshot. Replaying
// an identical payload leaves the record unchanged except for last_seen.
func (s *Service) IngestReport(ctx context.Context, in ReportInput, now int64) error {
	node, err := s.store.FindByToken(ctx, in.Token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownToken
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := s.store.UpdateReport(ctx, in.Token, in.Hostname, in.IPAddress, in.Meta, in.Metrics, now); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	hostname := node.Hostname
	if in.Hostname != nil {
		hostname = *in.Hostname
	}
	s.events.Publish(ctx, events.Event{
		Type:     events.EventNodeReport,
		NodeID:   node.ID,
		Hostname: hostname,
		At:       now,
	})

	return nil
}

// Deregister permanently removes the node behind the token.
func (s *Service) Deregister(ctx context.Context, token string) error {
	node, err := s.store.FindByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownToken
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.events.Publish(ctx, events.Event{
		Type:     events.EventNodeDeleted,
		NodeID:   node.ID,
		Hostname: node.Hostname,
		At:       time.Now().Unix(),
	})

	return nil
}

func (s *Service) bootstrapCommand(token string) string {
	base := strings.TrimRight(s.cfg.PublicURL, "/")
	return fmt.Sprintf("curl -fsSL %s/install.sh | bash -s -- --token=%s --endpoint=%s", base, token, base)
}

// generateToken returns a 40-character hex credential from 20 random bytes.
func generateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
