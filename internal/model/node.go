package model

import (
	"gorm.io/datatypes"
)

// NodeStatus represents derived node liveness. It is never stored; it is
// recomputed from last_seen on every read.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusOnline  NodeStatus = "online"
	NodeStatusOffline NodeStatus = "offline"
)

// Node represents a monitored host. The token is the sole credential an agent
// presents when reporting; meta and metrics are schema-less snapshots replaced
// wholesale on every accepted report.
type Node struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Token     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Label     string         `gorm:"type:varchar(128)" json:"label"`
	Hostname  string         `gorm:"type:varchar(255)" json:"hostname"`
	IPAddress string         `gorm:"type:varchar(64)" json:"ip_address"`
	CreatedAt int64          `gorm:"autoCreateTime;index" json:"created_at"`
	LastSeen  *int64         `json:"last_seen"`
	Meta      datatypes.JSON `gorm:"type:json" json:"meta"`
	Metrics   datatypes.JSON `gorm:"type:json" json:"metrics"`
}

// TableName specifies the table name for Node model
func (Node) TableName() string {
	return "nodes"
}

// StatusAt derives the liveness of the node at the given instant. A node that
// has never reported is pending; a node whose last accepted report is within
// offlineTimeoutSec seconds (inclusive) is online; otherwise offline.
func (n *Node) StatusAt(now int64, offlineTimeoutSec int64) NodeStatus {
	if n.LastSeen == nil {
		return NodeStatusPending
	}
	if now-*n.LastSeen <= offlineTimeoutSec {
		return NodeStatusOnline
	}
	return NodeStatusOffline
}
