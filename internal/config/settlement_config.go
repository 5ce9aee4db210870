package config

import "time"

const (
	// Scheduling
	DefaultSettlementInterval  = 1 * time.Minute
	DefaultNotifyRetryInterval = 5 * time.Minute
	MaxJobInterval             = 10 * time.Minute

	// Every external call (live store, durable store, channel send) gets this budget
	DefaultCallTimeout = 10 * time.Second

	// Live store
	LiveAuctionKeyPrefix = "auctions/"

	// Scheduler shutdown
	StopWaitTimeout = 30 * time.Second

	// Admin tokens
	AdminTokenIssuer = "auctionhouse-admin"
	AdminRole        = "admin"
	DefaultTokenTTL  = 24 * time.Hour
)
