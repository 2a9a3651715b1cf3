package main

import "time"

const (
	txQueueSize       = 1024 // capacity of async TX ring
	serialReadBufSize = 4096 // per read() buffer for the serial backend
	rxBackoffMin      = 20 * time.Millisecond
	rxBackoffMax      = 500 * time.Millisecond
	// heartbeatInterval paces the builder's HEARTBEAT emission on the TX path.
	heartbeatInterval = time.Second
)
