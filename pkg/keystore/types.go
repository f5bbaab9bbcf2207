package keystore

import (
	"context"
	"time"

	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// ReferenceSource answers the last accepted transaction of an address.
	// It is the boundary to the network layer.
	ReferenceSource interface {
		LastReference(ctx context.Context, address string) (tx.Reference, error)
	}
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

type nopMetrics struct{}

func (nopMetrics) Observe(string, error, time.Time) {}
