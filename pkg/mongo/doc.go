// Package mongo provides helpers for connecting to the MongoDB deployment
// that stores credit accounts, transactions, and subscription state.
//
// It wraps the official mongo-driver v2 with:
//
//   - `New` / `NewWithDatabase` constructors that retry the initial
//     connection using the supplied configuration.
//   - A health-check helper for HTTP readiness probes.
//
// The ledger relies on multi-document transactions, so the target deployment
// must be a replica set (a single-node replica set is fine for development).
//
// # Usage
//
//	import (
//	    "github.com/dmitrymomot/creditkit/pkg/config"
//	    "github.com/dmitrymomot/creditkit/pkg/mongo"
//	)
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "creditkit")
//	if err != nil {
//	    // handle error, probably terminate the application
//	}
package mongo
