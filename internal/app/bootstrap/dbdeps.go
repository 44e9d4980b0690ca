// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/filescout/internal/app/store/pgaccounts"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every later hook, so the components
// built in Startup hang off the shared *Runtime.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Postgres is set only when accounts_backend is postgres.
	Postgres *pgaccounts.Store

	Runtime *Runtime
}
