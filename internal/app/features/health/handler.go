package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Mongo returns a Pinger for a Mongo client.
func Mongo(client *mongo.Client) Pinger {
	return PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB       Pinger
	Accounts Pinger // relational accounts backend; nil when accounts live in Mongo
	Log      *zap.Logger
}

// NewHandler constructs a health Handler. accounts may be nil.
func NewHandler(db, accounts Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Accounts: accounts,
		Log:      logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Accounts string `json:"accounts,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "accounts":"connected" }
//
// On failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
	}

	if h.Accounts != nil {
		resp.Accounts = "connected"
		if err := h.Accounts.Ping(ctx); err != nil {
			h.Log.Error("health-check: accounts ping failed", zap.Error(err))
			resp.Accounts = "disconnected"
			if resp.Status == "ok" {
				resp.Status = "error"
				resp.Message = "Accounts database unavailable"
				resp.Error = err.Error()
			}
		}
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
