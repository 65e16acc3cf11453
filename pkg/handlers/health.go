package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"

	"connectrpc.com/connect"

	"github.com/elee1766/gozfs/pkg/db"
	"github.com/elee1766/gozfs/pkg/db/queries"
	"github.com/elee1766/gozfs/pkg/zfsctl"
)

const (
	HealthServiceName    = "gozfs.v1.HealthService"
	HealthCheckProcedure = "/" + HealthServiceName + "/Check"

	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

type HealthHandler struct {
	logger  *slog.Logger
	manager *zfsctl.Manager
	db      *db.DB
}

func NewHealthHandler(logger *slog.Logger, manager *zfsctl.Manager, db *db.DB) *HealthHandler {
	return &HealthHandler{
		logger:  logger.With("handler", "health"),
		manager: manager,
		db:      db,
	}
}

func NewHealthServiceHandler(h *HealthHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(HealthCheckProcedure, connect.NewUnaryHandler(HealthCheckProcedure, h.Check, opts...))
	return "/" + HealthServiceName + "/", mux
}

// Check reports NOT_SERVING when the zfs binary cannot be found or the
// journal cannot be read.
func (h *HealthHandler) Check(
	ctx context.Context,
	req *connect.Request[HealthRequest],
) (*connect.Response[HealthResponse], error) {
	h.logger.Debug("health check")

	r := h.manager.Runner()
	resp := &HealthResponse{
		Status:  StatusServing,
		Message: "service is healthy",
		DryRun:  r.DryRun(),
		Journal: h.db != nil,
	}

	if _, err := exec.LookPath(r.Bin()); err != nil {
		resp.Status = StatusNotServing
		resp.Message = fmt.Sprintf("zfs binary unavailable: %v", err)
		return connect.NewResponse(resp), nil
	}

	if h.db == nil {
		return connect.NewResponse(resp), nil
	}
	v, err := h.db.GetMigrationVersion()
	if err == nil {
		resp.JournalVersion = v
		resp.Invocations, resp.Failed, err = queries.CountInvocations(ctx, h.db.Conn())
	}
	if err != nil {
		h.logger.Warn("journal unavailable", "error", err)
		resp.Status = StatusNotServing
		resp.Message = fmt.Sprintf("journal unavailable: %v", err)
	}
	return connect.NewResponse(resp), nil
}
