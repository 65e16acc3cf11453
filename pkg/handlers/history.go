package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/elee1766/gozfs/pkg/db"
	"github.com/elee1766/gozfs/pkg/db/queries"
)

const (
	HistoryServiceName   = "gozfs.v1.HistoryService"
	HistoryListProcedure = "/" + HistoryServiceName + "/List"
)

var errJournalDisabled = errors.New("invocation journal is disabled")

type HistoryHandler struct {
	logger *slog.Logger
	db     *db.DB
}

// NewHistoryHandler accepts a nil db when the journal is disabled.
func NewHistoryHandler(logger *slog.Logger, db *db.DB) *HistoryHandler {
	return &HistoryHandler{
		logger: logger.With("handler", "history"),
		db:     db,
	}
}

func NewHistoryServiceHandler(h *HistoryHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(HistoryListProcedure, connect.NewUnaryHandler(HistoryListProcedure, h.List, opts...))
	return "/" + HistoryServiceName + "/", mux
}

func (h *HistoryHandler) List(
	ctx context.Context,
	req *connect.Request[HistoryRequest],
) (*connect.Response[HistoryResponse], error) {
	h.logger.Debug("list history", "subcommand", req.Msg.Subcommand, "failed_only", req.Msg.FailedOnly)

	if h.db == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errJournalDisabled)
	}

	limit := req.Msg.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := queries.ListInvocations(ctx, h.db.Conn(), queries.InvocationFilter{
		Subcommand: req.Msg.Subcommand,
		FailedOnly: req.Msg.FailedOnly,
		Limit:      limit,
	})
	if err != nil {
		h.logger.Error("failed to list invocations", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := &HistoryResponse{Invocations: make([]Invocation, 0, len(rows))}
	for _, row := range rows {
		resp.Invocations = append(resp.Invocations, Invocation{
			ID:        row.ID,
			Args:      row.Args,
			Mode:      row.Mode,
			DryRun:    row.DryRun,
			StartedAt: row.StartedAt,
			Duration:  row.Duration,
			ExitCode:  row.ExitCode,
			Error:     row.Error.String,
		})
	}
	return connect.NewResponse(resp), nil
}
