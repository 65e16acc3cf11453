package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
	"github.com/elee1766/gozfs/pkg/zfsctl"
)

const (
	DatasetServiceName = "gozfs.v1.DatasetService"

	DatasetListProcedure     = "/" + DatasetServiceName + "/List"
	DatasetGetProcedure      = "/" + DatasetServiceName + "/Get"
	DatasetSnapshotProcedure = "/" + DatasetServiceName + "/Snapshot"
	DatasetDestroyProcedure  = "/" + DatasetServiceName + "/Destroy"
)

type DatasetHandler struct {
	logger  *slog.Logger
	manager *zfsctl.Manager
}

func NewDatasetHandler(logger *slog.Logger, manager *zfsctl.Manager) *DatasetHandler {
	return &DatasetHandler{
		logger:  logger.With("handler", "dataset"),
		manager: manager,
	}
}

// NewDatasetServiceHandler returns the path prefix and handler serving h.
func NewDatasetServiceHandler(h *DatasetHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(DatasetListProcedure, connect.NewUnaryHandler(DatasetListProcedure, h.List, opts...))
	mux.Handle(DatasetGetProcedure, connect.NewUnaryHandler(DatasetGetProcedure, h.Get, opts...))
	mux.Handle(DatasetSnapshotProcedure, connect.NewUnaryHandler(DatasetSnapshotProcedure, h.Snapshot, opts...))
	mux.Handle(DatasetDestroyProcedure, connect.NewUnaryHandler(DatasetDestroyProcedure, h.Destroy, opts...))
	return "/" + DatasetServiceName + "/", mux
}

func parseNames(names []string) ([]zfs.Resource, error) {
	out := make([]zfs.Resource, 0, len(names))
	for _, n := range names {
		r, err := zfs.FromName(n, "", nil)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// parseSort reads "prop" as ascending and "-prop" as descending.
func parseSort(keys []string) []args.SortKey {
	out := make([]args.SortKey, 0, len(keys))
	for _, k := range keys {
		desc := strings.HasPrefix(k, "-")
		out = append(out, args.SortKey{Property: strings.TrimPrefix(k, "-"), Descending: desc})
	}
	return out
}

func resourcesOf(rs []zfs.Resource) []Resource {
	out := make([]Resource, 0, len(rs))
	for _, r := range rs {
		out = append(out, resourceOf(r))
	}
	return out
}

func (h *DatasetHandler) List(
	ctx context.Context,
	req *connect.Request[ListRequest],
) (*connect.Response[ListResponse], error) {
	h.logger.Debug("list", "roots", req.Msg.Roots, "types", req.Msg.Types)

	roots, err := parseNames(req.Msg.Roots)
	if err != nil {
		return nil, connectError(err)
	}
	res, err := h.manager.List(ctx, args.ListOptions{
		Roots:      roots,
		Types:      req.Msg.Types,
		Recursive:  req.Msg.Recursive,
		Depth:      req.Msg.Depth,
		Properties: req.Msg.Properties,
		Sort:       parseSort(req.Msg.Sort),
		Parsable:   true,
	})
	if err != nil {
		h.logger.Error("failed to list", "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&ListResponse{Resources: resourcesOf(res)}), nil
}

func (h *DatasetHandler) Get(
	ctx context.Context,
	req *connect.Request[GetRequest],
) (*connect.Response[GetResponse], error) {
	h.logger.Debug("get", "targets", req.Msg.Targets, "properties", req.Msg.Properties)

	if len(req.Msg.Targets) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("targets is required"))
	}
	targets, err := parseNames(req.Msg.Targets)
	if err != nil {
		return nil, connectError(err)
	}
	res, err := h.manager.Get(ctx, args.GetOptions{
		Targets:    targets,
		Properties: req.Msg.Properties,
		Sources:    req.Msg.Sources,
		Recursive:  req.Msg.Recursive,
		Depth:      req.Msg.Depth,
		Parsable:   true,
	})
	if err != nil {
		h.logger.Error("failed to get properties", "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetResponse{Resources: resourcesOf(res)}), nil
}

func (h *DatasetHandler) Snapshot(
	ctx context.Context,
	req *connect.Request[SnapshotRequest],
) (*connect.Response[SnapshotResponse], error) {
	h.logger.Debug("snapshot", "dataset", req.Msg.Dataset, "name", req.Msg.Name)

	if req.Msg.Dataset == "" || req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("dataset and name are required"))
	}
	ds, err := zfs.NewDataset(req.Msg.Dataset, nil)
	if err != nil {
		return nil, connectError(err)
	}
	s, err := h.manager.Snapshot(ctx, ds, req.Msg.Name, zfs.Values(req.Msg.Properties), req.Msg.Recursive)
	if err != nil {
		h.logger.Error("failed to snapshot", "dataset", req.Msg.Dataset, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&SnapshotResponse{Snapshot: resourceOf(s)}), nil
}

func (h *DatasetHandler) Destroy(
	ctx context.Context,
	req *connect.Request[DestroyRequest],
) (*connect.Response[DestroyResponse], error) {
	h.logger.Debug("destroy", "target", req.Msg.Target, "confirm", req.Msg.Confirm)

	opts := args.DestroyOptions{
		Confirm:   req.Msg.Confirm,
		Recursive: req.Msg.Recursive,
		Clones:    req.Msg.Clones,
	}
	destroyed, err := h.manager.DestroyName(ctx, req.Msg.Target, opts)
	if err != nil {
		h.logger.Error("failed to destroy", "target", req.Msg.Target, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&DestroyResponse{
		Destroyed: destroyed,
		DryRun:    !req.Msg.Confirm || h.manager.Runner().DryRun(),
	}), nil
}
