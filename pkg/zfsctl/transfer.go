package zfsctl

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/elee1766/gozfs/pkg/runner"
	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
)

// Send starts zfs send of source and returns its stream. The caller must
// close the returned source.
func (m *Manager) Send(ctx context.Context, source zfs.Resource, opts args.SendOptions) (*runner.Source, error) {
	a, err := args.Send(source, opts)
	if err != nil {
		return nil, err
	}
	return m.send(ctx, a)
}

// SendResume continues an interrupted receive from its resume token.
func (m *Manager) SendResume(ctx context.Context, token string, embed bool) (*runner.Source, error) {
	a, err := args.SendResume(token, embed)
	if err != nil {
		return nil, err
	}
	return m.send(ctx, a)
}

// SendSaved sends the partially received state saved on ds.
func (m *Manager) SendSaved(ctx context.Context, ds *zfs.Dataset) (*runner.Source, error) {
	return m.send(ctx, args.SendSaved(ds))
}

func (m *Manager) send(ctx context.Context, a args.Args) (*runner.Source, error) {
	m.logger.Debug("starting send", "args", a.String())
	return m.runner.Output(ctx, a)
}

// Receive starts zfs receive into target and returns its input. Closing the
// sink ends the stream and returns the outcome of the receive.
func (m *Manager) Receive(ctx context.Context, target zfs.Resource, opts args.ReceiveOptions) (*runner.Sink, error) {
	a, err := args.Receive(target, opts)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("starting receive", "args", a.String())
	return m.runner.Input(ctx, a)
}

// ReceiveAbort discards the partially received state saved on ds.
func (m *Manager) ReceiveAbort(ctx context.Context, ds *zfs.Dataset) error {
	return m.run(ctx, args.ReceiveAbort(ds))
}

// ReplicateOptions configures both sides of Replicate.
type ReplicateOptions struct {
	Send    args.SendOptions
	Receive args.ReceiveOptions
}

// Replicate pipes zfs send of source into zfs receive into target and
// returns the number of bytes transferred. A failure on either side kills
// the other one.
func (m *Manager) Replicate(ctx context.Context, source, target zfs.Resource, opts ReplicateOptions) (int64, error) {
	sendArgs, err := args.Send(source, opts.Send)
	if err != nil {
		return 0, err
	}
	recvArgs, err := args.Receive(target, opts.Receive)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	sink, err := m.runner.Input(gctx, recvArgs)
	if err != nil {
		return 0, err
	}
	src, err := m.runner.Output(gctx, sendArgs)
	if err != nil {
		cancel()
		_ = sink.Close()
		return 0, err
	}

	m.logger.Info("replicating", "source", source.Name(), "target", target.Name())
	var n int64
	g.Go(func() error {
		var err error
		n, err = io.Copy(sink, src)
		if err != nil {
			return fmt.Errorf("failed to copy stream: %w", err)
		}
		if err := src.Close(); err != nil {
			return err
		}
		return sink.Close()
	})
	err = g.Wait()
	// after a failure the remaining verdicts only report the killed process
	_ = src.Close()
	_ = sink.Close()
	if err != nil {
		m.logger.Warn("replication failed", "source", source.Name(), "target", target.Name(), "bytes", n, "error", err)
		return n, err
	}
	m.logger.Info("replicated", "source", source.Name(), "target", target.Name(), "bytes", n)
	return n, nil
}
