package fastreload

import (
	"context"

	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/resolver"
)

// Publish swaps newConstruct's trees into collab. When diff requires a
// pause (spec.md §4.5, config.RequiresPause), every other worker is
// parked with reload_stop before the swap and released with
// reload_start after. Otherwise the swap happens directly and workers
// only see a reload_nopause_poll barrier afterward, proving none of
// them still holds a pointer into the pre-swap trees.
func Publish(ctx context.Context, collab *resolver.Collaborators, nc *Construct, diff *config.ConfigDiff, tubes []*ipc.WorkerTube) error {
	if config.RequiresPause(diff) {
		return publishPaused(ctx, collab, nc, tubes)
	}
	return publishNoPause(ctx, collab, nc, tubes)
}

func publishPaused(ctx context.Context, collab *resolver.Collaborators, nc *Construct, tubes []*ipc.WorkerTube) error {
	if err := ipc.Fanout(ctx, tubes, ipc.Frame{Kind: ipc.CmdReloadStop}); err != nil {
		return err
	}

	swapTrees(collab, nc)

	return ipc.Fanout(ctx, tubes, ipc.Frame{Kind: ipc.CmdReloadStart})
}

func publishNoPause(ctx context.Context, collab *resolver.Collaborators, nc *Construct, tubes []*ipc.WorkerTube) error {
	swapTrees(collab, nc)

	// The poll barrier forces every worker to observe the swap before
	// the caller is allowed to discard the pre-swap Construct: each
	// worker acks only after it has drained any command already in
	// flight against the old trees.
	return ipc.Fanout(ctx, tubes, ipc.Frame{Kind: ipc.CmdNopausePoll})
}

func swapTrees(collab *resolver.Collaborators, nc *Construct) {
	collab.Views.SwapRoot(nc.Views)
	collab.Forwards.SwapRoot(nc.Forwards)
	collab.Stubs.SwapRoot(nc.Stubs)
	collab.Locals.SwapRoot(nc.Locals)
	collab.Hints = nc.Hints
}
