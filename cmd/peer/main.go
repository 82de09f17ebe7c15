package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/config"
	"github.com/DoyleJ11/floorclash/internal/console"
	"github.com/DoyleJ11/floorclash/internal/display"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/lobby"
	"github.com/DoyleJ11/floorclash/internal/logging"
	"github.com/DoyleJ11/floorclash/internal/ws"
)

var errQuit = errors.New("quit")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Session == "" {
		return errors.New("FLOORCLASH_SESSION is required")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	peer, err := ws.Dial(ctx, cfg.HostURL, cfg.Session, log)
	if err != nil {
		return err
	}

	layout := arena.DefaultLayout()
	world := arena.New(layout)
	board := display.NewBoard(log)
	m := engine.NewMachine(engine.Options{
		Self:       peer.ID(),
		Rules:      cfg.Rules(),
		Roster:     layout.Roster(),
		Replicator: peer.Replicator(),
		World:      world,
		Presenter:  board,
		Rand:       engine.NewRand(cfg.Seed),
		Logger:     log,
	})

	g, ctx := errgroup.WithContext(ctx)
	lb := lobby.NewLobby(ctx, m, lobby.Config{
		TickRate: cfg.TickRate,
		Board:    board,
		Arena:    world,
		Logger:   log,
	})
	for _, id := range peer.Participants() {
		if err := lb.Send(ctx, lobby.Connected{ID: id}); err != nil {
			return multierr.Append(err, peer.Close())
		}
	}
	// The roster must be applied before the first routed call arrives.
	if _, err := lb.State(ctx); err != nil {
		return multierr.Append(err, peer.Close())
	}

	g.Go(func() error { return peer.Run(ctx, lb) })
	g.Go(func() error { return repl(ctx, lb, os.Stdin, os.Stdout) })

	err = g.Wait()
	if errors.Is(err, errQuit) {
		err = nil
	}
	<-lb.Done()
	log.Info("left session", zap.String("code", cfg.Session))
	return err
}

// repl feeds console commands to the lobby until quit, EOF or ctx ends.
func repl(ctx context.Context, lb *lobby.Lobby, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, console.Help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			cmd, err := console.Parse(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			switch {
			case cmd.Quit:
				return errQuit
			case cmd.ShowState:
				v, err := lb.State(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(out, console.Describe(v))
			case cmd.Msg != nil:
				if err := lb.Send(ctx, cmd.Msg); err != nil {
					return err
				}
			}
		}
	}
}
