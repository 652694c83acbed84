package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/webchess/internal/adapter/chesspresenter"
	"github.com/park285/webchess/internal/client"
	"github.com/park285/webchess/internal/msgcat"
	"github.com/park285/webchess/pkg/chessdto"
)

const usage = `usage: webchessctl <command> [args]

commands:
  state                     show the current position
  start [player]            start a new game
  reset                     discard the current game
  moves <square>            list legal moves from a square
  move <uci> [difficulty]   play a move (easy|medium|hard)
  logs                      print the result log
  board [file.png]          save the board image (default board.png)
  health                    show server and engine status
  watch [seconds]           follow live events (0 = until interrupted)

environment:
  WEBCHESS_URL      server base URL (default http://localhost:5000)
  WEBCHESS_WS_URL   event feed URL, e.g. ws://localhost:5001/ws
  WEBCHESS_PLAYER   player name sent with moves`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	baseURL := strings.TrimSpace(os.Getenv("WEBCHESS_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	msgs, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		log.Fatalf("messages: %v", err)
	}
	formatter := chesspresenter.NewFormatter(msgs)
	c := client.NewClient(baseURL, client.WithTimeout(8*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(ctx, c, formatter, cmd, args); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func run(ctx context.Context, c *client.Client, f *chesspresenter.Formatter, cmd string, args []string) error {
	switch cmd {
	case "state":
		state, err := c.State(ctx)
		if err != nil {
			return err
		}
		fmt.Println(f.State(*state))
	case "start":
		resp, err := c.Start(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(f.Started(*resp))
	case "reset":
		resp, err := c.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Println(f.Reset(*resp))
	case "moves":
		if len(args) != 1 {
			return fmt.Errorf("expected one square")
		}
		resp, err := c.ValidMoves(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(f.Moves(*resp))
	case "move":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("expected <uci> [difficulty]")
		}
		req := chessdto.MoveRequest{Move: args[0], Player: strings.TrimSpace(os.Getenv("WEBCHESS_PLAYER"))}
		if len(args) == 2 {
			req.Difficulty = args[1]
		}
		resp, err := c.Move(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(f.Move(*resp))
	case "logs":
		text, err := c.Logs(ctx)
		if err != nil {
			return err
		}
		fmt.Print(text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Println()
		}
	case "board":
		return saveBoard(ctx, c, f, args)
	case "health":
		health, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("status=%s engine=%s\n", health.Status, health.Engine)
	case "watch":
		return watch(ctx, f, args)
	default:
		return fmt.Errorf("unknown command\n%s", usage)
	}
	return nil
}

func saveBoard(ctx context.Context, c *client.Client, f *chesspresenter.Formatter, args []string) error {
	path := "board.png"
	if len(args) > 0 {
		path = args[0]
	}
	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	png, err := c.Board(ctx)
	if err != nil {
		return err
	}
	presenter := chesspresenter.NewPresenter(
		func(text string) error {
			_, err := fmt.Println(text)
			return err
		},
		func(png []byte) error {
			if err := os.WriteFile(path, png, 0o644); err != nil {
				return err
			}
			_, err := fmt.Printf("board saved to %s\n", path)
			return err
		},
	)
	return presenter.Board(f.State(*state), png)
}

func watch(ctx context.Context, f *chesspresenter.Formatter, args []string) error {
	wsURL := strings.TrimSpace(os.Getenv("WEBCHESS_WS_URL"))
	if wsURL == "" {
		return fmt.Errorf("WEBCHESS_WS_URL is required")
	}
	window := time.Duration(0)
	if len(args) > 0 {
		var secs int
		if _, err := fmt.Sscanf(args[0], "%d", &secs); err != nil || secs < 0 {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		window = time.Duration(secs) * time.Second
	}

	feed := client.NewFeed(wsURL, 5)
	feed.OnStateChange(func(state client.FeedState) {
		log.Printf("feed state: %s", state)
	})
	feed.OnEvent(func(ev chessdto.Event) {
		fmt.Println(f.Event(ev))
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := feed.Connect(cctx)
	cancel()
	if err != nil {
		return err
	}

	if window > 0 {
		t := time.NewTimer(window)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	return feed.Close(closeCtx)
}
