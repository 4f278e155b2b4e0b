package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"workmatch/internal/client"
	"workmatch/internal/config"
	"workmatch/internal/logging"
)

var (
	watchServer       string
	watchToken        string
	watchWith         int64
	watchConversation int64
	watchInterval     time.Duration
	watchLogLevel     string
)

// watchCmd is a terminal chat client. It only talks to the HTTP API, so it
// needs no database or secrets of its own; POLL_INTERVAL sets its pace.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Chat with a user from the terminal",
	Long: `Opens the conversation with --with, prints new messages as they arrive and
sends every line typed on stdin. Type /track to add the other user to your
managed list and /quit to leave.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadClient(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cmd.Flags().Changed("interval") {
			watchInterval = c.PollInterval
		}
		l, err := logging.New(false, watchLogLevel)
		if err != nil {
			return err
		}
		logger = l
		if watchToken == "" {
			watchToken = os.Getenv("WORKMATCH_TOKEN")
		}
		if watchToken == "" {
			return errors.New("a bearer token is required: pass --token or set WORKMATCH_TOKEN")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchServer, "server", "http://localhost:8000", "API base URL")
	f.StringVar(&watchToken, "token", "", "Bearer token (default $WORKMATCH_TOKEN)")
	f.Int64Var(&watchWith, "with", 0, "User id of the other participant")
	f.Int64Var(&watchConversation, "conversation", 0, "Known conversation id, skips the lookup")
	f.DurationVar(&watchInterval, "interval", client.DefaultPollInterval, "Poll interval (default POLL_INTERVAL)")
	f.StringVar(&watchLogLevel, "log-level", "warn", "Log level")
	_ = watchCmd.MarkFlagRequired("with")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	c := client.New(watchServer, watchToken, client.WithLogger(logger))
	me, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("who am i: %w", err)
	}

	tr := &transcript{out: out, self: me.ID, printed: make(map[int64]bool)}
	opts := []client.ViewOption{
		client.WithSelfID(me.ID),
		client.WithInterval(watchInterval),
		client.WithUpdateHandler(tr.update),
		client.WithViewLogger(logger),
	}
	if watchConversation > 0 {
		opts = append(opts, client.WithConversationID(watchConversation))
	}
	view := client.NewConversationView(c, watchWith, opts...)
	if err := view.Open(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "-- conversation %d with user %d (/track, /quit)\n", view.ConversationID(), watchWith)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go view.Run(pollCtx)

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

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "":
			case "/quit":
				return nil
			case "/track":
				rel, created, err := c.AddRelationship(ctx, watchWith)
				switch {
				case err != nil:
					fmt.Fprintf(errOut, "track failed: %v\n", err)
				case created:
					fmt.Fprintf(out, "-- added user %d to your list\n", rel.CounterpartID)
				default:
					fmt.Fprintf(out, "-- user %d is already on your list\n", rel.CounterpartID)
				}
			default:
				if err := view.Send(ctx, line); err != nil {
					fmt.Fprintf(errOut, "send failed, draft kept: %v\n", err)
				}
			}
		}
	}
}

// transcript prints each stored message once, in list order.
type transcript struct {
	mu      sync.Mutex
	out     io.Writer
	self    int64
	printed map[int64]bool
}

func (t *transcript) update(s client.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range s.Entries {
		if e.Pending || t.printed[e.Message.ID] {
			continue
		}
		t.printed[e.Message.ID] = true
		who := fmt.Sprintf("user %d", e.Message.SenderID)
		if e.Message.SenderID == t.self {
			who = "you"
		}
		fmt.Fprintf(t.out, "[%s] %s: %s\n", e.Message.CreatedAt.Local().Format("15:04"), who, e.Message.Body)
	}
}
