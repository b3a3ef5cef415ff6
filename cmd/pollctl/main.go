package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vncsmyrnk/pollregistry/config"
	"github.com/vncsmyrnk/pollregistry/internal/client"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/services"
)

const usage = `usage: pollctl [flags] <command> [args]

commands:
  polls                          list polls, newest first
  poll <id>                      show one poll
  create <title> <option>...     create a poll
  vote <id> <option-index>       vote on a poll
  voted <id> [identity]          check whether an account voted
  connect <identity>             connect an account
  logout                         disconnect and stay disconnected
  cancel                         dismiss a pending connection
  status                         show the session
`

func main() {
	configPath := flag.String("config", "", "path to a config file")
	baseURL := flag.String("url", "", "registry node URL (overrides config)")
	assumeYes := flag.Bool("yes", false, "sign without asking")
	verbose := flag.Bool("v", false, "log warnings to stderr")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}

	var signer client.Signer = client.NewTokenSigner(services.NewAuthService(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if !*assumeYes {
		signer = client.NewPromptSigner(signer, os.Stdin, os.Stdout)
	}

	registry := client.NewRegistryClient(cfg.Client.BaseURL, nil)
	app, err := client.NewApp(registry, signer, client.NewSessionStore(cfg.Client.SessionFile), client.Options{
		MinReloadInterval: cfg.Client.MinReloadInterval,
		ConfirmTimeout:    cfg.Client.ConfirmTimeout,
		Logger:            logger,
	})
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app, registry, flag.Args()); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, app *client.App, registry *client.RegistryClient, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "polls":
		notice := app.LoadPolls(ctx, true)
		printNotice(notice)
		for _, view := range app.Polls() {
			printPoll(view)
		}
		return nil

	case "poll":
		id, err := pollIDArg(args, 0)
		if err != nil {
			return err
		}
		poll, err := registry.GetPoll(ctx, id)
		if err != nil {
			return err
		}
		view := client.PollView{Poll: poll}
		if account := app.Session().Identity; app.Session().AutoConnect() && !account.IsZero() {
			view.HasVoted, _ = registry.HasVoted(ctx, id, account)
		}
		printPoll(view)
		return nil

	case "create":
		if len(args) < 1 {
			return fmt.Errorf("create needs a title and options")
		}
		notice, err := app.CreatePoll(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		printNotice(notice)
		return nil

	case "vote":
		id, err := pollIDArg(args, 0)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return fmt.Errorf("vote needs an option index")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid option index %q", args[1])
		}
		notice, err := app.Vote(ctx, id, index)
		if err != nil {
			return err
		}
		printNotice(notice)
		return nil

	case "voted":
		id, err := pollIDArg(args, 0)
		if err != nil {
			return err
		}
		identity := app.Session().Identity
		if len(args) > 1 {
			identity = domain.NewIdentity(args[1])
		}
		if identity.IsZero() {
			return fmt.Errorf("voted needs an identity: connect first or pass one")
		}
		voted, err := registry.HasVoted(ctx, id, identity)
		if err != nil {
			return err
		}
		fmt.Println(voted)
		return nil

	case "connect":
		if len(args) < 1 {
			return fmt.Errorf("connect needs an identity")
		}
		if err := app.Connect(domain.NewIdentity(args[0])); err != nil {
			return err
		}
		fmt.Printf("connected as %s\n", app.Session().Identity.Short())
		return nil

	case "logout":
		if err := app.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "cancel":
		if err := app.CancelConnect(); err != nil {
			return err
		}
		fmt.Println("connection cancelled")
		return nil

	case "status":
		session := app.Session()
		if !session.AutoConnect() {
			fmt.Printf("disconnected (%s)\n", session.Reason)
			return nil
		}
		if session.Identity.IsZero() {
			fmt.Println("not connected")
			return nil
		}
		fmt.Printf("connected as %s\n", session.Identity)
		return nil
	}

	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func pollIDArg(args []string, i int) (domain.PollID, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("a poll id is required")
	}
	return domain.ParsePollID(args[i])
}

func printNotice(n client.Notice) {
	if n.Kind == client.NoticeNone {
		return
	}
	fmt.Printf("[%s] %s\n", n.Kind, n.Message)
}

func printPoll(view client.PollView) {
	p := view.Poll
	voted := ""
	if view.HasVoted {
		voted = " (voted)"
	}
	fmt.Printf("#%d %s%s\n  by %s at %s, %d votes\n", p.ID, p.Title, voted, p.Creator.Short(), p.CreatedAt.Format("2006-01-02 15:04:05"), p.TotalVotes)
	for i, opt := range p.Options {
		var count uint64
		if i < len(p.VoteCounts) {
			count = p.VoteCounts[i]
		}
		fmt.Printf("  [%d] %-30s %d\n", i, strings.TrimSpace(opt), count)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
