package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Zereker/irc"
)

// echo answers PING and repeats "say ..." lines back to the channel.
type echo struct {
	nick string
}

func (e *echo) Name() string { return "echo" }

func (e *echo) Routes() []irc.Route {
	return []irc.Route{
		{Command: "PING", Handler: e.pong},
		{Command: "PRIVMSG", MinArgs: 1, RequireTrailing: true, Handler: e.privmsg},
		{Command: "001", Handler: e.welcome},
	}
}

func (e *echo) pong(_ context.Context, out irc.Sender, m irc.Message) error {
	reply := irc.NewMessage("PONG", m.Args...)
	if m.HasTrailing {
		reply = reply.WithTrailing(m.Trailing)
	}
	return out.Send(reply)
}

func (e *echo) privmsg(_ context.Context, out irc.Sender, m irc.Message) error {
	text, ok := strings.CutPrefix(m.Trailing, "say ")
	if !ok {
		return nil
	}
	return out.Send(irc.NewMessage("PRIVMSG", m.Arg(0)).WithTrailing(text))
}

func (e *echo) welcome(_ context.Context, out irc.Sender, _ irc.Message) error {
	return out.Send(irc.NewMessage("MODE", e.nick, "+B"))
}

func main() {
	configPath := flag.String("config", "irc.yaml", "path to a YAML or TOML config file")
	nick := flag.String("nick", "echobot", "nickname")
	channels := flag.String("join", "", "comma separated channels to join")
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := irc.NewZapLogger(zl)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, logger, *configPath, *nick, *channels)
	cancel()
	if err != nil {
		logger.Error("echo bot stopped", "error", err)
	}

	// flush before exiting, os.Exit skips deferred calls
	_ = zl.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run connects and serves until ctx is done or the connection faults, then
// says QUIT and shuts the connection down.
func run(ctx context.Context, logger irc.Logger, configPath, nick, channels string) error {
	cfg, err := irc.LoadConfig(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	conn, err := irc.Dial(ctx, cfg, irc.LoggerOption(logger))
	if err != nil {
		return errors.Wrap(err, "connect")
	}

	// The workers outlive ctx so QUIT can still be written.
	// Shutdown stops them.
	if err = conn.Start(context.Background()); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "start")
	}

	send := func(m irc.Message) {
		if err := conn.Send(m); err != nil {
			logger.Warn("send failed", "command", m.Command, "error", err)
		}
	}

	bot := &echo{nick: nick}
	dispatcher := irc.NewDispatcher(conn, irc.DispatcherLoggerOption(logger))
	if err = dispatcher.RegisterPlugin(bot); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "register plugin")
	}

	send(irc.NewMessage("NICK", nick))
	send(irc.NewMessage("USER", nick, "0", "*").WithTrailing(nick))
	if channels != "" {
		for _, group := range conn.PartitionArguments(strings.Split(channels, ","), irc.DefaultPartitionArgLimit, irc.DefaultPartitionMsgLimit) {
			send(irc.NewMessage("JOIN", strings.Join(group, ",")))
		}
	}

	runErr := dispatcher.Run(ctx, conn)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	logger.Info("shutting down")
	send(irc.NewMessage("QUIT").WithTrailing("bye"))

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err = conn.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	return errors.Wrap(runErr, "connection crashed")
}
