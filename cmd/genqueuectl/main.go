package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/genqueue/internal/ctl"
	"github.com/makeasinger/genqueue/internal/events"
	"github.com/makeasinger/genqueue/internal/model"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Launch command
	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("genqueuectl", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "genqueuectl [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newSubmitCommand(),
			newJobCommand("status", "show the state of a job", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				return c.Status(ctx, id)
			}),
			newJobCommand("preset", "show the request of a job for re-submission", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				return c.Preset(ctx, id)
			}),
			newJobCommand("cancel", "cancel a pending or running job", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				return c.Cancel(ctx, id)
			}),
			newJobCommand("remove", "cancel if needed and delete a job", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				if err := c.Remove(ctx, id); err != nil {
					return nil, err
				}
				fmt.Println("removed", id)
				return nil, nil
			}),
			newJobCommand("up", "move a job one slot towards the head", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				return c.Move(ctx, id, "up")
			}),
			newJobCommand("down", "move a job one slot towards the tail", func(ctx context.Context, c *ctl.Client, id string) (interface{}, error) {
				return c.Move(ctx, id, "down")
			}),
			newQueueCommand(),
			newHistoryCommand(),
			newReorderCommand(),
			newProvidersCommand(),
			newSwitchCommand(),
			newWatchCommand(),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "genqueuectl version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

type apiFunc func(ctx context.Context, c *ctl.Client, args []string) (interface{}, error)

// newAPICommand wires the flags every server call shares and prints the
// result as JSON.
func newAPICommand(cmd, usage, help string, fs *flag.FlagSet, run apiFunc) *ffcli.Command {
	_ = fs.String("config", "", "config file (optional)")
	addr := fs.String("addr", "http://localhost:8000", "server address")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("genqueuectl %s %s", cmd, usage),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("genqueue"),
		},
		ShortHelp: help,
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			out, err := run(ctx, ctl.NewClient(*addr, *timeout), args)
			if err != nil {
				return err
			}
			if out == nil {
				return nil
			}
			return ctl.PrintJSON(os.Stdout, out)
		},
	}
}

func newJobCommand(cmd, help string, run func(ctx context.Context, c *ctl.Client, id string) (interface{}, error)) *ffcli.Command {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return newAPICommand(cmd, "[flags] <job-id>", help, fs, func(ctx context.Context, c *ctl.Client, args []string) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected a job id", cmd)
		}
		return run(ctx, c, args[0])
	})
}

func newSubmitCommand() *ffcli.Command {
	cmd := "submit"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	var req model.GenerationRequest
	fs.StringVar(&req.Prompt, "prompt", "", "text prompt")
	fs.Float64Var(&req.Duration, "duration", 30, "duration in seconds")
	fs.IntVar(&req.NumVersions, "versions", model.DefaultVersions, "number of versions")
	fs.StringVar(&req.CallbackURL, "callback", "", "webhook called when the job finishes (optional)")
	lyrics := fs.String("lyrics", "", "lyrics (optional, empty means instrumental)")
	provider := fs.String("provider", "", "provider (optional)")
	seed := fs.Int64("seed", -1, "seed (optional, negative means random)")

	return newAPICommand(cmd, "[flags]", "queue a generation request", fs, func(ctx context.Context, c *ctl.Client, _ []string) (interface{}, error) {
		if *lyrics != "" {
			req.Lyrics = lyrics
		}
		if *provider != "" {
			req.Provider = provider
		}
		if *seed >= 0 {
			req.Seed = seed
		}
		return c.Submit(ctx, req)
	})
}

func newQueueCommand() *ffcli.Command {
	cmd := "queue"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return newAPICommand(cmd, "[flags]", "list the active queue", fs, func(ctx context.Context, c *ctl.Client, _ []string) (interface{}, error) {
		return c.Queue(ctx)
	})
}

func newHistoryCommand() *ffcli.Command {
	cmd := "history"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	status := fs.String("status", "", "filter by status (optional)")
	return newAPICommand(cmd, "[flags]", "list known jobs", fs, func(ctx context.Context, c *ctl.Client, _ []string) (interface{}, error) {
		return c.History(ctx, *status)
	})
}

func newReorderCommand() *ffcli.Command {
	cmd := "reorder"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return newAPICommand(cmd, "[flags] <job-id> <position>", "move a pending job to a 1-based position", fs, func(ctx context.Context, c *ctl.Client, args []string) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected a job id and a position", cmd)
		}
		pos, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid position %q: %w", cmd, args[1], err)
		}
		return c.Reorder(ctx, args[0], pos)
	})
}

func newProvidersCommand() *ffcli.Command {
	cmd := "providers"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return newAPICommand(cmd, "[flags]", "list providers", fs, func(ctx context.Context, c *ctl.Client, _ []string) (interface{}, error) {
		return c.Providers(ctx)
	})
}

func newSwitchCommand() *ffcli.Command {
	cmd := "switch"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return newAPICommand(cmd, "[flags] <provider>", "load another provider", fs, func(ctx context.Context, c *ctl.Client, args []string) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected a provider name", cmd)
		}
		return c.Switch(ctx, args[0])
	})
}

func newWatchCommand() *ffcli.Command {
	cmd := "watch"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	opts := &redis.Options{}
	fs.StringVar(&opts.Addr, "redis-addr", "localhost:6379", "redis address")
	fs.StringVar(&opts.Password, "redis-password", "", "redis password")
	fs.IntVar(&opts.DB, "redis-db", 0, "redis database")
	channel := fs.String("channel", events.DefaultChannel, "event channel")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("genqueuectl %s [flags] [job-id]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("genqueue"),
		},
		ShortHelp: "follow job events published to redis",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			var jobID string
			if len(args) > 0 {
				jobID = args[0]
			}
			rdb := redis.NewClient(opts)
			defer rdb.Close()

			sub := events.NewRedisPublisher(rdb, *channel).Subscribe(ctx)
			return ctl.Watch(ctx, sub, jobID, os.Stdout)
		},
	}
}
