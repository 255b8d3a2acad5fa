// Package cli implements the operational subcommands of the terracore binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/terracore/terracore-pro/internal/app"
	"github.com/terracore/terracore-pro/internal/datasource"
	"github.com/terracore/terracore-pro/internal/platform/db"
)

const usage = `usage:
  terracore                         start the HTTP API
  terracore migrate                 create missing tables
  terracore schema                  print the schema
  terracore jobs trigger NAME [ARG] enqueue kpi:warmup [company-id] or kpi:invalidate [reason]
  terracore jobs stats              show default queue counters
  terracore jobs scheduled [N]      list the next N scheduled tasks`

// ErrUsage is returned for unknown or malformed commands.
var ErrUsage = errors.New(usage)

// Run dispatches one subcommand.
func Run(ctx context.Context, cfg *app.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "migrate":
		pool, err := db.NewWithOptions(ctx, cfg.PGDSN, cfg.PoolOptions("cli"))
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := datasource.Migrate(ctx, pool); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, "schema up to date")
		return err
	case "schema":
		_, err := io.WriteString(out, datasource.Schema())
		return err
	case "jobs":
		c := NewJobsCLI(cfg.AsynqRedis())
		defer c.Close()
		return runJobs(ctx, c, args[1:], out)
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(out, usage)
		return err
	}
	return ErrUsage
}

func runJobs(ctx context.Context, c *JobsCLI, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return ErrUsage
		}
		arg := ""
		if len(args) > 2 {
			arg = args[2]
		}
		info, err := c.Trigger(ctx, args[1], arg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return err
	case "scheduled":
		size := 10
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return ErrUsage
			}
			size = n
		}
		tasks, err := c.ListScheduled(ctx, size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if _, err := fmt.Fprintf(out, "%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z")); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrUsage
}
