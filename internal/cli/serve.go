package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/internal/server"
	"github.com/matzehuels/heapscope/pkg/cache"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr         string // listen address ("" = config default)
	maxSnapshots int    // registry bound (0 = config default)
	noCache      bool
}

// serveCommand creates the serve command, which exposes the analyzer
// as an HTTP API for CI jobs and dashboards.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Serve the analysis API over HTTP.

Clients upload dumps with POST /api/v1/snapshots and query statistics,
type aggregates, reference paths, and comparisons against the returned
snapshot ID. The registry is bounded; the least recently used snapshot
is evicted when it fills up.

Environment variables are read from a .env file in the working
directory if present. REDIS_ADDR selects the redis cache backend,
overriding the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "listen address (host:port)")
	cmd.Flags().IntVar(&opts.maxSnapshots, "max-snapshots", 0, "in-memory snapshot limit")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts *serveOpts) error {
	_ = godotenv.Load()

	addr := opts.addr
	if addr == "" {
		addr = c.Config.Server.Addr
	}
	maxSnapshots := opts.maxSnapshots
	if maxSnapshots == 0 {
		maxSnapshots = c.Config.Server.MaxSnapshots
	}

	backend, err := c.newServeCache(cmd, opts.noCache)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:         addr,
		MaxSnapshots: maxSnapshots,
		Cache:        backend,
		Logger:       c.Logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	printInfo("Serving the heapscope API on %s", addr)
	printNextStep("Upload a dump", "curl --data-binary @app.heapdump.json http://localhost"+addr+"/api/v1/snapshots")

	return srv.ListenAndServe(cmd.Context())
}

// newServeCache picks the server cache backend. REDIS_ADDR or the
// config file selects redis; otherwise the file cache is shared with
// the local commands.
func (c *CLI) newServeCache(cmd *cobra.Command, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = c.Config.Cache.RedisAddr
	}
	if redisAddr != "" {
		c.Logger.Info("using redis cache", "addr", redisAddr, "db", c.Config.Cache.RedisDB)
		return cache.NewRedisCache(cmd.Context(), redisAddr, os.Getenv("REDIS_PASSWORD"), c.Config.Cache.RedisDB)
	}

	dir := c.Config.Cache.Dir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return nil, err
		}
	}
	return cache.NewFileCache(dir)
}
