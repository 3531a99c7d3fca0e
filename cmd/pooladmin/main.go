// Command pooladmin is the long-running supervisor for a shared-memory
// slab pool: it creates (or attaches to) the region, serves a gRPC admin
// surface for Stats/LockOwner/ForceUnlock, and runs a cron job that logs
// utilization and reaps a mutex left held by a worker that has since
// died.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/shmslab/shmslab/internal/poolcfg"
	"github.com/shmslab/shmslab/internal/shm"
	"github.com/shmslab/shmslab/internal/slab"
)

var (
	flagConfig    = flag.String("config", "", "path to a pool YAML config (see internal/poolcfg)")
	flagName      = flag.String("name", "", "region name; empty generates one with -create, required otherwise")
	flagDir       = flag.String("dir", "", "shared-memory directory, default /dev/shm")
	flagAdminAddr = flag.String("admin", "", "gRPC admin listen address; overrides config admin_addr; \"-\" disables the admin surface")
	flagCreate    = flag.Bool("create", false, "create a fresh region instead of attaching to an existing one")
)

func main() {
	flag.Parse()

	cfg := poolcfg.Config{RegionSize: 1 << 20, MinShift: 3, AdminAddr: ":9191"}
	if *flagConfig != "" {
		loaded, err := poolcfg.Load(*flagConfig)
		if err != nil {
			log.Fatalf("pooladmin: %v", err)
		}
		cfg = loaded
	}
	if *flagName != "" {
		cfg.RegionName = *flagName
	}
	if *flagDir != "" {
		cfg.RegionDir = *flagDir
	}
	switch *flagAdminAddr {
	case "":
		// not set on the command line, keep whatever -config (or the
		// built-in default above) already decided
	case "-":
		cfg.AdminAddr = "" // explicit disable
	default:
		cfg.AdminAddr = *flagAdminAddr
	}

	logger := log.New(os.Stderr, "pooladmin: ", log.LstdFlags)

	var h *shm.Handle
	var err error
	if *flagCreate {
		h, err = shm.Create(cfg.RegionDir, cfg.RegionName, cfg.RegionSize, slab.Config{
			MinShift: cfg.MinShift,
			Log:      logger,
		})
	} else {
		if cfg.RegionName == "" {
			logger.Fatal("-name is required to attach to an existing region (or pass -create)")
		}
		h, err = shm.Attach(cfg.RegionDir, cfg.RegionName, logger)
	}
	if err != nil {
		logger.Fatalf("opening region: %v", err)
	}
	defer h.Close()
	logger.Printf("serving region %q (page size %d, max sub-page size %d)", h.Name, h.Pool().PageSize(), h.Pool().MaxSize())

	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 30 * time.Second
	}
	c := startCron(h, statsInterval, logger)
	defer c.Stop()

	if cfg.AdminAddr == "" {
		logger.Print("admin surface disabled (admin_addr is empty); running the cron job only")
		select {}
	}

	encoding.RegisterCodec(jsonCodec{})
	lis, err := net.Listen("tcp", cfg.AdminAddr)
	if err != nil {
		logger.Fatalf("admin listen on %s: %v", cfg.AdminAddr, err)
	}
	gs := grpc.NewServer()
	registerPoolAdminServer(gs, &adminServer{handle: h})
	logger.Printf("admin gRPC listening on %s", cfg.AdminAddr)
	if err := gs.Serve(lis); err != nil {
		logger.Fatalf("admin serve: %v", err)
	}
}
