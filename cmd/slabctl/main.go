// Command slabctl creates or attaches a shared-memory slab pool and
// drives manual alloc/free/stats operations against it, for testing a
// region outside of a running proxy process.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shmslab/shmslab/internal/poolcfg"
	"github.com/shmslab/shmslab/internal/poolstats"
	"github.com/shmslab/shmslab/internal/shm"
	"github.com/shmslab/shmslab/internal/slab"
)

var (
	flagConfig = flag.String("config", "", "path to a pool YAML config (see internal/poolcfg)")
	flagName   = flag.String("name", "", "region name; empty generates one on create, required on stats/alloc")
	flagDir    = flag.String("dir", "", "shared-memory directory, default /dev/shm")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg := poolcfg.Config{RegionSize: 1 << 20, MinShift: 3}
	if *flagConfig != "" {
		loaded, err := poolcfg.Load(*flagConfig)
		if err != nil {
			log.Fatalf("slabctl: %v", err)
		}
		cfg = loaded
	}
	if *flagName != "" {
		cfg.RegionName = *flagName
	}
	if *flagDir != "" {
		cfg.RegionDir = *flagDir
	}

	logger := log.New(os.Stderr, "slabctl: ", log.LstdFlags)

	switch args[0] {
	case "create":
		runCreate(cfg, logger)
	case "stats":
		runStats(cfg, logger)
	case "alloc":
		runAllocFree(cfg, logger, args[1:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: slabctl [-config path] [-name region] [-dir /dev/shm] <create|stats|alloc> [args]")
	flag.PrintDefaults()
}

func runCreate(cfg poolcfg.Config, logger *log.Logger) {
	h, err := shm.Create(cfg.RegionDir, cfg.RegionName, cfg.RegionSize, slab.Config{
		MinShift: cfg.MinShift,
		Log:      logger,
	})
	if err != nil {
		log.Fatalf("slabctl: create: %v", err)
	}
	defer h.Close()
	fmt.Printf("created region %q (%d bytes)\n", h.Name, cfg.RegionSize)
	fmt.Print(poolstats.Table(h.Pool().PageSize(), h.Pool().Stats()))
}

func runStats(cfg poolcfg.Config, logger *log.Logger) {
	h := mustAttach(cfg, logger)
	defer h.Close()
	fmt.Print(poolstats.Table(h.Pool().PageSize(), h.Pool().Stats()))
}

func runAllocFree(cfg poolcfg.Config, logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("alloc", flag.ExitOnError)
	size := fs.Int("size", 64, "bytes to allocate")
	count := fs.Int("count", 1, "number of allocations to make before freeing them all")
	fs.Parse(args)

	h := mustAttach(cfg, logger)
	defer h.Close()

	addrs := make([]slab.Addr, 0, *count)
	for i := 0; i < *count; i++ {
		a := h.Pool().Alloc(*size)
		if a == slab.NullAddr {
			log.Fatalf("slabctl: alloc #%d of %d bytes failed (pool exhausted)", i, *size)
		}
		addrs = append(addrs, a)
		fmt.Printf("alloc #%d -> addr %d\n", i, a)
	}
	fmt.Print(poolstats.Table(h.Pool().PageSize(), h.Pool().Stats()))
	for _, a := range addrs {
		h.Pool().Free(a)
	}
	fmt.Println("freed all allocations from this run")
	fmt.Print(poolstats.Table(h.Pool().PageSize(), h.Pool().Stats()))
}

func mustAttach(cfg poolcfg.Config, logger *log.Logger) *shm.Handle {
	if cfg.RegionName == "" {
		log.Fatal("slabctl: -name is required for this subcommand")
	}
	h, err := shm.Attach(cfg.RegionDir, cfg.RegionName, logger)
	if err != nil {
		log.Fatalf("slabctl: attach: %v", err)
	}
	return h
}
