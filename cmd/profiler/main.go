// Command profiler drives the archive, cache and fetch code paths in a
// loop so they can be profiled with pprof or the execution tracer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/cache"
	"github.com/zuri-dev/zpk/fetch"
	"github.com/zuri-dev/zpk/ident"
)

type config struct {
	mode        string
	files       int
	fileSize    int
	dirCount    int
	compression string
	pattern     string
	packages    int
	concurrency int
	latency     time.Duration
	bps         int64
	duration    time.Duration
	iterations  int
	pprofAddr   string
	cpuProfile  string
	memProfile  string
	traceFile   string
	tempDir     string
	keepTemp    bool
	randomSeed  int64
	verbose     bool
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkCount int
)

var profileSpec = ident.NewSpecifier("profile", "zuri.dev", ident.NewVersion(1, 0, 0))

func main() {
	cfg := parseFlags()

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	srcDir := filepath.Join(dir, "src")
	paths, err := makeFiles(srcDir, cfg.files, cfg.fileSize, cfg.dirCount, cfg.pattern, cfg.randomSeed)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
	data, err := buildArchive(context.Background(), srcDir, parseCompression(cfg.compression), logger)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(context.Background(), cfg, profileInput{
		srcDir: srcDir,
		work:   dir,
		paths:  paths,
		data:   data,
		logger: logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

type profileInput struct {
	srcDir string
	work   string
	paths  []string
	data   []byte
	logger *slog.Logger
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch
func runProfile(ctx context.Context, cfg config, in profileInput) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "writer":
		for shouldContinue() {
			data, err := buildArchive(ctx, in.srcDir, parseCompression(cfg.compression), in.logger)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += int64(len(data))
			ops++
		}

	case "open":
		for shouldContinue() {
			r, err := zpk.NewReader(in.data, zpk.WithReaderLogger(in.logger))
			if err != nil {
				return profileStats{}, err
			}
			sinkCount = r.Walker().NumEntries()
			byteCount += int64(len(in.data))
			ops++
		}

	case "readfile":
		r, err := zpk.NewReader(in.data)
		if err != nil {
			return profileStats{}, err
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			path := in.paths[rng.Intn(len(in.paths))]
			content, err := r.ReadFile(path)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "extract":
		r, err := zpk.NewReader(in.data)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			dest := filepath.Join(in.work, "extract", fmt.Sprintf("iter-%d", ops))
			x := zpk.NewExtractor(r,
				zpk.WithWorkingRoot(dest),
				zpk.WithDestinationRoot(dest),
				zpk.WithExtractorLogger(in.logger))
			if _, err := x.Extract(ctx); err != nil {
				return profileStats{}, err
			}
			if err := os.RemoveAll(dest); err != nil {
				return profileStats{}, err
			}
			byteCount += int64(cfg.files * cfg.fileSize)
			ops++
		}

	case "install":
		r, err := zpk.NewReader(in.data)
		if err != nil {
			return profileStats{}, err
		}
		c, err := cache.OpenOrCreate(filepath.Join(in.work, "cache"), cache.WithLogger(in.logger))
		if err != nil {
			return profileStats{}, err
		}
		defer c.Close()
		for shouldContinue() {
			if _, err := c.InstallPackage(ctx, r); err != nil {
				return profileStats{}, err
			}
			if err := c.RemovePackage(ctx, profileSpec); err != nil {
				return profileStats{}, err
			}
			byteCount += int64(len(in.data))
			ops++
		}

	case "fetch":
		srv := newArchiveServer(in.data)
		defer srv.Close()
		for shouldContinue() {
			f := fetch.New(
				fetch.WithDownloadRoot(filepath.Join(in.work, "fetch", fmt.Sprintf("iter-%d", ops))),
				fetch.WithClient(newHTTPClient(cfg)),
				fetch.WithConcurrency(cfg.concurrency),
				fetch.WithLogger(in.logger))
			if err := f.Configure(); err != nil {
				return profileStats{}, err
			}
			for i := range cfg.packages {
				spec := ident.NewSpecifier(fmt.Sprintf("pkg%04d", i), "zuri.dev", ident.NewVersion(1, 0, 0))
				if err := f.AddPackage(spec, srv.URL+"/"+spec.ArchiveName()); err != nil {
					return profileStats{}, err
				}
			}
			if err := f.FetchPackages(ctx); err != nil {
				return profileStats{}, err
			}
			for _, res := range f.Results() {
				if res.Err != nil {
					return profileStats{}, res.Err
				}
				byteCount += res.Size
			}
			if err := os.RemoveAll(f.DownloadRoot()); err != nil {
				return profileStats{}, err
			}
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	var bps string
	flag.StringVar(&cfg.mode, "mode", "readfile", "mode: writer, open, readfile, extract, install, fetch")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.compression, "compression", "zstd", "compression: none or zstd")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.packages, "packages", 32, "packages per fetch batch (fetch mode)")
	flag.IntVar(&cfg.concurrency, "concurrency", fetch.DefaultConcurrency, "concurrent transfers (fetch mode)")
	flag.DurationVar(&cfg.latency, "http-latency", 0, "per-request latency (fetch mode)")
	flag.StringVar(&bps, "http-bps", "", "bytes/sec throttle per transfer, e.g. 10MBps (fetch mode)")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.Parse()
	if bps != "" {
		v, err := parseBytesPerSecond(bps)
		if err != nil {
			log.Fatalf("http-bps: %v", err)
		}
		cfg.bps = v
	}
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "zpk-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// makeFiles writes the dataset and returns the slash-separated relative
// paths of the files.
func makeFiles(dir string, fileCount, fileSize, dirCount int, pattern string, seed int64) ([]string, error) {
	if dirCount <= 0 {
		dirCount = 1
	}
	paths := make([]string, 0, fileCount)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional use for reproducible benchmarks
	for i := range fileCount {
		relPath := fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil { //nolint:gosec // 0o755 is intentional for profiler
			return nil, err
		}

		content := make([]byte, fileSize)
		switch pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return nil, err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}

		if err := os.WriteFile(fullPath, content, 0o644); err != nil { //nolint:gosec // 0o644 is intentional for profiler test files
			return nil, err
		}
		paths = append(paths, relPath)
	}
	return paths, nil
}

func buildArchive(ctx context.Context, srcDir string, c zpk.Compression, logger *slog.Logger) ([]byte, error) {
	w := zpk.NewWriter(profileSpec, zpk.WithCompression(c), zpk.WithLogger(logger))
	if err := w.PutTree(ctx, srcDir, "/"); err != nil {
		return nil, err
	}
	return w.Encode(ctx)
}

func parseCompression(name string) zpk.Compression {
	switch name {
	case "none":
		return zpk.CompressionNone
	case "zstd":
		return zpk.CompressionZstd
	default:
		log.Fatalf("unknown compression: %s", name)
		return zpk.CompressionNone
	}
}
