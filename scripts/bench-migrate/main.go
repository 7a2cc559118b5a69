// bench-migrate measures migration throughput and heap use on a synthetic
// extension tree across several worker counts.
//
// Usage:
//
//	go run ./scripts/bench-migrate --files 2000 --workers 1,4,16 \
//	  --profile-dir docs/profiles/migrate
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
)

const moduleTemplate = `const { GLib, Gio } = imports.gi;
const Main = imports.ui.main;
const Me = imports.misc.extensionUtils.getCurrentExtension();
const Helper = Me.imports.lib.helper%d;

function build%d() {
    Main.notify(GLib.get_user_name() + Me.path);
    return Helper.value(Gio.File.new_for_path('/tmp'));
}
`

const entrySource = `const ExtensionUtils = imports.misc.extensionUtils;
const Me = ExtensionUtils.getCurrentExtension();

function enable() {
    log(Me.uuid);
}

function disable() {}
`

const metadataSource = `{"uuid": "bench@esmport", "name": "Bench", "shell-version": ["44"]}`

func main() {
	files := flag.Int("files", 1000, "number of synthetic modules")
	workerList := flag.String("workers", "1,4,"+strconv.Itoa(runtime.NumCPU()), "comma-separated worker counts")
	profileDir := flag.String("profile-dir", "", "directory for heap and CPU profiles (optional)")

	flag.Parse()

	root, err := os.MkdirTemp("", "esmport-bench-")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(root)

	err = writeTree(root, *files)
	if err != nil {
		log.Fatalf("write tree: %v", err)
	}

	log.Printf("synthetic tree with %d modules at %s", *files, root)

	if *profileDir != "" {
		err = os.MkdirAll(*profileDir, 0o755)
		if err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}

		stop := startCPUProfile(filepath.Join(*profileDir, "cpu.prof"))
		defer stop()
	}

	for _, field := range strings.Split(*workerList, ",") {
		workers, convErr := strconv.Atoi(strings.TrimSpace(field))
		if convErr != nil || workers < 1 {
			log.Fatalf("bad worker count %q", field)
		}

		bench(root, workers)
	}

	if *profileDir != "" {
		writeHeapProfile(filepath.Join(*profileDir, "heap.prof"))
	}
}

func bench(root string, workers int) {
	runtime.GC()

	var before, after runtime.MemStats

	runtime.ReadMemStats(&before)

	opts := migrate.DefaultOptions(root)
	opts.DryRun = true
	opts.Workers = workers

	started := time.Now()

	rep, err := migrate.Run(context.Background(), opts)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	elapsed := time.Since(started)

	runtime.ReadMemStats(&after)

	s := rep.Summary()
	fmt.Printf("workers=%-3d files=%-6d changes=%-7d time=%-12s files/s=%-8.0f alloc=%s\n",
		workers, s.Files, s.Changes, elapsed.Round(time.Millisecond),
		float64(s.Files)/elapsed.Seconds(), humanize.Bytes(after.TotalAlloc-before.TotalAlloc))
}

func writeTree(root string, n int) error {
	write := func(rel, content string) error {
		p := filepath.Join(root, filepath.FromSlash(rel))

		err := os.MkdirAll(filepath.Dir(p), 0o755)
		if err != nil {
			return err
		}

		return os.WriteFile(p, []byte(content), 0o644)
	}

	err := write("metadata.json", metadataSource)
	if err == nil {
		err = write(migrate.DefaultEntryFile, entrySource)
	}

	for i := 0; err == nil && i < n; i++ {
		err = write(fmt.Sprintf("lib/module%d.js", i), fmt.Sprintf(moduleTemplate, i, i))
	}

	return err
}

func startCPUProfile(path string) func() {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create cpu profile: %v", err)
	}

	err = pprof.StartCPUProfile(f)
	if err != nil {
		log.Fatalf("start cpu profile: %v", err)
	}

	log.Printf("CPU profiling enabled -> %s", path)

	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create heap profile: %v", err)
	}
	defer f.Close()

	err = pprof.WriteHeapProfile(f)
	if err != nil {
		log.Fatalf("write heap profile: %v", err)
	}

	log.Printf("heap profile -> %s", path)
}
