// Command hivebench adapts the teacher's tests/test.go throughput and
// integrity exercises to drive a box.Box instead of the bare engine, plus a
// compaction scenario the teacher never had.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jassi-singh/hivebox/internal/box"
	"github.com/jassi-singh/hivebox/internal/config"
	"github.com/jassi-singh/hivebox/internal/format"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "100k-write":
		test100kWrite(cfg)
	case "overlapping":
		testOverlappingKey(cfg)
	case "integrity":
		testIntegrity(cfg)
	case "compaction":
		testCompaction(cfg)
	default:
		fmt.Printf("Unknown test: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: hivebench <test-name>")
	fmt.Println("\nAvailable tests:")
	fmt.Println("  100k-write  - Write 100,000 unique keys and measure throughput")
	fmt.Println("  overlapping - Overwrite the same key twice, confirm latest wins")
	fmt.Println("  integrity   - Write 100k keys, randomly read back 1,000 to verify values")
	fmt.Println("  compaction  - Write N keys, delete half, compact, verify file shrinks")
}

func openBench(cfg *config.Config, name string) box.Box {
	b, err := box.Open(cfg, nil, name, box.Options{CrashRecovery: true})
	if err != nil {
		log.Fatalf("failed to open box %q: %v", name, err)
	}
	return b
}

func heading(title string) {
	fmt.Println(strings.Repeat("=", 61))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 61))
}

// Test 1: 100k Write Test (Speed & Integrity)
func test100kWrite(cfg *config.Config) {
	heading("Test 1: 100k Write Test (Speed & Integrity)")

	b := openBench(cfg, "bench_100k")
	defer b.Close()

	const totalKeys = 100000
	start := time.Now()
	errs := 0

	fmt.Printf("Writing %d keys...\n", totalKeys)
	for i := 0; i < totalKeys; i++ {
		key := format.NewStringKey(fmt.Sprintf("key_%d", i))
		value := fmt.Sprintf("value_%d", i)

		if err := b.Put(key, value); err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("ERROR: failed to put key_%d: %v\n", i, err)
			}
		}

		if (i+1)%10000 == 0 {
			elapsed := time.Since(start)
			rate := float64(i+1) / elapsed.Seconds()
			fmt.Printf("Progress: %d/%d keys written (%.2f keys/sec)\n", i+1, totalKeys, rate)
		}
	}

	elapsed := time.Since(start)
	rate := float64(totalKeys) / elapsed.Seconds()

	fmt.Println(strings.Repeat("-", 61))
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Write rate: %.2f keys/second\n", rate)
	fmt.Printf("Errors: %d\n", errs)

	if errs > 0 {
		fmt.Printf("\nTEST FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	logPath := filepath.Join(cfg.DATA_DIR, "bench_100k.hive")
	if stat, err := os.Stat(logPath); err == nil {
		fmt.Printf("Log file size: %d bytes (%.2f MB)\n", stat.Size(), float64(stat.Size())/1024/1024)
	}

	fmt.Println("\nTEST PASSED: all 100,000 keys written successfully")
}

// Test 2: Overlapping Key Test
func testOverlappingKey(cfg *config.Config) {
	heading("Test 2: Overlapping Key Test")

	b := openBench(cfg, "bench_overlap")
	defer b.Close()

	key := format.NewStringKey("key_1")
	valueA, valueB := "value_A", "value_B"

	logPath := filepath.Join(cfg.DATA_DIR, "bench_overlap.hive")
	initialSize := statSizeOrZero(logPath)

	fmt.Printf("Step 1: putting %s with value %q\n", key, valueA)
	if err := b.Put(key, valueA); err != nil {
		log.Fatalf("put value_A: %v", err)
	}
	fmt.Printf("  log size after first write: %d bytes\n", statSizeOrZero(logPath))

	fmt.Printf("\nStep 2: putting %s with value %q (overwriting)\n", key, valueB)
	if err := b.Put(key, valueB); err != nil {
		log.Fatalf("put value_B: %v", err)
	}
	grown := statSizeOrZero(logPath) - initialSize
	fmt.Printf("  log size after second write: %d bytes (grew by %d, both versions retained pre-compaction)\n", statSizeOrZero(logPath), grown)

	fmt.Printf("\nStep 3: getting %s\n", key)
	value := b.Get(key, nil)
	fmt.Printf("  retrieved value: %v\n", value)

	if value != valueB {
		fmt.Printf("\nTEST FAILED: expected %q, got %v\n", valueB, value)
		os.Exit(1)
	}

	fmt.Println("\nTEST PASSED: latest value correctly returned")
}

// Test 3: Integrity Test (Read-Back)
func testIntegrity(cfg *config.Config) {
	heading("Test 3: Integrity Test (Read-Back)")

	b := openBench(cfg, "bench_integrity")
	defer b.Close()

	const totalKeys = 100000
	fmt.Printf("Step 1: writing %d keys...\n", totalKeys)
	start := time.Now()

	for i := 0; i < totalKeys; i++ {
		key := format.NewStringKey(fmt.Sprintf("key_%d", i))
		value := fmt.Sprintf("value_%d", i)
		if err := b.Put(key, value); err != nil {
			log.Fatalf("put key_%d: %v", i, err)
		}
	}
	fmt.Printf("  write completed in %v\n", time.Since(start))

	fmt.Println("\nStep 2: randomly reading 1,000 keys to verify integrity...")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	readStart := time.Now()
	errs := 0

	for i := 0; i < 1000; i++ {
		idx := rng.Intn(totalKeys)
		key := format.NewStringKey(fmt.Sprintf("key_%d", idx))
		want := fmt.Sprintf("value_%d", idx)

		got := b.Get(key, nil)
		if got != want {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: mismatch for %s: want %q, got %v\n", key, want, got)
			}
		}
	}

	readElapsed := time.Since(readStart)
	fmt.Printf("\n  read completed in %v (%.2f keys/second)\n", readElapsed, 1000.0/readElapsed.Seconds())

	fmt.Println(strings.Repeat("-", 61))
	fmt.Printf("Errors: %d\n", errs)
	if errs > 0 {
		fmt.Printf("\nTEST FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	fmt.Println("\nTEST PASSED: all 1,000 random reads returned correct values")
}

// Test 4: Compaction Test
func testCompaction(cfg *config.Config) {
	heading("Test 4: Compaction Test")

	b := openBench(cfg, "bench_compaction")
	defer b.Close()

	const totalKeys = 20000
	fmt.Printf("Step 1: writing %d keys...\n", totalKeys)
	for i := 0; i < totalKeys; i++ {
		key := format.NewStringKey(fmt.Sprintf("key_%d", i))
		if err := b.Put(key, fmt.Sprintf("value_%d", i)); err != nil {
			log.Fatalf("put key_%d: %v", i, err)
		}
	}

	logPath := filepath.Join(cfg.DATA_DIR, "bench_compaction.hive")
	beforeSize := statSizeOrZero(logPath)
	fmt.Printf("  log size before compaction: %d bytes\n", beforeSize)

	fmt.Printf("\nStep 2: deleting the first half (%d keys)...\n", totalKeys/2)
	for i := 0; i < totalKeys/2; i++ {
		if err := b.Delete(format.NewStringKey(fmt.Sprintf("key_%d", i))); err != nil {
			log.Fatalf("delete key_%d: %v", i, err)
		}
	}

	fmt.Println("\nStep 3: compacting...")
	if err := b.Compact(); err != nil {
		log.Fatalf("compact: %v", err)
	}
	afterSize := statSizeOrZero(logPath)
	fmt.Printf("  log size after compaction: %d bytes (shrank by %d)\n", afterSize, beforeSize-afterSize)

	if afterSize >= beforeSize {
		fmt.Println("\nTEST FAILED: compaction did not shrink the log")
		os.Exit(1)
	}

	fmt.Println("\nStep 4: verifying surviving keys round-trip...")
	errs := 0
	for i := totalKeys / 2; i < totalKeys; i++ {
		key := format.NewStringKey(fmt.Sprintf("key_%d", i))
		want := fmt.Sprintf("value_%d", i)
		if got := b.Get(key, nil); got != want {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: mismatch for %s: want %q, got %v\n", key, want, got)
			}
		}
	}
	for i := 0; i < totalKeys/2; i++ {
		key := format.NewStringKey(fmt.Sprintf("key_%d", i))
		if got := b.Get(key, nil); got != nil {
			errs++
			fmt.Printf("  ERROR: deleted key %s still present: %v\n", key, got)
		}
	}

	if errs > 0 {
		fmt.Printf("\nTEST FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	fmt.Println("\nTEST PASSED: compaction shrank the log and preserved surviving keys")
}

func statSizeOrZero(path string) int64 {
	stat, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return stat.Size()
}
