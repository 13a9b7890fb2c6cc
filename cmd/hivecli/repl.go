package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jassi-singh/hivebox/internal/box"
	"github.com/jassi-singh/hivebox/internal/format"
)

// repl is the interactive command loop, grounded on calvinalkan-agent-task's
// cmd/sloty REPL: peterh/liner for readline-style input with tab completion
// and a persisted history file, a strings.Fields dispatcher per command.
type repl struct {
	box   box.Box
	name  string
	liner *liner.State
}

func runREPL(name string) error {
	b, err := openBox(name)
	if err != nil {
		return err
	}
	defer b.Close()

	r := &repl{box: b, name: name}
	return r.run()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hivecli_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("hivebox - box %q\n", r.name)
	fmt.Println("Commands: PUT <key> <value>, GET <key>, DELETE <key>, PUTALL, DELETEALL, CLEAR, COMPACT, WATCH <key|*> [seconds], EXIT")
	fmt.Println()

	for {
		line, err := r.liner.Prompt(fmt.Sprintf("%s> ", r.name))
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToUpper(parts[0])
		args := parts[1:]

		switch cmd {
		case "EXIT", "QUIT", "Q":
			r.saveHistory()
			fmt.Println("Bye!")
			return nil
		case "HELP", "?":
			r.printHelp()
		case "PUT":
			r.cmdPut(args)
		case "GET":
			r.cmdGet(args)
		case "DELETE", "DEL":
			r.cmdDelete(args)
		case "PUTALL":
			r.cmdPutAll(args)
		case "DELETEALL":
			r.cmdDeleteAll(args)
		case "CLEAR":
			r.cmdClear()
		case "COMPACT":
			r.cmdCompact()
		case "WATCH":
			r.cmdWatch(args)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

// completer offers tab completion over the REPL's own command set.
func (r *repl) completer(line string) []string {
	commands := []string{
		"put", "get", "delete", "del", "putall", "deleteall",
		"clear", "compact", "watch", "help", "exit", "quit",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}
	return completions
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value>             Insert or overwrite a key")
	fmt.Println("  get <key>                     Retrieve a key's value")
	fmt.Println("  delete <key>                  Remove a key")
	fmt.Println("  putall <k1> <v1> [k2 v2 ...]  Batch insert as one disk write")
	fmt.Println("  deleteall <k1> [k2 ...]       Batch delete as one disk write")
	fmt.Println("  clear                         Remove every key")
	fmt.Println("  compact                       Rewrite the log, dropping dead frames")
	fmt.Println("  watch <key|*> [seconds]       Print change events (default 5s)")
	fmt.Println("  help                          Show this help")
	fmt.Println("  exit / quit / q               Exit")
}

func (r *repl) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: put <key> <value>")
		return
	}
	if err := r.box.Put(parseKey(args[0]), strings.Join(args[1:], " ")); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}
	value := r.box.Get(parseKey(args[0]), nil)
	if value == nil {
		fmt.Println("(nil)")
		return
	}
	fmt.Printf("%v\n", value)
}

func (r *repl) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: delete <key>")
		return
	}
	if err := r.box.Delete(parseKey(args[0])); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdPutAll(args []string) {
	if len(args) < 2 || len(args)%2 != 0 {
		fmt.Println("Usage: putall <k1> <v1> [k2 v2 ...]")
		return
	}
	pairs := make([]box.KV, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs = append(pairs, box.KV{Key: parseKey(args[i]), Value: args[i+1]})
	}
	if err := r.box.PutAll(pairs); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdDeleteAll(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: deleteall <k1> [k2 ...]")
		return
	}
	keys := make([]format.Key, len(args))
	for i, a := range args {
		keys[i] = parseKey(a)
	}
	if err := r.box.DeleteAll(keys); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdClear() {
	n, err := r.box.Clear()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("removed %d keys\n", n)
}

func (r *repl) cmdCompact() {
	if err := r.box.Compact(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

// cmdWatch subscribes and prints events for a fixed window rather than
// indefinitely, so a REPL session isn't left unresponsive to other commands.
func (r *repl) cmdWatch(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: watch <key|*> [seconds]")
		return
	}

	var filter *format.Key
	if args[0] != "*" {
		k := parseKey(args[0])
		filter = &k
	}

	seconds := 5
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			seconds = n
		}
	}

	ch, err := r.box.Watch(filter)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("watching for %ds...\n", seconds)
	deadline := time.After(time.Duration(seconds) * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Deleted {
				fmt.Printf("DELETE %s\n", ev.Key)
			} else {
				fmt.Printf("PUT %s = %v\n", ev.Key, ev.Value)
			}
		case <-deadline:
			return
		}
	}
}
