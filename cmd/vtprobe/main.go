package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	var (
		platformName = flag.String("platform", "native", "Platform to run on (native, sim)")
		probeName    = flag.String("probe", "all", "Probe to run (all, "+strings.Join(probeNames(), ", ")+")")
		args         = flag.String("args", "", "Probe arguments (comma-separated)")
		count        = flag.Int("count", 1, "Number of times to run each probe")
		verbose      = flag.Bool("v", false, "Verbose logging")
		list         = flag.Bool("list", false, "List probes and exit")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *list {
		for _, p := range probes {
			fmt.Printf("  %-8s %s\n", p.name, p.desc)
		}
		return
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	s, err := openSession(*platformName, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		err = runInteractive(s)
	} else {
		err = run(s, *probeName, *args, *count)
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(s *session, name, argStr string, count int) error {
	fmt.Printf("Platform: %s\n", s.platform)

	selected := probes
	if name != "all" {
		p, ok := findProbe(name)
		if !ok {
			return fmt.Errorf("unknown probe %q", name)
		}
		selected = []probe{p}
	}

	var args []string
	if argStr != "" {
		args = strings.Split(argStr, ",")
	}

	for _, p := range selected {
		probeArgs := p.defaults()
		if len(selected) == 1 {
			copy(probeArgs, args)
		}
		for i := range count {
			fmt.Printf("\n%s", p.name)
			if count > 1 {
				fmt.Printf(" #%d", i+1)
			}
			fmt.Printf("(%s)\n", strings.Join(probeArgs, ", "))
			out, err := p.run(s, probeArgs)
			if err != nil {
				return fmt.Errorf("probe %s: %w", p.name, err)
			}
			fmt.Println(out)
		}
	}

	fmt.Printf("\n%s\n", s.stats())
	return nil
}
