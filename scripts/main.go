package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/flexprice/subscriptions/scripts/internal"
	"github.com/samber/lo"
)

type command struct {
	name  string
	usage string
	run   func() error
}

var commands = []command{
	{"seed-plans", "create the plans listed in -plans-file (or PLANS_FILE)", internal.SeedPlans},
	{"list-plans", "print the plan catalog", internal.ListPlans},
	{"run-sweep", "expire overdue subscriptions and charge the ones due today", internal.RunSweep},
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: scripts [-plans-file path] -cmd <command>\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-12s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(flag.CommandLine.Output())
	flag.PrintDefaults()
}

func main() {
	name := flag.String("cmd", "", "command to run")
	plansFile := flag.String("plans-file", "", "JSON list of plans for seed-plans")
	flag.Usage = usage
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	cmd, ok := lo.Find(commands, func(c command) bool { return c.name == *name })
	if !ok {
		log.Fatalf("unknown command %q, run with -h for the list", *name)
	}

	if *plansFile != "" {
		os.Setenv("PLANS_FILE", *plansFile)
	}

	if err := cmd.run(); err != nil {
		log.Fatalf("%s: %v", cmd.name, err)
	}
}
