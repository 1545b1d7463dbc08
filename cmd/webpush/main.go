package main

import (
	"errors"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
)

// GlobalOptions are shared by every subcommand.
type GlobalOptions struct {
	Config string `short:"c" long:"config" env:"WEBPUSH_CONFIG" description:"path to a YAML config file; environment variables override it"`
}

func main() {
	opts := &GlobalOptions{}
	parser := flags.NewParser(opts, flags.Default)

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"serve", "run the HTTP server",
			"The serve command starts the HTTP endpoints, the broadcast queue and, when enabled, the scheduled broadcast.",
			&Serve{global: opts}},
		{"send:test-notifications", "broadcast the demo notification",
			"Sends the demo notification to every stored subscription and prints the delivery counts.",
			&SendTest{global: opts}},
		{"send", "broadcast a notification",
			"Sends a notification with the given title and body to every stored subscription.",
			&Send{global: opts}},
		{"vapid", "generate a VAPID key pair",
			"Prints a fresh VAPID key pair suitable for VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY.",
			&VAPID{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			log.Fatal(err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
