package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/domain"
)

// SendTest broadcasts the demo notification.
type SendTest struct {
	global *GlobalOptions
}

func (x *SendTest) Execute(args []string) error {
	ctx := context.Background()
	rt, err := bootstrap(ctx, x.global)
	if err != nil {
		return err
	}
	defer rt.Close()

	var report domain.DeliveryReport
	if err := rt.Module.Commands().SendTestNotifications.Execute(ctx, commands.SendTestNotifications{Report: &report}); err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

// Send broadcasts an operator supplied message.
type Send struct {
	global *GlobalOptions

	Title string `short:"t" long:"title" required:"true" description:"notification title (max 255 characters)"`
	Body  string `short:"b" long:"body" required:"true" description:"notification body"`
}

func (x *Send) Execute(args []string) error {
	req := commands.SendRequest{Title: x.Title, Body: x.Body}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := bootstrap(ctx, x.global)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.Module.Broadcasts().Broadcast(ctx, req.Title, req.Body)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

func printReport(w io.Writer, report domain.DeliveryReport) {
	if report.Attempted == 0 {
		fmt.Fprintln(w, "No subscribers to notify.")
		return
	}
	fmt.Fprintf(w, "Notifications sent: %d succeeded, %d failed (of %d)\n",
		report.Succeeded, report.Failed, report.Attempted)
	if report.Pruned > 0 {
		fmt.Fprintf(w, "Expired subscriptions removed: %d\n", report.Pruned)
	}
}
