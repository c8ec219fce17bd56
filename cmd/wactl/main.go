package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "wactl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var baseURL string

	flagSet := pflag.NewFlagSet("wactl", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "url", defaultBaseURL(), "bridge base URL (env WACTL_URL)")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return fmt.Errorf("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewGatewayClient(baseURL)
	command, params := rest[0], rest[1:]

	switch command {
	case "init":
		if len(params) != 1 {
			return fmt.Errorf("usage: wactl init <sessionId>")
		}
		res, err := client.InitSession(ctx, params[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)

	case "send":
		if len(params) != 3 {
			return fmt.Errorf("usage: wactl send <sessionId> <number> <message>")
		}
		res, err := client.SendMessage(ctx, params[0], params[1], params[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)

	case "qr":
		if len(params) != 1 {
			return fmt.Errorf("usage: wactl qr <sessionId>")
		}
		page, err := client.QR(ctx, params[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, page)

	case "status":
		if len(params) != 1 {
			return fmt.Errorf("usage: wactl status <sessionId>")
		}
		st, err := client.Status(ctx, params[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", st.SessionID, st.State, st.JID)

	case "health":
		msg, err := client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)

	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}

func defaultBaseURL() string {
	if u := os.Getenv("WACTL_URL"); u != "" {
		return u
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return "http://localhost:" + port
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wactl drives a running WhatsApp CRM bridge.

Usage:
  wactl [flags] <command> [args]

Commands:
  init <sessionId>                    start or restore a session
  send <sessionId> <number> <message> send a text message
  qr <sessionId>                      print the pending QR page
  status <sessionId>                  print session state
  health                              check the gateway

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
