// Command authctl calls the auth services over NATS.
//
//	authctl [-servers nats://localhost:4222] register -name Ana -email ana@x.com -password secret1
//	authctl login -email ana@x.com -password secret1
//	authctl verify -token <jwt>
//
// Servers default to NATS_SERVERS. The result is printed as JSON; a
// structured error exits with status 1.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/auth-service/client"
	domain "github.com/example/auth-service/domain/user"
	"github.com/example/auth-service/modules/auth"
	"github.com/joho/godotenv"
)

const usage = `usage: authctl [-servers list] [-timeout d] <command> [flags]

commands:
  register -name NAME -email EMAIL -password PASSWORD
  login    -email EMAIL -password PASSWORD
  verify   -token TOKEN
`

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("authctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	servers := global.String("servers", os.Getenv("NATS_SERVERS"), "comma-separated NATS server URLs")
	timeout := global.Duration("timeout", client.DefaultTimeout, "request timeout")
	if err := global.Parse(args); err != nil {
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	call, err := parseCommand(rest[0], rest[1:], stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	serverList := splitServers(*servers)
	if len(serverList) == 0 {
		fmt.Fprintln(stderr, "no NATS servers: set -servers or NATS_SERVERS")
		return 2
	}

	c, err := client.Connect(serverList, client.WithTimeout(*timeout))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer c.Close()

	result, err := call(context.Background(), c)
	return report(result, err, stdout, stderr)
}

type command func(ctx context.Context, port auth.AuthPort) (*domain.AuthResult, error)

func parseCommand(name string, args []string, stderr io.Writer) (command, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch name {
	case "register":
		var req auth.RegisterRequest
		fs.StringVar(&req.Name, "name", "", "display name")
		fs.StringVar(&req.Email, "email", "", "email address")
		fs.StringVar(&req.Password, "password", "", "password")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, port auth.AuthPort) (*domain.AuthResult, error) {
			return port.Register(ctx, req)
		}, nil

	case "login":
		var req auth.LoginRequest
		fs.StringVar(&req.Email, "email", "", "email address")
		fs.StringVar(&req.Password, "password", "", "password")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, port auth.AuthPort) (*domain.AuthResult, error) {
			return port.Login(ctx, req)
		}, nil

	case "verify":
		token := fs.String("token", "", "token to verify")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, port auth.AuthPort) (*domain.AuthResult, error) {
			return port.Verify(ctx, *token)
		}, nil

	default:
		return nil, fmt.Errorf("unknown command %q\n\n%s", name, usage)
	}
}

func report(result *domain.AuthResult, err error, stdout, stderr io.Writer) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if err != nil {
		var rpcErr *auth.RPCError
		if errors.As(err, &rpcErr) {
			_ = enc.Encode(map[string]*auth.RPCError{"error": rpcErr})
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func splitServers(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
