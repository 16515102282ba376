package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/dm/solrctl/internal/config"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitFailure = 4
)

var version = "dev"

// parseServerURI parses a Solr server URI and returns the base URL (without
// credentials, query or a trailing /solr), username, and password.
func parseServerURI(serverURI string) (baseURL, username, password string, err error) {
	u, err := url.Parse(serverURI)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid URI %q: %w", serverURI, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", "", fmt.Errorf("unsupported scheme %q (must be http or https)", u.Scheme)
	}

	if u.Hostname() == "" {
		return "", "", "", fmt.Errorf("invalid URI %q: host is required", serverURI)
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return "", "", "", fmt.Errorf("invalid URI %q: port must be between 1 and 65535", serverURI)
		}
	}

	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
		// Remove credentials from URL stored in config
		u.User = nil
	}

	// Every admin path starts with /solr, so the base is scheme and host only.
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/solr")
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""

	return strings.TrimRight(u.String(), "/"), username, password, nil
}

// resolveCredentials picks each credential from the highest-priority source
// that sets it: flag (or its environment variable) > config file > URI.
func resolveCredentials(uriUser, uriPass, cfgUser, cfgPass, flagUser, flagPass string) (string, string) {
	user := firstNonEmpty(flagUser, cfgUser, uriUser)
	pass := firstNonEmpty(flagPass, cfgPass, uriPass)
	return user, pass
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	if _, err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUsage)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// exitRequest carries a kong exit (help, version, parse error) out of Parse.
type exitRequest int

// execute parses args, runs the selected command and returns the process
// exit code: 0 on success, 4 when the command failed, 2 on usage errors.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("solrctl"),
		kong.Description("Build, swap and maintain Solr cores."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitRequest(c)) }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = exitOK
			if req != 0 {
				code = exitUsage
			}
		}
	}()

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	rt, err := newRuntime(ctx, &cli, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	if err := kctx.Run(rt); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	return rt.code
}
