package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/darksilkmaster/socks4/internal/dialer"
	"github.com/darksilkmaster/socks4/internal/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen = pflag.String("listen", "", "Local TCP listen address to forward from (e.g. 127.0.0.1:8000)")
		target = pflag.String("target", "", "Destination host:port connections are forwarded to")

		upstream = pflag.String("upstream", defaultUpstream(), "Upstream proxy URL: direct:// | http://[user:pass@]host:port | https://[user:pass@]host:port | socks4://[user@]host:port | socks4a://[user@]host:port | socks5://[user:pass@]host:port")

		bindMode  = pflag.Bool("bind", false, "Request a SOCKS4 BIND for an inbound connection from --target instead of forwarding; requires a socks4:// or socks4a:// upstream")
		forwardTo = pflag.String("forward-to", "", "In bind mode, local host:port the proxied inbound connection is delivered to")

		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for proxy handshake to set up a connection")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose            = pflag.Bool("verbose", false, "Enable per-connection error logging")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	if *target == "" {
		return errors.New("--target is required")
	}

	dialCfg := dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
	}

	up, err := dialer.New(dialCfg, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *bindMode:
		if *forwardTo == "" {
			return errors.New("--bind requires --forward-to")
		}
		g.Go(func() error {
			return runBind(ctx, up, *target, *forwardTo, *dialTimeout)
		})

	default:
		if *listen == "" {
			return errors.New("--listen is required (or use --bind)")
		}

		cfg := proxy.Config{
			NegotiationTimeout: *negotiationTimeout,
			KeepAlive:          ka,
			Dialer:             up,
		}

		ln, err := proxy.ListenTCP(ctx, "tcp", *listen, ka)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		fwd := proxy.NewForwarder(ctx, cfg, *target, *verbose)
		g.Go(func() error {
			if err := fwd.Serve(ln); err != nil {
				return fmt.Errorf("forward serve: %w", err)
			}
			return nil
		})
		log.Printf("forwarding %s to %s via %s", *listen, *target, *upstream)
	}

	err = g.Wait()

	log.Print("shutting down")
	return err
}

// runBind asks the proxy for a listening endpoint, waits for the one
// inbound connection from target, and splices it to forwardTo.
func runBind(ctx context.Context, up dialer.Dialer, target, forwardTo string, dialTimeout time.Duration) error {
	binder, ok := up.(dialer.Binder)
	if !ok {
		return errors.New("--bind requires a socks4:// or socks4a:// upstream")
	}

	l, err := binder.BindContext(ctx, "tcp", target)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	context.AfterFunc(ctx, func() {
		_ = l.Close()
	})

	addr, err := l.Addr()
	if err != nil {
		return fmt.Errorf("bind address: %w", err)
	}
	log.Printf("proxy accepting on %s for %s", addr, target)

	conn, err := l.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("bind accept: %w", err)
	}
	defer conn.Close()
	log.Printf("inbound connection via %s", conn.ProxyAddr())

	d := net.Dialer{Timeout: dialTimeout}
	local, err := d.DialContext(ctx, "tcp", forwardTo)
	if err != nil {
		return fmt.Errorf("dial --forward-to: %w", err)
	}

	return proxy.CopyBidirectional(ctx, conn, local)
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}
	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}
	return "direct://"
}
