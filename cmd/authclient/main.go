// Command authclient signs in to the account API and keeps the session in a
// local store between runs.
//
// Usage:
//
//	authclient [flags] signin -email a@b.com -password secret
//	authclient [flags] signup -name Ada -email a@b.com -password secret
//	authclient [flags] status|profile|signout
//
// The API base URL and other settings come from AUTHCLIENT_* environment
// variables, optionally loaded from a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/gateway"
	otelexport "github.com/MrEthical07/goAuthClient/metrics/export/otel"
	promexport "github.com/MrEthical07/goAuthClient/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthClient/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "authclient:", err)
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

type options struct {
	envFile    string
	store      string
	sqlitePath string
	redisAddr  string
	metrics    bool
	otel       bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("authclient", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var opts options
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load; missing files are ignored")
	flags.StringVar(&opts.store, "store", "sqlite", "session store: memory, sqlite, redis or miniredis")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "authclient.db", "sqlite database path")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; REDIS_ADDR is used when empty")
	flags.BoolVar(&opts.metrics, "metrics", false, "print Prometheus metrics after the command")
	flags.BoolVar(&opts.otel, "otel", false, "print OpenTelemetry metrics after the command")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}
	cfg, err := goAuthClient.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if opts.metrics || opts.otel {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	}

	logger := goAuthClient.NewLogger(cfg.Logging)
	logger.SetOutput(stderr)

	store, closeStore, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	client := &http.Client{Timeout: cfg.API.Timeout}
	builder := goAuthClient.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(logger)

	var (
		reader   *sdkmetric.ManualReader
		exporter *otelexport.Exporter
	)
	if opts.otel {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("shutdown meter provider")
			}
		}()
		exporter, err = otelexport.NewExporter(provider.Meter("github.com/MrEthical07/goAuthClient"))
		if err != nil {
			return err
		}
		defer exporter.Close()
		client.Transport = otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithMeterProvider(provider))
		builder.WithObserver(exporter)
	}

	m, err := builder.WithDoer(client).Build()
	if err != nil {
		return err
	}
	defer m.Close()

	if exporter != nil {
		if err := exporter.Track(m); err != nil {
			return err
		}
	}

	if err := m.WaitReady(ctx); err != nil {
		return err
	}

	if err := dispatch(ctx, m, flags.Arg(0), flags.Args()[1:], stdout, stderr); err != nil {
		return err
	}

	if opts.metrics {
		out, err := promexport.NewExporter(m).Render()
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, out)
	}
	if reader != nil {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			return fmt.Errorf("collect metrics: %w", err)
		}
		writeOTelMetrics(stdout, rm)
	}
	return nil
}

// writeOTelMetrics prints one line per data point: name{attrs} value. Histograms
// print their count and sum.
func writeOTelMetrics(w io.Writer, rm metricdata.ResourceMetrics) {
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s{%s} %d", m.Name, encodeAttrs(dp.Attributes), dp.Value))
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s{%s} %g", m.Name, encodeAttrs(dp.Attributes), dp.Value))
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s{%s} count=%d sum=%d", m.Name, encodeAttrs(dp.Attributes), dp.Count, dp.Sum))
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s{%s} count=%d sum=%g", m.Name, encodeAttrs(dp.Attributes), dp.Count, dp.Sum))
				}
			}
		}
	}
	sort.Strings(lines)
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func encodeAttrs(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}

func dispatch(ctx context.Context, m *goAuthClient.Manager, cmd string, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flags.SetOutput(stderr)

	switch cmd {
	case "signin":
		email := flags.String("email", "", "account email")
		password := flags.String("password", os.Getenv("AUTHCLIENT_PASSWORD"), "account password; defaults to AUTHCLIENT_PASSWORD")
		if err := flags.Parse(args); err != nil {
			return err
		}
		user, err := m.SignIn(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "signed in as %s <%s>\n", user.Name, user.Email)

	case "signup":
		name := flags.String("name", "", "display name")
		email := flags.String("email", "", "account email")
		password := flags.String("password", os.Getenv("AUTHCLIENT_PASSWORD"), "account password; defaults to AUTHCLIENT_PASSWORD")
		if err := flags.Parse(args); err != nil {
			return err
		}
		user, err := m.SignUp(ctx, *name, *email, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "registered %s <%s> (id %s)\n", user.Name, user.Email, user.ID)

	case "signout":
		m.SignOut(ctx)
		fmt.Fprintln(stdout, "signed out")

	case "status":
		st := m.State()
		if st.IsAuthenticated() {
			fmt.Fprintf(stdout, "%s: %s <%s>\n", st.Phase, st.User.Name, st.User.Email)
		} else {
			fmt.Fprintln(stdout, st.Phase)
		}

	case "profile":
		user, err := m.Profile(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "id:    %s\nname:  %s\nemail: %s\n", user.ID, user.Name, user.Email)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func openStore(ctx context.Context, opts options) (session.Store, func(), error) {
	switch opts.store {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil

	case "sqlite":
		s, err := session.OpenSQLiteStore(opts.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "redis":
		addr := opts.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			return nil, nil, errors.New("redis store needs -redis-addr or REDIS_ADDR")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
		}
		return session.NewRedisStore(client, "authclient", 0), func() { _ = client.Close() }, nil

	case "miniredis":
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		return session.NewRedisStore(client, "authclient", 0), func() {
			_ = client.Close()
			mr.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", opts.store)
	}
}
