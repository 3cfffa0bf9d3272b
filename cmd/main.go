package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/featureflag"
	voxhttp "github.com/aukilabs/voxedit/http"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/aukilabs/voxedit/modules/clipboard"
	"github.com/aukilabs/voxedit/modules/voxels"
	"github.com/aukilabs/voxedit/smoketest"
	"github.com/aukilabs/voxedit/voxel"
	voxwebsocket "github.com/aukilabs/voxedit/websocket"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The voxedit version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "voxedit_info",
		Help:        "Voxedit information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"VOXEDIT_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"VOXEDIT_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"VOXEDIT_PUBLIC_ENDPOINT"       help:"The public endpoint where this voxedit server is reachable."`
	PrivateKey         string        `cli:""        env:"VOXEDIT_PRIVATE_KEY"           help:"The private key of the Ethereum-compatible wallet that signs snapshots."`
	PrivateKeyFile     string        `cli:""        env:"VOXEDIT_PRIVATE_KEY_FILE"      help:"The file that contains the private key that signs snapshots."`
	TrustedSigners     []string      `cli:""        env:"VOXEDIT_TRUSTED_SIGNERS"       help:"Comma separated wallet addresses whose snapshots can be imported. Empty trusts any valid signature."`
	AppKeys            []string      `cli:""        env:"VOXEDIT_APP_KEYS"              help:"Comma separated app keys allowed to connect. Empty allows every client."`
	LogLevel           string        `cli:""        env:"VOXEDIT_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"VOXEDIT_LOG_INDENT"            help:"Indent logs."`
	PaletteFile        string        `cli:""        env:"VOXEDIT_PALETTE_FILE"          help:"YAML file with the colors participants start with."`
	ScaleSteps         int           `cli:""        env:"VOXEDIT_SCALE_STEPS"           help:"The number of voxel scale steps."`
	ScaleOriginStep    int           `cli:""        env:"VOXEDIT_SCALE_ORIGIN_STEP"     help:"The scale step that maps to a voxel of size 1."`
	MaxSessionVoxels   int           `cli:""        env:"VOXEDIT_MAX_SESSION_VOXELS"    help:"The maximum number of voxels stored by a session. 0 means no limit."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"VOXEDIT_SYNC_CLOCK_INTERVAL"   help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"VOXEDIT_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	FrameDuration      time.Duration `cli:",hidden" env:"VOXEDIT_FRAME_DURATION"        help:"The duration of a session frame."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"VOXEDIT_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"VOXEDIT_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                             help:"Show version."`
	Help               bool          `cli:""        env:"-"                             help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"VOXEDIT_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"VOXEDIT_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"VOXEDIT_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"VOXEDIT_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ScaleSteps:         voxel.DefaultScaleSteps,
		ScaleOriginStep:    voxel.DefaultScaleOriginStep,
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		FrameDuration:      time.Millisecond * 15,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts voxedit server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "voxedit",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	privateKey, err := loadPrivateKey(conf)
	if err != nil {
		logs.Fatal(errors.New("error loading private key").Wrap(err))
	}

	palette := editor.DefaultPalette()
	if conf.PaletteFile != "" {
		if palette, err = editor.LoadPalette(conf.PaletteFile); err != nil {
			logs.Fatal(err)
		}
	}

	scales := voxel.ScaleRange{
		Steps:      conf.ScaleSteps,
		OriginStep: conf.ScaleOriginStep,
	}

	featureFlags := featureflag.New(conf.FeatureFlags)
	if unknown := featureFlags.Unknown(); len(unknown) != 0 {
		logs.Warn(errors.New("unknown feature flags").WithTag("flags", unknown))
	}

	appKeys := voxhttp.AppKeys(conf.AppKeys)
	sessions := models.SessionStore{}

	var service http.ServeMux
	service.Handle("/health", voxhttp.HandleWithCORS(http.HandlerFunc(voxhttp.HandleHealthCheck)))
	service.Handle("/version", voxhttp.HandleWithCORS(http.HandlerFunc(voxhttp.HandleVersion(version))))

	readinessCheck := func() bool {
		return ctx.Err() == nil
	}
	service.Handle("/ready", voxhttp.HandleWithCORS(http.HandlerFunc(voxhttp.HandleReadyCheck(readinessCheck))))

	service.Handle("/sessions/export", voxhttp.HandleWithCORS(
		voxhttp.VerifyAppKeyHandler(appKeys, voxhttp.HandleSessionExport(&sessions, privateKey))))

	service.HandleFunc("/smoke-test", voxhttp.VerifyAppKeyHandler(appKeys, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("Voxedit %s", version),
		SendResult: func(ctx context.Context, res smoketest.Result) error {
			logs.WithTag("smoke_test", res).Info("smoke test completed")
			return nil
		},
	})))

	newModules := func() []modules.Module {
		m := []modules.Module{
			&voxels.Module{
				Palette: palette,
				Scales:  scales,
			},
		}

		featureFlags.IfNotSet(featureflag.FlagDisableClipboard, func() {
			m = append(m, &clipboard.Module{
				PrivateKey:     privateKey,
				TrustedSigners: conf.TrustedSigners,
			})
		})
		return m
	}

	service.Handle("/", voxhttp.HandleWithCORS(websocket.Server{
		Handshake: voxhttp.VerifyAppKey(appKeys),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh voxwebsocket.Handler = &voxwebsocket.RealtimeHandler{
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				FrameDuration:           conf.FrameDuration,
				MaxSessionVoxels:        conf.MaxSessionVoxels,
				Sessions:                &sessions,
				Modules:                 newModules(),
				FeatureFlags:            featureFlags,
			}
			h := voxwebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = voxwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			voxwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", voxhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", voxhttp.HandleReadyCheck(readinessCheck))

	walletAddress := strings.ToLower(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("wallet_address", walletAddress).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting voxedit server")

	voxhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			voxhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// loadPrivateKey loads the snapshot signing key. An ephemeral key is
// generated when none is configured.
func loadPrivateKey(conf config) (*ecdsa.PrivateKey, error) {
	privateKey := conf.PrivateKey

	if len(conf.PrivateKeyFile) != 0 {
		privateKeyBytes, err := os.ReadFile(conf.PrivateKeyFile)
		if err != nil {
			return nil, errors.New("error loading private key from file").
				WithTag("file_name", conf.PrivateKeyFile).
				Wrap(err)
		}
		privateKey = string(privateKeyBytes)
	}

	privateKey = strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")

	if len(privateKey) == 0 {
		logs.Warn(errors.New("no private key configured, snapshots are signed with an ephemeral key"))
		return crypto.GenerateKey()
	}

	return crypto.HexToECDSA(privateKey)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if len(conf.PrivateKey) != 0 &&
		len(conf.PrivateKeyFile) != 0 {
		return errors.New("have to specify either private key or private key file, not both")
	}

	scales := voxel.ScaleRange{
		Steps:      conf.ScaleSteps,
		OriginStep: conf.ScaleOriginStep,
	}
	if !scales.Valid() {
		return errors.New("invalid voxel scale range").
			WithTag("steps", conf.ScaleSteps).
			WithTag("origin_step", conf.ScaleOriginStep)
	}

	if conf.MaxSessionVoxels < 0 {
		return errors.New("max session voxels cannot be negative")
	}

	for _, s := range conf.TrustedSigners {
		if !common.IsHexAddress(s) {
			return errors.New("invalid trusted signer").WithTag("signer", s)
		}
	}

	return nil
}
