package cmd

import (
	"context"
	"os"
	"time"

	coreconfig "github.com/AzielCF/az-chat/core/config"
	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	domainSession "github.com/AzielCF/az-chat/domains/session"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/AzielCF/az-chat/pkg/msgworker"
	"github.com/AzielCF/az-chat/pkg/utils"
	"github.com/AzielCF/az-chat/ui/websocket"
	"github.com/AzielCF/az-chat/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Realtime core
	presenceRegistry domainPresence.IPresenceRegistry
	topicRouter      domainTopic.ITopicRouter
	fanoutUsecase    domainFanout.IFanoutUsecase
	presenceSweeper  *usecase.PresenceSweeper
	wsHub            *websocket.Hub

	notificationPool *msgworker.MessageWorkerPool
	serverID         string

	appCtx    context.Context
	appCancel context.CancelFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "azchat",
	Short: "Presence and real-time fan-out for team chat",
	Long: `Tracks which users are online in which channels and pushes message,
typing and status events to every connected client over websockets.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("[APP] Failed to load configuration: %v", err)
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig applies values that only viper knows about, such as keys
// coming from a .env file loaded after the process started.
func initEnvConfig() {
	cfg := coreconfig.Global

	if v := viper.GetString("server_id"); v != "" {
		cfg.App.ServerID = v
	}
	if v := viper.GetString("app_env"); v != "" {
		cfg.App.Environment = v
	}
	if v := viper.GetString("app_identity_header"); v != "" {
		cfg.App.IdentityHeader = v
	}
	if cfg.Presence.SweepInterval > cfg.Presence.HeartbeatTimeout {
		logrus.Warnf("[APP] Sweep interval %s is longer than heartbeat timeout %s; expired users will linger until the next sweep",
			cfg.Presence.SweepInterval, cfg.Presence.HeartbeatTimeout)
	}
}

func initFlags() {
	cfg := coreconfig.Global

	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Port,
		"port", "p",
		cfg.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.App.Debug,
		"debug", "d",
		cfg.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.BasePath,
		"base-path", "",
		cfg.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/chat"`,
	)

	// Presence flags
	rootCmd.PersistentFlags().DurationVarP(
		&cfg.Presence.HeartbeatTimeout,
		"heartbeat-timeout", "",
		cfg.Presence.HeartbeatTimeout,
		`how long a user stays online without a heartbeat --heartbeat-timeout <duration> | example: --heartbeat-timeout=30s`,
	)
	rootCmd.PersistentFlags().DurationVarP(
		&cfg.Presence.SweepInterval,
		"sweep-interval", "",
		cfg.Presence.SweepInterval,
		`how often stale presence is expired --sweep-interval <duration> | example: --sweep-interval=10s`,
	)

	// Realtime flags
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Realtime.OutboundBuffer,
		"outbound-buffer", "",
		cfg.Realtime.OutboundBuffer,
		`frames queued per connection before it is dropped as slow --outbound-buffer <number> | example: --outbound-buffer=64`,
	)

	// Notification Worker Pool flags
	rootCmd.PersistentFlags().IntVarP(
		&cfg.WorkerPool.Size,
		"notify-workers", "",
		cfg.WorkerPool.Size,
		`number of concurrent notification workers --notify-workers <number> | example: --notify-workers=8`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.WorkerPool.QueueSize,
		"notify-queue-size", "",
		cfg.WorkerPool.QueueSize,
		`queue size per notification worker --notify-queue-size <number> | example: --notify-queue-size=256`,
	)
}

func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.Debugf("[APP] Settings: %v", coreconfig.GetAllSettings())
	}

	appCtx, appCancel = context.WithCancel(context.Background())
	serverID = utils.GetServerID(cfg.App.ServerID)

	// 1. Connection hub is the router's delivery target
	wsHub = websocket.NewHub(cfg.Realtime.OutboundBuffer, cfg.Realtime.PingInterval)

	// 2. Registry and router
	presenceRegistry = usecase.NewPresenceRegistry(cfg.Presence.HeartbeatTimeout, cfg.Presence.Shards)
	topicRouter = usecase.NewTopicRouter(wsHub, cfg.Router.Shards)

	// 3. Fan-out on top of both
	fanoutUsecase = usecase.NewFanoutService(topicRouter, presenceRegistry, cfg.Realtime.ExcludeTypingSender)

	// 4. Background work
	presenceSweeper = usecase.NewPresenceSweeper(presenceRegistry, cfg.Presence.SweepInterval, fanoutUsecase.HandleExpired)
	presenceSweeper.Start(appCtx)
	notificationPool = msgworker.GetGlobalPool()

	logrus.Infof("[APP] %s %s ready (server: %s, env: %s)", rootCmd.Use, cfg.App.Version, serverID, cfg.App.Environment)
}

func newSession(connectionID, userID string) domainSession.ISession {
	return usecase.NewConnectionSession(connectionID, userID, topicRouter, fanoutUsecase)
}

// StopApp stops background work and closes every live connection.
func StopApp() {
	logrus.Info("[APP] Stopping subsystems...")
	if presenceSweeper != nil {
		presenceSweeper.Stop()
	}
	msgworker.StopGlobalPool()
	if wsHub != nil {
		wsHub.CloseAll()
	}
	if appCancel != nil {
		appCancel()
	}
	logrus.Info("[APP] Shutdown complete")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorln(err)
		os.Exit(1)
	}
}
