package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpupo63/hundred-days/api"
	"github.com/rpupo63/hundred-days/cache"
	"github.com/rpupo63/hundred-days/config"
	"github.com/rpupo63/hundred-days/database"
	"github.com/rpupo63/hundred-days/services"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hundred-days",
	Short: "Project log for the 100 days of AI challenge",
	Long: `hundred-days serves the public project log and its password-protected
admin area. Run without a subcommand to start the web server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database tables",
	Long: `Create the projects table and its indexes if they do not exist yet.
Safe to run more than once.`,
	Args: cobra.NoArgs,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}

// loadConfig reads .env, then the environment, then SSM when
// SSM_PARAMETER_PATH is set. Later sources win.
func loadConfig(ctx context.Context) (map[string]string, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}
	c := config.New()
	setupLogging(c)

	parameterPath := config.GetString(c, config.SSMParameterPath, "")
	if parameterPath == "" {
		return c, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	n, err := config.LoadSSM(ctx, ssm.NewFromConfig(awsCfg), parameterPath, c)
	if err != nil {
		return nil, err
	}
	log.Info().Int("parameters", n).Str("path", parameterPath).Msg("Loaded parameters from SSM")
	return c, nil
}

func setupLogging(c map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.GetBool(c, "LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openDatabase connects to DATABASE_URL and, when REDIS_ADDR is set and
// reachable, puts the public reads behind Redis.
func openDatabase(ctx context.Context, c map[string]string) (database.Database, func(), error) {
	replicaURL := config.NormalizeDatabaseURL(config.GetString(c, config.DatabaseReplicaURL, ""))
	db, dialect, err := database.Open(config.GetDatabaseURL(c), replicaURL)
	if err != nil {
		return database.Database{}, nil, err
	}

	var opts []database.ProjectRepoOption
	closers := []func(){}

	if addr := config.GetString(c, "REDIS_ADDR", ""); addr != "" {
		rc := cache.NewRedisClient(&redis.Options{
			Addr:     addr,
			Password: config.GetString(c, "REDIS_PASSWORD", ""),
			DB:       config.GetInt(c, "REDIS_DB", 0),
		})
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, serving without cache")
			rc.Close()
		} else {
			ttl := time.Duration(config.GetInt(c, "CACHE_TTL_SECONDS", 60)) * time.Second
			opts = append(opts, database.WithCache(rc, ttl))
			closers = append(closers, func() { rc.Close() })
			log.Info().Str("addr", addr).Dur("ttl", ttl).Msg("Project cache enabled")
		}
	}

	currentDB := database.New(db, dialect, opts...)
	closers = append(closers, func() { currentDB.Close() })

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return currentDB, closeAll, nil
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	currentDB, closeDB, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := currentDB.Migrate(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database tables created.")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info().Msg("Initializing app...")

	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	currentDB, closeDB, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := currentDB.Ping(ctx); err != nil {
		return err
	}
	if config.GetBool(c, "AUTO_MIGRATE", false) {
		if err := currentDB.Migrate(); err != nil {
			return err
		}
	}

	opts := []api.RouterOption{}

	uploader, err := services.NewImageUploader(ctx, c)
	if err != nil {
		log.Warn().Err(err).Msg("Media uploads disabled")
	} else {
		opts = append(opts, api.WithUploader(uploader))
	}

	if natsURL := config.GetString(c, "NATS_URL", ""); natsURL != "" {
		nc, err := nats.Connect(natsURL, nats.Name("hundred-days"))
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer nc.Drain()
		opts = append(opts, api.WithEvents(services.NewProjectEvents(nc, config.GetString(c, "NATS_SUBJECT", services.DefaultEventSubject))))
		log.Info().Str("url", natsURL).Msg("Publishing project events to NATS")
	}

	server, err := api.NewServer(currentDB, c, opts...)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	// buffered so whichever of Start and listenToInterrupt loses the race
	// can still send and exit
	errChannel := make(chan error, 2)

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(time.Duration(config.GetInt(c, "SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second)
	return nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
