package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	oauthkit "go.pilab.hu/oauthkit"
	"go.pilab.hu/oauthkit/config"
	"go.pilab.hu/oauthkit/domain"
	"go.pilab.hu/oauthkit/log"
	"go.pilab.hu/oauthkit/serviceaccount"
	"go.pilab.hu/oauthkit/statetoken"
	"go.pilab.hu/oauthkit/store"
	mongostore "go.pilab.hu/oauthkit/store/mongodb"
	redisstore "go.pilab.hu/oauthkit/store/redis"
)

var (
	cfg       *config.Config
	appLogger log.Logger
)

var (
	flagService      string
	flagClientID     string
	flagClientSecret string
	flagAuthURL      string
	flagTokenURL     string
	flagScope        string
	flagCallbackID   string
	flagSAKeyFile    string
)

var rootCmd = &cobra.Command{
	Use:   "oauthctl",
	Short: "oauthctl drives OAuth2 authorization flows from the command line",
	Long: `A command-line host for the oauthkit token lifecycle engine: print
authorization URLs, complete callbacks, and fetch or reset cached tokens.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		if cfg.LogPretty {
			zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		}

		appLogger = log.NewZerologAdapter(level, cfg.LogPretty)
		appLogger.Debug(cmd.Context(), "oauthctl starting", map[string]interface{}{
			"store_backend": cfg.StoreBackend,
			"service":       flagService,
		})

		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagService, "service", "default", "service name keying the token record")
	pf.StringVar(&flagClientID, "client-id", "", "OAuth2 client identifier")
	pf.StringVar(&flagClientSecret, "client-secret", "", "OAuth2 client secret")
	pf.StringVar(&flagAuthURL, "auth-url", "", "authorization endpoint URL")
	pf.StringVar(&flagTokenURL, "token-url", "", "token endpoint URL")
	pf.StringVar(&flagScope, "scope", "", "requested scope string")
	pf.StringVar(&flagCallbackID, "callback-id", "callback", "callback identifier appended to CALLBACK_BASE_URL")
	pf.StringVar(&flagSAKeyFile, "sa-key", "", "service account JSON key file (switches to the JWT bearer flow)")
}

// stateCodec builds the deployment's state token codec.
func stateCodec() (*statetoken.Codec, error) {
	if cfg.StateSecret == "" {
		return nil, fmt.Errorf("STATE_SECRET is not configured")
	}
	return statetoken.NewCodec([]byte(cfg.StateSecret),
		statetoken.WithMaxAge(time.Duration(cfg.StateMaxAgeMin)*time.Minute)), nil
}

// newStore builds the configured token record store. The returned cleanup
// releases the backend's resources.
func newStore(cmd *cobra.Command) (store.TokenStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory", "":
		mem := store.NewMemoryStore(0)
		return mem, func() { _ = mem.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return redisstore.NewTokenStore(client, cfg.RedisPrefix),
			func() { _ = client.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		appLogger.Debug(cmd.Context(), "connected to MongoDB token store", map[string]interface{}{
			"database": cfg.MongoDBName,
		})
		cleanup := func() { _ = client.Disconnect(cmd.Context()) }
		return mongostore.NewTokenStore(client.Database(cfg.MongoDBName)), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// newService assembles a Service from the deployment config and flags.
func newService(cmd *cobra.Command) (*oauthkit.Service, func(), error) {
	tokenStore, cleanup, err := newStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	var svcCfg *domain.ServiceConfig
	if flagSAKeyFile != "" {
		data, err := os.ReadFile(flagSAKeyFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to read service account key: %w", err)
		}
		key, err := serviceaccount.ParseKey(data)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		appLogger.Info(cmd.Context(), "using the JWT bearer flow", map[string]interface{}{
			"client_email": key.ClientEmail,
		})
		svcCfg = key.ServiceConfig(flagService, flagScope,
			domain.WithExpiryBuffer(time.Duration(cfg.ExpiryBufferSec)*time.Second))
	} else {
		svcCfg = domain.NewServiceConfig(flagService,
			domain.WithEndpoints(flagAuthURL, flagTokenURL),
			domain.WithClient(flagClientID, flagClientSecret),
			domain.WithScope(flagScope),
			domain.WithCallback(cfg.CallbackBaseURL, flagCallbackID),
			domain.WithExpiryBuffer(time.Duration(cfg.ExpiryBufferSec)*time.Second),
		)
	}

	opts := []oauthkit.Option{oauthkit.WithStore(tokenStore)}
	if cfg.StateSecret != "" {
		codec, err := stateCodec()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, oauthkit.WithStateCodec(codec))
	}

	svc, err := oauthkit.New(svcCfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}
