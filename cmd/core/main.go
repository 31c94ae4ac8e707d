package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"gopkg.in/yaml.v3"

	grpc_adapter "github.com/JoeShih716/go-vault-ledger/internal/app/core/adapter/in/grpc"
	event_adapter "github.com/JoeShih716/go-vault-ledger/internal/app/core/adapter/out/event"
	gateway_adapter "github.com/JoeShih716/go-vault-ledger/internal/app/core/adapter/out/gateway"
	memory_adapter "github.com/JoeShih716/go-vault-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-vault-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	grpcpool "github.com/JoeShih716/go-vault-ledger/pkg/grpc"
	"github.com/JoeShih716/go-vault-ledger/pkg/metrics"
	"github.com/JoeShih716/go-vault-ledger/pkg/mysql"
	"github.com/JoeShih716/go-vault-ledger/pkg/wal"
	pb "github.com/JoeShih716/go-vault-ledger/proto"
)

// 後端種類
const (
	BackendMySQL       = "mysql"        // Level 0
	BackendMemoryMutex = "memory_mutex" // Level 1
	BackendMemoryLMAX  = "memory_lmax"  // Level 2
)

type Config struct {
	Vault struct {
		Backend          string `yaml:"backend"`
		BankCap          int64  `yaml:"bank_cap"`
		PerWithdrawalCap int64  `yaml:"per_withdrawal_cap"`
		WALPath          string `yaml:"wal_path"`
	} `yaml:"vault"`
	Server struct {
		Listen        string `yaml:"listen"`
		MetricsListen string `yaml:"metrics_listen"`
	} `yaml:"server"`
	Gateway struct {
		Target    string `yaml:"target"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"gateway"`
	MySQL mysql.Config `yaml:"mysql"`
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "vault-core").Logger()

	// 1. 載入設定
	cfg := loadConfig(logger)

	limits := domain.Limits{
		BankCap:          cfg.Vault.BankCap,
		PerWithdrawalCap: cfg.Vault.PerWithdrawalCap,
	}
	if err := limits.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid vault limits")
	}

	// lifecycle context: 關閉時停止 LMAX 迴圈與事件投遞
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 資金釋出通道
	pool := grpcpool.NewPool()
	defer pool.Close()

	var fundGateway usecase.FundGateway
	if cfg.Gateway.Target != "" {
		fundGateway = gateway_adapter.NewGrpcGateway(
			pool, cfg.Gateway.Target,
			time.Duration(cfg.Gateway.TimeoutMS)*time.Millisecond,
			logger)
	} else {
		fundGateway = gateway_adapter.NewLocalGateway(logger)
	}

	// 3. 事件通知: log + metrics，非同步投遞避免回壓帳本
	registry := prometheus.NewRegistry()
	vaultMetrics := metrics.New(registry)

	sink := event_adapter.NewAsyncSink(event_adapter.MultiSink{
		event_adapter.NewLogSink(logger),
		event_adapter.NewMetricsSink(vaultMetrics),
	}, 4096, logger)
	sink.Start(ctx)

	// 4. 初始化 MySQL Client (有設定才連)
	var dbClient *mysql.Client
	var accounts map[int64]*domain.Account

	if cfg.MySQL.Host != "" {
		var err error
		dbClient, err = mysql.NewClient(cfg.MySQL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mysql")
		}
		defer dbClient.Close()
		logger.Info().Msg("connected to mysql")
	}

	var mysqlVault *mysql_adapter.MySQLVault
	if dbClient != nil {
		var err error
		mysqlVault, err = mysql_adapter.NewMySQLVault(dbClient, limits, fundGateway, sink)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init mysql vault")
		}
		if err := mysqlVault.AutoMigrate(); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate vault tables")
		}

		// 5. 載入帳戶，讓記憶體後端接手既有餘額
		accounts, err = mysqlVault.LoadAllAccounts(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load accounts")
		}
		logger.Info().Int("count", len(accounts)).Msg("loaded accounts")
	}

	// 6. 依設定挑選後端
	var usedVault usecase.Vault
	switch cfg.Vault.Backend {
	case BackendMySQL:
		if mysqlVault == nil {
			logger.Fatal().Msg("mysql backend requires mysql config")
		}
		usedVault = mysqlVault

	case BackendMemoryMutex:
		walFile, err := wal.NewWAL(cfg.Vault.WALPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init wal")
		}
		defer walFile.Close()

		mutexVault, err := memory_adapter.NewMutexVault(limits, accounts, walFile, fundGateway, sink, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init mutex vault")
		}
		usedVault = mutexVault

	case BackendMemoryLMAX:
		walFile, err := wal.NewWAL(cfg.Vault.WALPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init wal")
		}
		defer walFile.Close()

		lmaxVault, err := memory_adapter.NewLMAXVault(limits, accounts, walFile, fundGateway, sink, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init lmax vault")
		}
		lmaxVault.Start(ctx)
		usedVault = lmaxVault

	default:
		logger.Fatal().Str("backend", cfg.Vault.Backend).Msg("invalid vault backend")
	}

	// 7. 初始化 UseCase 與 gRPC Adapter (Driving Adapter)
	coreUseCase := usecase.NewCoreUseCase(usedVault)
	grpcServer := grpc_adapter.NewGrpcServer(coreUseCase)

	// 8. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen")
	}

	s := grpc.NewServer()
	pb.RegisterVaultServiceServer(s, grpcServer)
	reflection.Register(s) // 方便 gRPC Client 測試 (如 Postman/BloomRPC)

	go func() {
		logger.Info().Str("listen", cfg.Server.Listen).Msg("starting grpc server")
		if err := s.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	// 9. Metrics endpoint
	metricsServer := &http.Server{
		Addr: cfg.Server.MetricsListen,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
		}),
	}
	go func() {
		logger.Info().Str("listen", cfg.Server.MetricsListen).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	s.GracefulStop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info().Msg("server exited")
}

func loadConfig(logger zerolog.Logger) Config {
	cfgData, err := os.ReadFile("config/config.yaml")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read config file")
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse config")
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Vault.Backend == "" {
		cfg.Vault.Backend = BackendMemoryMutex
	}
	if cfg.Vault.WALPath == "" {
		cfg.Vault.WALPath = "wal.log"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":50051"
	}
	if cfg.Server.MetricsListen == "" {
		cfg.Server.MetricsListen = ":9100"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}
