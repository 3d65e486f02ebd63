package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/logger"
	"github.com/life2you_mini/cycle/internal/models"
	"github.com/life2you_mini/cycle/internal/secrets"
	"github.com/life2you_mini/cycle/internal/services"
	"github.com/life2you_mini/cycle/internal/storage"
)

var (
	configFile    = flag.String("config", "config/config.yaml", "配置文件路径")
	initConfig    = flag.Bool("init-config", false, "把默认配置写入配置文件后退出")
	storeAgentKey = flag.Bool("store-agent-key", false, "把AGENT_PRIVATE_KEY保存到密钥存储后退出")
	addAccount    = flag.String("add-account", "", "添加一个交易账户(钱包地址)后退出")
	agentWallet   = flag.String("agent-wallet", "", "配合-add-account使用的代理钱包地址")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// .env不存在时忽略
	_ = godotenv.Load()

	if *initConfig {
		if err := config.SaveConfigToFile(config.GetDefaultConfig(), *configFile); err != nil {
			fmt.Printf("写入默认配置失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("默认配置已写入 %s\n", *configFile)
		return
	}

	// 加载配置
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(logger.Options{
		Dir:        cfg.System.LogDir,
		Level:      cfg.System.LogLevel,
		MaxSizeMB:  cfg.System.LogMaxSizeMB,
		MaxBackups: cfg.System.LogMaxBackups,
		MaxAgeDays: cfg.System.LogMaxAgeDays,
		Compress:   cfg.System.LogCompress,
	})
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("加载配置成功", zap.String("配置文件", *configFile))

	switch {
	case *storeAgentKey:
		if err := runStoreAgentKey(cfg, log); err != nil {
			log.Fatal("保存代理钱包私钥失败", zap.Error(err))
		}
		return
	case *addAccount != "":
		if err := runAddAccount(cfg, log); err != nil {
			log.Fatal("添加交易账户失败", zap.Error(err))
		}
		return
	}

	// 创建上下文，用于处理信号
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 设置信号处理
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// 创建服务
	service, err := services.NewCycleService(ctx, cfg, log)
	if err != nil {
		log.Fatal("创建服务失败", zap.Error(err))
	}

	// 启动服务
	service.Start()
	log.Info("服务已启动", zap.Bool("live_trading", cfg.Exchange.LiveTrading))

	// 等待终止信号
	sig := <-signalChan
	log.Info("接收到信号，准备关闭服务", zap.String("signal", sig.String()))

	// 创建关闭超时上下文，需覆盖一个完整周期
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer shutdownCancel()

	// 停止服务
	if err := service.Stop(shutdownCtx); err != nil {
		log.Error("服务关闭失败", zap.Error(err))
		os.Exit(1)
	}

	log.Info("服务已优雅关闭")
}

// runStoreAgentKey 把环境变量中的代理钱包私钥写入加密存储
func runStoreAgentKey(cfg *config.Config, log *zap.Logger) error {
	privateKey := os.Getenv("AGENT_PRIVATE_KEY")
	if privateKey == "" {
		return fmt.Errorf("未设置AGENT_PRIVATE_KEY")
	}
	encryptionKey, err := secrets.ParseEncryptionKey(cfg.SecretStore.EncryptionKey)
	if err != nil {
		return err
	}

	store, err := secrets.Open(secrets.Options{Path: cfg.SecretStore.Path, EncryptionKey: encryptionKey})
	if err != nil {
		return err
	}
	defer store.Close()

	address, err := store.PutAgentKey(privateKey)
	if err != nil {
		return err
	}
	log.Info("代理钱包私钥已保存", zap.String("agent_wallet", address))
	return nil
}

// runAddAccount 添加一个允许交易的账户
func runAddAccount(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.NewAccountStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.AddAccount(ctx, &models.Account{
		WalletAddress: *addAccount,
		AgentWallet:   *agentWallet,
		Status:        models.AccountStatusTrading,
	})
	if err != nil {
		return err
	}
	log.Info("交易账户已添加", zap.Int64("account_id", id), zap.String("wallet_address", *addAccount))
	return nil
}
