package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/api/graph"
	intkafka "github.com/lvdashuaibi/pulsevote/internal/kafka"
	"github.com/lvdashuaibi/pulsevote/internal/lock"
	"github.com/lvdashuaibi/pulsevote/internal/realtime"
	"github.com/lvdashuaibi/pulsevote/internal/repository"
	"github.com/lvdashuaibi/pulsevote/internal/service"
	"github.com/lvdashuaibi/pulsevote/internal/snapshot"
)

const (
	ServiceStartLockName = "pulsevote:service:start:lock"
	LockAcquireTimeout   = 30 * time.Second
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
	instanceID = flag.Int("instance", 1, "实例ID，用于区分多个实例")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("配置加载成功，当前实例ID: %d", *instanceID)

	// 创建数据库连接
	mysqlRepo, err := repository.NewMySQLRepository()
	if err != nil {
		log.Fatalf("初始化MySQL仓库失败: %v", err)
	}
	defer mysqlRepo.Close()
	log.Printf("MySQL仓库初始化成功")

	// 创建Redis连接
	redisRepo, err := repository.NewRedisRepository()
	if err != nil {
		log.Fatalf("初始化Redis仓库失败: %v", err)
	}
	defer redisRepo.Close()
	log.Printf("Redis仓库初始化成功")

	// 创建分布式锁
	distributedLock, err := lock.NewETCDLock()
	if err != nil {
		log.Fatalf("初始化ETCD分布式锁失败: %v", err)
	}
	defer distributedLock.Close()
	log.Printf("ETCD分布式锁初始化成功")

	// 获取服务启动锁，持锁实例负责建表、预置设置与灌入种子候选人
	lockAcquired, err := distributedLock.AcquireLock(ServiceStartLockName, LockAcquireTimeout)
	if err != nil {
		log.Printf("获取服务启动锁失败: %v，将以普通节点模式启动", err)
	}

	var isLeader bool
	if lockAcquired {
		log.Printf("实例 %d 获取服务启动锁成功，将作为leader启动", *instanceID)
		isLeader = true
		defer distributedLock.ReleaseLock(ServiceStartLockName)

		if err := bootstrap(mysqlRepo); err != nil {
			log.Fatalf("初始化账本失败: %v", err)
		}
	} else {
		log.Printf("实例 %d 未获取到服务启动锁，以普通节点模式启动", *instanceID)
	}

	// 创建Kafka生产者
	producer, err := intkafka.NewProducer()
	if err != nil {
		log.Fatalf("初始化Kafka生产者失败: %v", err)
	}
	defer producer.Close()
	log.Printf("Kafka生产者初始化成功")

	// 创建Kafka消费者
	consumer, err := intkafka.NewConsumer()
	if err != nil {
		log.Fatalf("初始化Kafka消费者失败: %v", err)
	}
	defer consumer.Stop()
	log.Printf("Kafka消费者初始化成功")

	// 创建实时订阅中枢
	broker := realtime.NewBroker()

	// 创建投票服务
	voteService := service.NewVoteService(mysqlRepo, redisRepo, redisRepo, producer, broker)
	log.Printf("投票服务初始化成功")

	// 创建管理服务
	adminService := service.NewAdminService(mysqlRepo, redisRepo, redisRepo, producer, voteService, distributedLock)
	log.Printf("管理服务初始化成功")

	// 启动榜单快照刷新器（持锁实例才真正刷新）
	snapshotService := snapshot.NewSnapshotService(voteService, distributedLock, isLeader)
	snapshotService.Start()
	defer snapshotService.Stop()
	log.Printf("榜单快照刷新器初始化成功，刷新者模式: %v", isLeader)

	// 启动Kafka消费者
	consumer.StartConsuming(voteService.HandleTallyEvent)
	log.Printf("Kafka消费者已启动")

	// 创建GraphQL服务
	graphqlServer := graph.NewGraphQLServer(voteService, adminService, broker)
	log.Printf("GraphQL服务初始化成功")

	// 计算端口，支持多实例
	serverPort := cfg.Server.Port + *instanceID - 1

	// 启动HTTP服务器(异步)
	go func() {
		if err := graphqlServer.Start(serverPort); err != nil {
			log.Fatalf("启动GraphQL服务器失败: %v", err)
		}
	}()

	log.Printf("PulseVote 系统 (实例 %d) 已启动，服务地址: http://localhost:%d", *instanceID, serverPort)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务...")
}

// bootstrap leader实例的一次性初始化：建表、预置设置、灌入种子候选人
func bootstrap(mysqlRepo *repository.MySQLRepository) error {
	if err := mysqlRepo.EnsureSchema(config.AppConfig.Election.InitialBaseline); err != nil {
		return err
	}

	hasCandidates, err := mysqlRepo.HasCandidates()
	if err != nil {
		return err
	}
	if hasCandidates || len(config.AppConfig.Election.SeedCandidates) == 0 {
		return nil
	}

	adminService := service.NewAdminService(mysqlRepo, nil, nil, nil, nil, nil)
	for _, seed := range config.AppConfig.Election.SeedCandidates {
		if _, err := adminService.AddCandidate(config.AppConfig.Admin.Passcode, seed.Name, seed.Bio, seed.ImageRef); err != nil {
			return err
		}
		log.Printf("已预置候选人: %s", seed.Name)
	}
	return nil
}
