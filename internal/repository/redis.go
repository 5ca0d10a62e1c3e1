package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/model"
)

const (
	// Redis键
	BoardCacheKey      = "board:snapshot"
	SettingsCacheKey   = "settings:snapshot"
	ReservedContactKey = "voters:reserved:contacts"
	ReservedNameKey    = "voters:reserved:names"

	// Lua脚本
	// 一次性检查并占位两条去重轴，任一已占用则整体不写
	// 占位只是跨实例的快速预检，权威裁决仍在MySQL唯一键
	ReserveVoterScript = `
		-- 检查联系方式轴
		if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
			return {-1, "contact"}
		end

		-- 检查姓名轴
		if redis.call('SISMEMBER', KEYS[2], ARGV[2]) == 1 then
			return {-1, "name"}
		end

		-- 两轴同时占位
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('SADD', KEYS[2], ARGV[2])
		return {0, "ok"}
	`
)

type RedisRepository struct {
	client       *redis.Client
	ctx          context.Context
	scriptHashes map[string]string // 存储脚本SHA1哈希值
}

func NewRedisRepository() (*RedisRepository, error) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:         config.AppConfig.Redis.DataAddress,
		Password:     config.AppConfig.Redis.Password,
		DB:           config.AppConfig.Redis.DB,
		PoolSize:     config.AppConfig.Redis.PoolSize,
		MaxRetries:   config.AppConfig.Redis.MaxRetries,
		DialTimeout:  config.AppConfig.Redis.Timeout,
		ReadTimeout:  config.AppConfig.Redis.Timeout,
		WriteTimeout: config.AppConfig.Redis.Timeout,
	})

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis数据节点连接测试失败: %w", err)
	}

	repo := &RedisRepository{
		client:       client,
		ctx:          ctx,
		scriptHashes: make(map[string]string),
	}

	// 预加载Lua脚本
	if err := repo.preloadScripts(); err != nil {
		return nil, fmt.Errorf("预加载Lua脚本失败: %w", err)
	}

	return repo, nil
}

// preloadScripts 预加载所有Lua脚本
func (r *RedisRepository) preloadScripts() error {
	sha1, err := r.client.ScriptLoad(r.ctx, ReserveVoterScript).Result()
	if err != nil {
		return fmt.Errorf("加载投票人占位脚本失败: %w", err)
	}
	r.scriptHashes["reserveVoter"] = sha1

	return nil
}

// ReserveVoter 原子占位两条去重轴
// 返回重复错误表示占位失败；Redis重启后集合为空属于可接受的降级
func (r *RedisRepository) ReserveVoter(contactKey, nameKey string) error {
	sha1, ok := r.scriptHashes["reserveVoter"]
	if !ok {
		return fmt.Errorf("脚本未预加载")
	}

	keys := []string{ReservedContactKey, ReservedNameKey}
	result, err := r.client.EvalSha(r.ctx, sha1, keys, contactKey, nameKey).Result()
	if err != nil {
		// 脚本可能被FLUSH掉，重新加载后再试一次
		if err.Error() == "NOSCRIPT No matching script. Please use EVAL." {
			sha1, err = r.client.ScriptLoad(r.ctx, ReserveVoterScript).Result()
			if err != nil {
				return fmt.Errorf("重新加载投票人占位脚本失败: %w", err)
			}
			r.scriptHashes["reserveVoter"] = sha1

			result, err = r.client.EvalSha(r.ctx, sha1, keys, contactKey, nameKey).Result()
			if err != nil {
				return fmt.Errorf("执行投票人占位脚本失败: %w", err)
			}
		} else {
			return fmt.Errorf("执行投票人占位脚本失败: %w", err)
		}
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 2 {
		return fmt.Errorf("LUA脚本返回格式错误")
	}

	status, ok := resultSlice[0].(int64)
	if !ok {
		return fmt.Errorf("LUA脚本返回状态码类型错误")
	}

	if status != 0 {
		axis, _ := resultSlice[1].(string)
		if axis == "name" {
			return model.ErrDuplicateName
		}
		return model.ErrDuplicateContact
	}

	return nil
}

// ReleaseReservation 撤销占位，在MySQL提交失败后调用
func (r *RedisRepository) ReleaseReservation(contactKey, nameKey string) error {
	pipe := r.client.Pipeline()
	pipe.SRem(r.ctx, ReservedContactKey, contactKey)
	pipe.SRem(r.ctx, ReservedNameKey, nameKey)
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("撤销投票人占位失败: %w", err)
	}
	return nil
}

// ClearReservations 清空两条去重轴的占位集合，管理批量重置时调用
func (r *RedisRepository) ClearReservations() error {
	if err := r.client.Del(r.ctx, ReservedContactKey, ReservedNameKey).Err(); err != nil {
		return fmt.Errorf("清空投票人占位失败: %w", err)
	}
	return nil
}

// GetBoardCache 从缓存获取榜单快照
func (r *RedisRepository) GetBoardCache() (*model.Board, bool, error) {
	data, err := r.client.Get(r.ctx, BoardCacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil // 缓存未命中
		}
		return nil, false, fmt.Errorf("获取榜单缓存失败: %w", err)
	}

	var board model.Board
	if err := json.Unmarshal([]byte(data), &board); err != nil {
		return nil, false, fmt.Errorf("解析榜单缓存失败: %w", err)
	}

	return &board, true, nil
}

// SetBoardCache 写入榜单快照缓存
func (r *RedisRepository) SetBoardCache(board *model.Board) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("序列化榜单快照失败: %w", err)
	}

	if err := r.client.Set(r.ctx, BoardCacheKey, data, config.AppConfig.Redis.BoardCacheTTL).Err(); err != nil {
		return fmt.Errorf("设置榜单缓存失败: %w", err)
	}

	return nil
}

// DeleteBoardCache 删除榜单缓存，提交或管理变更后调用
func (r *RedisRepository) DeleteBoardCache() error {
	if err := r.client.Del(r.ctx, BoardCacheKey).Err(); err != nil {
		return fmt.Errorf("删除榜单缓存失败: %w", err)
	}
	return nil
}

// GetSettingsCache 从缓存获取选举设置
func (r *RedisRepository) GetSettingsCache() (*model.ElectionSettings, bool, error) {
	data, err := r.client.Get(r.ctx, SettingsCacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("获取设置缓存失败: %w", err)
	}

	var settings model.ElectionSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, false, fmt.Errorf("解析设置缓存失败: %w", err)
	}

	return &settings, true, nil
}

// SetSettingsCache 写入选举设置缓存
func (r *RedisRepository) SetSettingsCache(settings *model.ElectionSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("序列化选举设置失败: %w", err)
	}

	if err := r.client.Set(r.ctx, SettingsCacheKey, data, config.AppConfig.Redis.BoardCacheTTL).Err(); err != nil {
		return fmt.Errorf("设置选举设置缓存失败: %w", err)
	}

	return nil
}

// DeleteSettingsCache 删除选举设置缓存
func (r *RedisRepository) DeleteSettingsCache() error {
	if err := r.client.Del(r.ctx, SettingsCacheKey).Err(); err != nil {
		return fmt.Errorf("删除设置缓存失败: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
