package repository

import (
	"database/sql"
	"fmt"
)

// 建表语句，启动时由leader实例执行
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
		id          VARCHAR(64)  NOT NULL,
		name        VARCHAR(128) NOT NULL,
		bio         TEXT         NOT NULL,
		image_ref   TEXT         NOT NULL,
		votes       INT          NOT NULL DEFAULT 0,
		created_at  TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		PRIMARY KEY (id),
		CONSTRAINT chk_votes_nonneg CHECK (votes >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS voters (
		contact_key  VARCHAR(64)  NOT NULL,
		name_key     VARCHAR(190) NOT NULL,
		display_name VARCHAR(190) NOT NULL,
		candidate_id VARCHAR(64)  NOT NULL,
		timestamp_ms BIGINT       NOT NULL,
		PRIMARY KEY (contact_key),
		UNIQUE KEY uniq_name_key (name_key)
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id               VARCHAR(64)  NOT NULL,
		voter_first_name VARCHAR(64)  NOT NULL,
		candidate_name   VARCHAR(128) NOT NULL,
		timestamp_ms     BIGINT       NOT NULL,
		PRIMARY KEY (id),
		KEY idx_activities_ts (timestamp_ms DESC)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id             TINYINT      NOT NULL,
		phase          VARCHAR(16)  NOT NULL DEFAULT 'upcoming',
		baseline_total INT          NOT NULL DEFAULT 0,
		winner_id      VARCHAR(64)  NULL,
		PRIMARY KEY (id)
	)`,
}

// EnsureSchema 确保表结构存在，并预置settings单行
func (r *MySQLRepository) EnsureSchema(initialBaseline int) error {
	for _, stmt := range schemaStatements {
		if _, err := r.masterDB.Exec(stmt); err != nil {
			return fmt.Errorf("执行建表语句失败: %w", err)
		}
	}

	// settings只有一行，已存在则不覆盖
	_, err := r.masterDB.Exec(
		"INSERT IGNORE INTO settings (id, phase, baseline_total, winner_id) VALUES (1, 'upcoming', ?, NULL)",
		initialBaseline,
	)
	if err != nil {
		return fmt.Errorf("预置选举设置失败: %w", err)
	}
	return nil
}

// HasCandidates 判断候选人表是否为空，用于首次启动时决定是否灌入种子名单
func (r *MySQLRepository) HasCandidates() (bool, error) {
	var n int
	if err := r.masterDB.QueryRow("SELECT COUNT(*) FROM candidates").Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("查询候选人数量失败: %w", err)
	}
	return n > 0, nil
}
