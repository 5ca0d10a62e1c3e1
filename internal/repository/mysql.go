package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/model"
)

const mysqlDuplicateEntry = 1062

type MySQLRepository struct {
	masterDB *sql.DB
	slaveDB  *sql.DB
}

func NewMySQLRepository() (*MySQLRepository, error) {
	masterDB, err := sql.Open("mysql", config.AppConfig.MySQL.Master)
	if err != nil {
		return nil, fmt.Errorf("连接主数据库失败: %w", err)
	}

	masterDB.SetMaxOpenConns(config.AppConfig.MySQL.MaxOpenConns)
	masterDB.SetMaxIdleConns(config.AppConfig.MySQL.MaxIdleConns)
	masterDB.SetConnMaxLifetime(time.Hour)

	if err = masterDB.Ping(); err != nil {
		return nil, fmt.Errorf("主数据库连接测试失败: %w", err)
	}

	slaveDB, err := sql.Open("mysql", config.AppConfig.MySQL.Slave)
	if err != nil {
		return nil, fmt.Errorf("连接从数据库失败: %w", err)
	}

	slaveDB.SetMaxOpenConns(config.AppConfig.MySQL.MaxOpenConns)
	slaveDB.SetMaxIdleConns(config.AppConfig.MySQL.MaxIdleConns)
	slaveDB.SetConnMaxLifetime(time.Hour)

	if err = slaveDB.Ping(); err != nil {
		log.Printf("从数据库连接测试失败: %v，将使用主数据库代替", err)
		slaveDB = masterDB
	}

	return &MySQLRepository{
		masterDB: masterDB,
		slaveDB:  slaveDB,
	}, nil
}

// ListCandidates 按创建顺序返回所有候选人，排名的同票并列即由该顺序决定
func (r *MySQLRepository) ListCandidates() ([]*model.Candidate, error) {
	query := "SELECT id, name, bio, image_ref, votes, created_at FROM candidates ORDER BY created_at, id"
	rows, err := r.slaveDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("查询候选人列表失败: %w", err)
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Bio, &c.ImageRef, &c.Votes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("扫描候选人失败: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("迭代候选人失败: %w", err)
	}

	return candidates, nil
}

// GetCandidate 查询单个候选人
func (r *MySQLRepository) GetCandidate(id string) (*model.Candidate, error) {
	query := "SELECT id, name, bio, image_ref, votes, created_at FROM candidates WHERE id = ?"
	var c model.Candidate
	err := r.slaveDB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Bio, &c.ImageRef, &c.Votes, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	return &c, nil
}

// CreateCandidate 创建候选人，票数从0开始
func (r *MySQLRepository) CreateCandidate(c *model.Candidate) error {
	query := "INSERT INTO candidates (id, name, bio, image_ref, votes, created_at) VALUES (?, ?, ?, ?, 0, ?)"
	if _, err := r.masterDB.Exec(query, c.ID, c.Name, c.Bio, c.ImageRef, c.CreatedAt); err != nil {
		return fmt.Errorf("创建候选人失败: %w", err)
	}
	return nil
}

// DeleteCandidate 删除候选人，历史活动事件保留不回填
func (r *MySQLRepository) DeleteCandidate(id string) error {
	result, err := r.masterDB.Exec("DELETE FROM candidates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("删除候选人失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取删除结果失败: %w", err)
	}
	if affected == 0 {
		return model.ErrCandidateNotFound
	}
	return nil
}

// ContactRegistered 判断联系方式是否已投票
func (r *MySQLRepository) ContactRegistered(contactKey string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM voters WHERE contact_key = ?)"
	if err := r.slaveDB.QueryRow(query, contactKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("查询联系方式登记状态失败: %w", err)
	}
	return exists, nil
}

// NameTaken 判断归一化姓名是否已被占用
func (r *MySQLRepository) NameTaken(nameKey string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM voters WHERE name_key = ?)"
	if err := r.slaveDB.QueryRow(query, nameKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("查询姓名占用状态失败: %w", err)
	}
	return exists, nil
}

// VoterKeys 返回所有已投票的联系方式键
func (r *MySQLRepository) VoterKeys() ([]string, error) {
	rows, err := r.slaveDB.Query("SELECT contact_key FROM voters")
	if err != nil {
		return nil, fmt.Errorf("查询投票人键失败: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("扫描投票人键失败: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("迭代投票人键失败: %w", err)
	}

	return keys, nil
}

// CommitVote 单事务提交一次投票：登记投票人、候选人票数+1、追加活动事件
// 票数递增在数据库端完成(votes = votes + 1)，不在客户端读改写
// 唯一键冲突在这里裁决，读时预检通过的并发提交会在此失败
func (r *MySQLRepository) CommitVote(rec *model.VoterRecord, event *model.ActivityEvent) error {
	tx, err := r.masterDB.Begin()
	if err != nil {
		return fmt.Errorf("%w: 开始事务失败: %v", model.ErrCommitFailed, err)
	}

	_, err = tx.Exec(
		"INSERT INTO voters (contact_key, name_key, display_name, candidate_id, timestamp_ms) VALUES (?, ?, ?, ?, ?)",
		rec.ContactKey, rec.NameKey, rec.DisplayName, rec.CandidateID, rec.TimestampMs,
	)
	if err != nil {
		tx.Rollback()
		if dupErr := duplicateAxis(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("%w: 登记投票人失败: %v", model.ErrCommitFailed, err)
	}

	result, err := tx.Exec("UPDATE candidates SET votes = votes + 1 WHERE id = ?", rec.CandidateID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: 递增候选人票数失败: %v", model.ErrCommitFailed, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: 获取递增结果失败: %v", model.ErrCommitFailed, err)
	}
	if affected == 0 {
		tx.Rollback()
		return model.ErrCandidateNotFound
	}

	_, err = tx.Exec(
		"INSERT INTO activities (id, voter_first_name, candidate_name, timestamp_ms) VALUES (?, ?, ?, ?)",
		event.ID, event.VoterFirstName, event.CandidateName, event.TimestampMs,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: 追加活动事件失败: %v", model.ErrCommitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: 提交事务失败: %v", model.ErrCommitFailed, err)
	}

	return nil
}

// duplicateAxis 把MySQL唯一键冲突映射到具体的去重轴
func duplicateAxis(err error) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlDuplicateEntry {
		return nil
	}
	if strings.Contains(mysqlErr.Message, "uniq_name_key") {
		return model.ErrDuplicateName
	}
	return model.ErrDuplicateContact
}

// RecentActivities 按时间倒序读取活动流，截断只发生在读取侧
func (r *MySQLRepository) RecentActivities(limit int) ([]*model.ActivityEvent, error) {
	query := "SELECT id, voter_first_name, candidate_name, timestamp_ms FROM activities ORDER BY timestamp_ms DESC, id LIMIT ?"
	rows, err := r.slaveDB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("查询活动流失败: %w", err)
	}
	defer rows.Close()

	var events []*model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		if err := rows.Scan(&e.ID, &e.VoterFirstName, &e.CandidateName, &e.TimestampMs); err != nil {
			return nil, fmt.Errorf("扫描活动事件失败: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("迭代活动事件失败: %w", err)
	}

	return events, nil
}

// GetSettings 读取选举设置单行
func (r *MySQLRepository) GetSettings() (*model.ElectionSettings, error) {
	var s model.ElectionSettings
	var winner sql.NullString
	query := "SELECT phase, baseline_total, winner_id FROM settings WHERE id = 1"
	if err := r.slaveDB.QueryRow(query).Scan(&s.Phase, &s.BaselineTotal, &winner); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("查询选举设置失败: %w", err)
	}
	if winner.Valid {
		s.WinnerID = winner.String
	}
	return &s, nil
}

// UpdatePhase 切换选举阶段
func (r *MySQLRepository) UpdatePhase(phase string) error {
	if _, err := r.masterDB.Exec("UPDATE settings SET phase = ? WHERE id = 1", phase); err != nil {
		return fmt.Errorf("更新选举阶段失败: %w", err)
	}
	return nil
}

// UpdateBaseline 设置基础票数
func (r *MySQLRepository) UpdateBaseline(n int) error {
	if _, err := r.masterDB.Exec("UPDATE settings SET baseline_total = ? WHERE id = 1", n); err != nil {
		return fmt.Errorf("更新基础票数失败: %w", err)
	}
	return nil
}

// UpdateWinner 记录管理员钦定的获胜者，空字符串表示清除
func (r *MySQLRepository) UpdateWinner(candidateID string) error {
	var winner interface{}
	if candidateID != "" {
		winner = candidateID
	}
	if _, err := r.masterDB.Exec("UPDATE settings SET winner_id = ? WHERE id = 1", winner); err != nil {
		return fmt.Errorf("更新获胜者失败: %w", err)
	}
	return nil
}

// ResetAll 单事务清空投票人、活动流，所有票数与基础票数归零
// 这是系统里唯一的删除路径
func (r *MySQLRepository) ResetAll() error {
	tx, err := r.masterDB.Begin()
	if err != nil {
		return fmt.Errorf("开始重置事务失败: %w", err)
	}

	statements := []string{
		"DELETE FROM voters",
		"DELETE FROM activities",
		"UPDATE candidates SET votes = 0",
		"UPDATE settings SET baseline_total = 0 WHERE id = 1",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("执行重置语句失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交重置事务失败: %w", err)
	}

	return nil
}

// Close 关闭数据库连接
func (r *MySQLRepository) Close() {
	if r.masterDB != nil {
		r.masterDB.Close()
	}
	if r.slaveDB != nil && r.slaveDB != r.masterDB {
		r.slaveDB.Close()
	}
}
