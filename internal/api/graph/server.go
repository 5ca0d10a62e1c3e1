package graph

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/model"
	"github.com/lvdashuaibi/pulsevote/internal/realtime"
	"github.com/lvdashuaibi/pulsevote/internal/service"
)

// GraphQLServer GraphQL + SSE服务器
type GraphQLServer struct {
	schema   *graphql.Schema
	handler  *relay.Handler
	resolver *Resolver
	broker   *realtime.Broker
}

// GraphQL Schema定义
const schemaString = `
type Candidate {
  id: ID!
  name: String!
  bio: String!
  imageRef: String!
  votes: Int!
}

type ActivityEvent {
  id: ID!
  userName: String!
  candidateName: String!
  timestamp: String!
}

type Settings {
  phase: String!
  baselineTotal: Int!
  winnerCandidateId: String
}

type VoterRecord {
  contactKey: String!
  displayName: String!
  candidateId: String!
  timestampMs: String!
}

type BoardEntry {
  rank: Int!
  candidate: Candidate!
  percentage: Int!
}

type Board {
  totalVotes: Int!
  phase: String!
  winnerCandidateId: String
  ranking: [BoardEntry!]!
}

type VoteReply {
  success: Boolean!
  code: String!
  message: String!
  marker: String
  record: VoterRecord
  timestamp: String!
}

input VoteInput {
  candidateId: ID!
  name: String!
  contact: String!
  priorMarker: String
}

type Query {
  # 候选人列表（创建顺序）
  candidates: [Candidate!]!

  # 单个候选人
  candidate(id: ID!): Candidate

  # 活动流（时间倒序，读取侧截断）
  activities(limit: Int): [ActivityEvent!]!

  # 选举设置
  settings: Settings!

  # 聚合榜单
  board: Board!

  # 已投票的联系方式键
  voterKeys: [String!]!
}

type Mutation {
  # 提交投票
  submitVote(input: VoteInput!): VoteReply!

  # 管理口令校验
  adminLogin(passcode: String!): Boolean!

  # 管理操作
  setPhase(passcode: String!, phase: String!): Boolean!
  setBaselineTotal(passcode: String!, total: Int!): Boolean!
  setWinner(passcode: String!, candidateId: ID): Boolean!
  addCandidate(passcode: String!, name: String!, bio: String!, imageRef: String): Candidate!
  removeCandidate(passcode: String!, candidateId: ID!): Boolean!
  resetAll(passcode: String!): Boolean!
}

schema {
  query: Query
  mutation: Mutation
}
`

// NewGraphQLServer 创建GraphQL服务器
func NewGraphQLServer(voteService *service.VoteService, adminService *service.AdminService, broker *realtime.Broker) *GraphQLServer {
	resolver := NewResolver(voteService, adminService)

	schema := graphql.MustParseSchema(schemaString, resolver)
	handler := &relay.Handler{Schema: schema}

	return &GraphQLServer{
		schema:   schema,
		handler:  handler,
		resolver: resolver,
		broker:   broker,
	}
}

// Start 启动HTTP服务器：GraphQL端点 + SSE实时流 + Playground
func (s *GraphQLServer) Start(port int) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST(config.AppConfig.GraphQL.Path, gin.WrapH(s.handler))
	router.GET("/stream", s.streamHandler)
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html", []byte(playgroundHTML))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("GraphQL服务已启动，API端点: %s, 实时流: /stream, Playground: http://localhost%s/",
		config.AppConfig.GraphQL.Path, addr)

	return router.Run(addr)
}

// streamHandler SSE实时流：?topics=candidates,activity,settings,voters
// 连接建立时先推一次全量快照，之后每次变更通知都推最新集合
// 客户端断开时订阅句柄随之注销
func (s *GraphQLServer) streamHandler(c *gin.Context) {
	topics := c.QueryArray("topics")
	if len(topics) == 1 {
		// 兼容逗号分隔
		topics = splitTopics(topics[0])
	}
	if len(topics) == 0 {
		topics = []string{
			realtime.TopicCandidates,
			realtime.TopicActivity,
			realtime.TopicSettings,
			realtime.TopicVoters,
		}
	}

	sub := s.broker.Subscribe(topics...)
	defer sub.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 初始快照
	for _, topic := range topics {
		if payload, err := s.resolver.snapshotFor(topic); err == nil {
			c.SSEvent(topic, payload)
		}
	}
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case notice, ok := <-sub.C:
			if !ok {
				return false
			}
			payload, err := s.resolver.snapshotFor(notice.Topic)
			if err != nil {
				log.Printf("拉取 %s 快照失败: %v", notice.Topic, err)
				return true
			}
			c.SSEvent(notice.Topic, payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func splitTopics(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Resolver GraphQL解析器
type Resolver struct {
	voteService  *service.VoteService
	adminService *service.AdminService
}

// NewResolver 创建解析器
func NewResolver(voteService *service.VoteService, adminService *service.AdminService) *Resolver {
	return &Resolver{voteService: voteService, adminService: adminService}
}

// snapshotFor 按主题拉取最新集合，供SSE推送
func (r *Resolver) snapshotFor(topic string) (interface{}, error) {
	switch topic {
	case realtime.TopicCandidates:
		return r.voteService.Candidates()
	case realtime.TopicActivity:
		return r.voteService.Activities(0)
	case realtime.TopicSettings:
		return r.voteService.Settings()
	case realtime.TopicVoters:
		return r.voteService.VoterKeys()
	default:
		return nil, fmt.Errorf("未知的订阅主题: %s", topic)
	}
}

// Candidates 候选人列表
func (r *Resolver) Candidates() ([]*CandidateResolver, error) {
	candidates, err := r.voteService.Candidates()
	if err != nil {
		return nil, err
	}

	resolvers := make([]*CandidateResolver, len(candidates))
	for i, c := range candidates {
		resolvers[i] = &CandidateResolver{candidate: c}
	}
	return resolvers, nil
}

// Candidate 单个候选人，不存在时返回null，其余错误原样上抛
func (r *Resolver) Candidate(args struct{ ID graphql.ID }) (*CandidateResolver, error) {
	candidate, err := r.voteService.Candidate(string(args.ID))
	if err != nil {
		if errors.Is(err, model.ErrCandidateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &CandidateResolver{candidate: candidate}, nil
}

// Activities 活动流
func (r *Resolver) Activities(args struct{ Limit *int32 }) ([]*ActivityResolver, error) {
	limit := 0
	if args.Limit != nil {
		limit = int(*args.Limit)
	}

	events, err := r.voteService.Activities(limit)
	if err != nil {
		return nil, err
	}

	resolvers := make([]*ActivityResolver, len(events))
	for i, e := range events {
		resolvers[i] = &ActivityResolver{event: e}
	}
	return resolvers, nil
}

// Settings 选举设置
func (r *Resolver) Settings() (*SettingsResolver, error) {
	settings, err := r.voteService.Settings()
	if err != nil {
		return nil, err
	}
	return &SettingsResolver{settings: settings}, nil
}

// Board 聚合榜单
func (r *Resolver) Board() (*BoardResolver, error) {
	board, err := r.voteService.Board()
	if err != nil {
		return nil, err
	}
	return &BoardResolver{board: board}, nil
}

// VoterKeys 已投票的联系方式键
func (r *Resolver) VoterKeys() ([]string, error) {
	return r.voteService.VoterKeys()
}

// VoteInput 投票输入
type VoteInput struct {
	CandidateID graphql.ID
	Name        string
	Contact     string
	PriorMarker *string
}

// SubmitVote 提交投票；失败也返回响应体，错误码在code字段里
func (r *Resolver) SubmitVote(args struct{ Input VoteInput }) (*VoteReplyResolver, error) {
	request := &model.VoteRequest{
		CandidateID: string(args.Input.CandidateID),
		RawName:     args.Input.Name,
		RawContact:  args.Input.Contact,
	}
	if args.Input.PriorMarker != nil {
		request.PriorMarker = *args.Input.PriorMarker
	}

	response, err := r.voteService.SubmitVote(request)
	if err != nil {
		log.Printf("投票提交被拒绝: code=%s, contact=%s", response.Code, request.RawContact)
	}
	return &VoteReplyResolver{response: response}, nil
}

// AdminLogin 管理口令校验
func (r *Resolver) AdminLogin(args struct{ Passcode string }) (bool, error) {
	return r.adminService.Login(args.Passcode), nil
}

// SetPhase 切换选举阶段
func (r *Resolver) SetPhase(args struct{ Passcode, Phase string }) (bool, error) {
	if err := r.adminService.SetPhase(args.Passcode, args.Phase); err != nil {
		return false, err
	}
	return true, nil
}

// SetBaselineTotal 设置基础票数
func (r *Resolver) SetBaselineTotal(args struct {
	Passcode string
	Total    int32
}) (bool, error) {
	if err := r.adminService.SetBaselineTotal(args.Passcode, int(args.Total)); err != nil {
		return false, err
	}
	return true, nil
}

// SetWinner 钦定获胜者，缺省表示清除
func (r *Resolver) SetWinner(args struct {
	Passcode    string
	CandidateID *graphql.ID
}) (bool, error) {
	id := ""
	if args.CandidateID != nil {
		id = string(*args.CandidateID)
	}
	if err := r.adminService.SetWinner(args.Passcode, id); err != nil {
		return false, err
	}
	return true, nil
}

// AddCandidate 新增候选人
func (r *Resolver) AddCandidate(args struct {
	Passcode string
	Name     string
	Bio      string
	ImageRef *string
}) (*CandidateResolver, error) {
	imageRef := ""
	if args.ImageRef != nil {
		imageRef = *args.ImageRef
	}
	candidate, err := r.adminService.AddCandidate(args.Passcode, args.Name, args.Bio, imageRef)
	if err != nil {
		return nil, err
	}
	return &CandidateResolver{candidate: candidate}, nil
}

// RemoveCandidate 删除候选人
func (r *Resolver) RemoveCandidate(args struct {
	Passcode    string
	CandidateID graphql.ID
}) (bool, error) {
	if err := r.adminService.RemoveCandidate(args.Passcode, string(args.CandidateID)); err != nil {
		return false, err
	}
	return true, nil
}

// ResetAll 管理批量重置
func (r *Resolver) ResetAll(args struct{ Passcode string }) (bool, error) {
	if err := r.adminService.ResetAll(args.Passcode); err != nil {
		return false, err
	}
	return true, nil
}

// CandidateResolver 候选人解析器
type CandidateResolver struct {
	candidate *model.Candidate
}

func (r *CandidateResolver) ID() graphql.ID {
	return graphql.ID(r.candidate.ID)
}

func (r *CandidateResolver) Name() string {
	return r.candidate.Name
}

func (r *CandidateResolver) Bio() string {
	return r.candidate.Bio
}

func (r *CandidateResolver) ImageRef() string {
	return r.candidate.ImageRef
}

func (r *CandidateResolver) Votes() int32 {
	return int32(r.candidate.Votes)
}

// ActivityResolver 活动事件解析器
type ActivityResolver struct {
	event *model.ActivityEvent
}

func (r *ActivityResolver) ID() graphql.ID {
	return graphql.ID(r.event.ID)
}

func (r *ActivityResolver) UserName() string {
	return r.event.VoterFirstName
}

func (r *ActivityResolver) CandidateName() string {
	return r.event.CandidateName
}

func (r *ActivityResolver) Timestamp() string {
	return strconv.FormatInt(r.event.TimestampMs, 10)
}

// SettingsResolver 选举设置解析器
type SettingsResolver struct {
	settings *model.ElectionSettings
}

func (r *SettingsResolver) Phase() string {
	return r.settings.Phase
}

func (r *SettingsResolver) BaselineTotal() int32 {
	return int32(r.settings.BaselineTotal)
}

func (r *SettingsResolver) WinnerCandidateID() *string {
	if r.settings.WinnerID == "" {
		return nil
	}
	winner := r.settings.WinnerID
	return &winner
}

// VoterRecordResolver 投票人记录解析器
type VoterRecordResolver struct {
	record *model.VoterRecord
}

func (r *VoterRecordResolver) ContactKey() string {
	return r.record.ContactKey
}

func (r *VoterRecordResolver) DisplayName() string {
	return r.record.DisplayName
}

func (r *VoterRecordResolver) CandidateID() string {
	return r.record.CandidateID
}

func (r *VoterRecordResolver) TimestampMs() string {
	return strconv.FormatInt(r.record.TimestampMs, 10)
}

// BoardResolver 聚合榜单解析器
type BoardResolver struct {
	board *model.Board
}

func (r *BoardResolver) TotalVotes() int32 {
	return int32(r.board.TotalVotes)
}

func (r *BoardResolver) Phase() string {
	return r.board.Phase
}

func (r *BoardResolver) WinnerCandidateID() *string {
	if r.board.WinnerID == "" {
		return nil
	}
	winner := r.board.WinnerID
	return &winner
}

func (r *BoardResolver) Ranking() []*BoardEntryResolver {
	resolvers := make([]*BoardEntryResolver, len(r.board.Ranking))
	for i := range r.board.Ranking {
		resolvers[i] = &BoardEntryResolver{entry: &r.board.Ranking[i]}
	}
	return resolvers
}

// BoardEntryResolver 榜单条目解析器
type BoardEntryResolver struct {
	entry *model.BoardEntry
}

func (r *BoardEntryResolver) Rank() int32 {
	return int32(r.entry.Rank)
}

func (r *BoardEntryResolver) Candidate() *CandidateResolver {
	candidate := r.entry.Candidate
	return &CandidateResolver{candidate: &candidate}
}

func (r *BoardEntryResolver) Percentage() int32 {
	return int32(r.entry.Percentage)
}

// VoteReplyResolver 投票响应解析器
type VoteReplyResolver struct {
	response *model.VoteResponse
}

func (r *VoteReplyResolver) Success() bool {
	return r.response.Success
}

func (r *VoteReplyResolver) Code() string {
	return r.response.Code
}

func (r *VoteReplyResolver) Message() string {
	return r.response.Message
}

func (r *VoteReplyResolver) Marker() *string {
	if r.response.Marker == "" {
		return nil
	}
	marker := r.response.Marker
	return &marker
}

func (r *VoteReplyResolver) Record() *VoterRecordResolver {
	if r.response.Record == nil {
		return nil
	}
	return &VoterRecordResolver{record: r.response.Record}
}

func (r *VoteReplyResolver) Timestamp() string {
	return r.response.Timestamp.Format(time.RFC3339)
}

// playgroundHTML GraphQL Playground HTML
const playgroundHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset=utf-8/>
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>PulseVote GraphQL Playground</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/static/css/index.css" />
  <link rel="shortcut icon" href="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/favicon.png" />
  <script src="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root">
    <style>
      body {
        background-color: rgb(15, 23, 42);
        font-family: Open Sans, sans-serif;
        height: 90vh;
      }
      #root {
        height: 100%;
        width: 100%;
        display: flex;
        align-items: center;
        justify-content: center;
      }
      .loading {
        font-size: 32px;
        font-weight: 200;
        color: rgba(255, 255, 255, .6);
        margin-left: 20px;
      }
      img {
        width: 78px;
        height: 78px;
      }
      .title {
        font-weight: 400;
      }
    </style>
    <img src='https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/logo.png' alt=''>
    <div class="loading">
      <span class="title">PulseVote GraphQL Playground</span>
    </div>
  </div>
  <script>window.addEventListener('load', function (event) {
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: '/graphql'
      })
    })</script>
</body>
</html>
`
