package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ServerListening    string
	GRPCListening      string
	ShuttingDown       string
	ShutdownComplete   string
	NodeIdentified     string
	SystemMetricsInit  string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	APIServerError     string
	GRPCServerError    string

	// Engine
	StrategyLoaded           string
	StrategyConfigLoadFailed string
	EngineInitFailed         string
	JournalEnabled           string
	JournalDisabled          string
	AuthEnabled              string
	AuthDisabled             string

	// Simulator
	SimulationStarted  string
	SimulationFinished string

	// Tokens
	TokenIssued      string
	TokenIssueFailed string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting signal core...",
	ConfigLoaded:       "Config loaded (Port: %s, gRPC: %s)",
	UsingDBPath:        "Using %s journal at %s",
	ServerListening:    "Server listening on :%s",
	GRPCListening:      "gRPC listening on :%s",
	ShuttingDown:       "Shutting down gracefully...",
	ShutdownComplete:   "Shutdown complete",
	NodeIdentified:     "Node id: %s",
	SystemMetricsInit:  "System metrics initialized",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	APIServerError:     "API server error: %v",
	GRPCServerError:    "gRPC server error: %v",

	// Engine
	StrategyLoaded:           "Strategy loaded: %s",
	StrategyConfigLoadFailed: "Failed to load strategy config: %v",
	EngineInitFailed:         "Failed to build engine: %v",
	JournalEnabled:           "Decision journal enabled",
	JournalDisabled:          "Decision journal disabled",
	AuthEnabled:              "API token auth enabled",
	AuthDisabled:             "JWT_SECRET not set, API auth disabled",

	// Simulator
	SimulationStarted:  "Simulating %d steps",
	SimulationFinished: "Simulation finished",

	// Tokens
	TokenIssued:      "Token issued for %s",
	TokenIssueFailed: "Failed to issue token: %v",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "啟動訊號核心...",
	ConfigLoaded:       "設定已載入（埠號：%s，gRPC：%s）",
	UsingDBPath:        "使用 %s 決策日誌：%s",
	ServerListening:    "服務監聽於 :%s",
	GRPCListening:      "gRPC 監聽於 :%s",
	ShuttingDown:       "正在優雅關閉...",
	ShutdownComplete:   "已完成關閉",
	NodeIdentified:     "節點識別碼：%s",
	SystemMetricsInit:  "系統指標初始化完成",
	ConfigLoadFailed:   "讀取設定失敗：%v",
	DBInitFailed:       "初始化資料庫失敗：%v",
	DBMigrationsFailed: "套用資料庫遷移失敗：%v",
	APIServerError:     "API 伺服器錯誤：%v",
	GRPCServerError:    "gRPC 伺服器錯誤：%v",

	// Engine
	StrategyLoaded:           "策略已載入：%s",
	StrategyConfigLoadFailed: "讀取策略設定失敗：%v",
	EngineInitFailed:         "建立引擎失敗：%v",
	JournalEnabled:           "決策日誌已啟用",
	JournalDisabled:          "決策日誌已停用",
	AuthEnabled:              "API 權杖驗證已啟用",
	AuthDisabled:             "未設定 JWT_SECRET，API 驗證停用",

	// Simulator
	SimulationStarted:  "模擬 %d 步",
	SimulationFinished: "模擬完成",

	// Tokens
	TokenIssued:      "已為 %s 簽發權杖",
	TokenIssueFailed: "簽發權杖失敗：%v",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
