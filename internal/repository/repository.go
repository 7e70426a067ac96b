package repository

import (
	"context"
	"time"

	"github.com/rmcmillan34/edge-journal/internal/models"
)

// TradingRepository covers the trade source the guardrail scan reads from.
type TradingRepository interface {
	CreateAccount(ctx context.Context, item *models.Account) error
	GetAccount(ctx context.Context, userID, id uint64) (*models.Account, error)
	ListAccounts(ctx context.Context, userID uint64) ([]models.Account, error)
	SetAccountRiskCap(ctx context.Context, userID, id uint64, pct *float64) (bool, error)

	CreateTrade(ctx context.Context, item *models.Trade) error
	GetTrade(ctx context.Context, userID, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
}

// PlaybookRepository stores template versions, responses and evidence.
type PlaybookRepository interface {
	// CreateTemplate fails with apperr.ErrConflict when (user, name, version) exists.
	CreateTemplate(ctx context.Context, item *models.PlaybookTemplate) error
	GetTemplate(ctx context.Context, userID, id uint64) (*models.PlaybookTemplate, error)
	GetTemplateVersion(ctx context.Context, userID uint64, name string, version int) (*models.PlaybookTemplate, error)
	MaxTemplateVersion(ctx context.Context, userID uint64, name string) (int, error)
	ListTemplates(ctx context.Context, params ListTemplatesParams) ([]models.PlaybookTemplate, error)
	SetTemplateActive(ctx context.Context, userID, id uint64, active bool) (bool, error)

	InsertResponse(ctx context.Context, item *models.PlaybookResponse) error
	GetResponse(ctx context.Context, userID, id uint64) (*models.PlaybookResponse, error)
	ListResponses(ctx context.Context, params ListResponsesParams) ([]models.PlaybookResponse, error)
	LatestResponsesByTrade(ctx context.Context, userID uint64, tradeIDs []uint64) ([]models.PlaybookResponse, error)

	InsertEvidence(ctx context.Context, item *models.PlaybookEvidence) error
	ListEvidence(ctx context.Context, userID, responseID uint64) ([]models.PlaybookEvidence, error)
	DeleteEvidence(ctx context.Context, userID, responseID, id uint64) (bool, error)
}

// LedgerRepository is the breach ledger plus the rules that feed it.
type LedgerRepository interface {
	GetTradingRules(ctx context.Context, userID uint64) (*models.TradingRules, error)
	UpsertTradingRules(ctx context.Context, item *models.TradingRules) error
	ListRuleUserIDs(ctx context.Context) ([]uint64, error)

	// UpsertBreach inserts or refreshes details on the uniqueness key and reports
	// whether a new row was created. Acknowledgment is never changed.
	UpsertBreach(ctx context.Context, item *models.Breach) (bool, error)
	GetBreach(ctx context.Context, userID, id uint64) (*models.Breach, error)
	ListBreaches(ctx context.Context, params ListBreachesParams) ([]models.Breach, error)
	AcknowledgeBreach(ctx context.Context, userID, id uint64, at time.Time) (*models.Breach, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type Repository interface {
	Ping(ctx context.Context) error

	TradingRepository
	PlaybookRepository
	LedgerRepository
	SettingsRepository
}

type ListTradesParams struct {
	UserID    uint64
	AccountID *uint64
	Since     *time.Time // close time, inclusive
	Until     *time.Time // close time, exclusive
	Limit     int        // <= 0 returns every match
	Offset    int
	OrderBy   string
	Asc       *bool
}

type ListTemplatesParams struct {
	UserID  uint64
	Purpose *string
	Active  *bool
	Name    *string
	Limit   int
	Offset  int
}

type ListResponsesParams struct {
	UserID      uint64
	TradeID     *uint64
	JournalDate *string
	Symbol      *string
	TemplateID  *uint64
	Exceeded    *bool
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
	OrderBy     string
	Asc         *bool
}

type ListBreachesParams struct {
	UserID uint64
	// Start and End select breaches whose period overlaps [Start, End).
	Start        *time.Time
	End          *time.Time
	Scopes       []string
	RuleKey      *string
	Acknowledged *bool
	Limit        int
	Offset       int
	OrderBy      string
	Asc          *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
