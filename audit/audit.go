// Package audit records who did what to which resource. Writes never fail
// the caller: errors are logged and counted, then dropped.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"minerfix-backend/metrics"
	"minerfix-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DefaultMaxEntries is the retention cap; older entries are evicted first.
const DefaultMaxEntries = 10000

// clampMax bounds a configured cap to (0, DefaultMaxEntries].
func clampMax(max int) int {
	if max <= 0 || max > DefaultMaxEntries {
		return DefaultMaxEntries
	}
	return max
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

type Category string

const (
	CategoryAuthentication   Category = "AUTHENTICATION"
	CategoryDataAccess       Category = "DATA_ACCESS"
	CategoryDataModification Category = "DATA_MODIFICATION"
	CategorySystem           Category = "SYSTEM"
	CategoryUserManagement   Category = "USER_MANAGEMENT"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Actions with a fixed severity. Anything else is low.
const (
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionDelete         = "DELETE"
	ActionRestore        = "RESTORE"
	ActionView           = "VIEW"
	ActionSearch         = "SEARCH"
	ActionExport         = "EXPORT"
	ActionImport         = "IMPORT"
	ActionLogin          = "LOGIN"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionLogout         = "LOGOUT"
	ActionSystemShutdown = "SYSTEM_SHUTDOWN"
)

var actionSeverity = map[string]Severity{
	ActionDelete:         SeverityCritical,
	ActionRestore:        SeverityCritical,
	ActionSystemShutdown: SeverityCritical,
	ActionUpdate:         SeverityHigh,
	ActionCreate:         SeverityHigh,
	ActionLoginFailed:    SeverityHigh,
	ActionView:           SeverityMedium,
	ActionExport:         SeverityMedium,
	ActionImport:         SeverityMedium,
	ActionLogin:          SeverityLow,
	ActionLogout:         SeverityLow,
	ActionSearch:         SeverityLow,
}

// SeverityFor classifies an action. A failed action is at least high.
func SeverityFor(action string, status Status) Severity {
	sev, ok := actionSeverity[strings.ToUpper(action)]
	if !ok {
		sev = SeverityLow
	}
	if status == StatusFailed && severityRank[sev] < severityRank[SeverityHigh] {
		sev = SeverityHigh
	}
	return sev
}

// Actor identifies the caller of a request.
type Actor struct {
	UserID    string
	Email     string
	Role      string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by the auth middleware, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

type Event struct {
	// Actor overrides the request actor field by field; used by login where
	// the request carries no identity yet.
	Actor      Actor
	Action     string
	Resource   string
	ResourceID string
	Status     Status
	Category   Category
	Details    map[string]any
}

// Store persists entries newest first and keeps at most its configured cap.
type Store interface {
	Append(ctx context.Context, entry models.AuditLog) error
	List(ctx context.Context, f Filter) ([]models.AuditLog, int64, error)
}

type Logger struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewLogger(store Store, log *zap.Logger) *Logger {
	return &Logger{store: store, log: log, now: time.Now}
}

// Log records ev. It never returns an error and never panics on store failure.
func (l *Logger) Log(ctx context.Context, ev Event) {
	entry, err := l.entry(ctx, ev)
	if err == nil {
		// Entries outlive the request that produced them.
		err = l.store.Append(context.WithoutCancel(ctx), entry)
	}
	if err != nil {
		metrics.AuditFailed()
		l.log.Error("audit write failed",
			zap.String("action", ev.Action),
			zap.String("resource", ev.Resource),
			zap.String("resource_id", ev.ResourceID),
			zap.Error(err))
		return
	}
	metrics.AuditWritten()
}

// Success and Failure are shorthands for the common cases.
func (l *Logger) Success(ctx context.Context, category Category, action, resource, resourceID string, details map[string]any) {
	l.Log(ctx, Event{Action: action, Resource: resource, ResourceID: resourceID, Status: StatusSuccess, Category: category, Details: details})
}

func (l *Logger) Failure(ctx context.Context, category Category, action, resource, resourceID string, details map[string]any) {
	l.Log(ctx, Event{Action: action, Resource: resource, ResourceID: resourceID, Status: StatusFailed, Category: category, Details: details})
}

func (l *Logger) entry(ctx context.Context, ev Event) (models.AuditLog, error) {
	actor := ActorFrom(ctx)
	if ev.Actor.UserID != "" {
		actor.UserID = ev.Actor.UserID
	}
	if ev.Actor.Email != "" {
		actor.Email = ev.Actor.Email
	}
	if ev.Actor.IPAddress != "" {
		actor.IPAddress = ev.Actor.IPAddress
	}
	if ev.Actor.UserAgent != "" {
		actor.UserAgent = ev.Actor.UserAgent
	}
	if ev.Status == "" {
		ev.Status = StatusSuccess
	}
	if ev.Category == "" {
		ev.Category = CategorySystem
	}

	var details datatypes.JSON
	if len(ev.Details) > 0 {
		raw, err := json.Marshal(ev.Details)
		if err != nil {
			return models.AuditLog{}, err
		}
		details = raw
	}

	action := strings.ToUpper(ev.Action)
	return models.AuditLog{
		ID:         uuid.NewString(),
		Timestamp:  l.now().UTC(),
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		Action:     action,
		Resource:   ev.Resource,
		ResourceID: ev.ResourceID,
		Status:     string(ev.Status),
		Severity:   string(SeverityFor(action, ev.Status)),
		Category:   string(ev.Category),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
	}, nil
}

// List returns one page of entries, newest first.
func (l *Logger) List(ctx context.Context, f Filter) ([]models.AuditLog, int64, error) {
	return l.store.List(ctx, f.normalized())
}

// All returns every entry matching f, ignoring pagination.
func (l *Logger) All(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	f.Page, f.PageSize = 1, 0
	items, _, err := l.store.List(ctx, f)
	return items, err
}

type Stats struct {
	Total      int            `json:"total"`
	Failed     int            `json:"failed"`
	ByCategory map[string]int `json:"by_category"`
	BySeverity map[string]int `json:"by_severity"`
	ByAction   map[string]int `json:"by_action"`
}

func (l *Logger) Stats(ctx context.Context, f Filter) (Stats, error) {
	items, err := l.All(ctx, f)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Total:      len(items),
		ByCategory: map[string]int{},
		BySeverity: map[string]int{},
		ByAction:   map[string]int{},
	}
	for _, e := range items {
		st.ByCategory[e.Category]++
		st.BySeverity[e.Severity]++
		st.ByAction[e.Action]++
		if e.Status == string(StatusFailed) {
			st.Failed++
		}
	}
	return st, nil
}
