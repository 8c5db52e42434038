package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
	"github.com/MrSnakeDoc/linkdesk/internal/resolver"
	"github.com/MrSnakeDoc/linkdesk/internal/session"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	AllowedHosts   []string           // Host headers allowed to access the server
	AllowedCIDRS   []string           // IPs allowed to access the API and health endpoints
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Session        *session.Session   // editing session over the repository document
	Resolver       *resolver.Resolver // alias lookups against the published document
	MemoryIndex    *index.MemoryIndex // alias index backing the resolver
	RedisClient    *redis.Client      // nil when the resolver cache is disabled
	Repository     string             // "owner/name"
	FilePath       string             // document path inside the repository
	DefaultBranch  string
	Strategy       publish.Strategy
	PublishBurst   int           // publish rate limit burst per client IP
	PublishPerMin  int           // publish rate limit refill per client IP
	RefreshTrigger chan struct{} // Channel to trigger a non-destructive refresh from the default branch
}
