// Package app is the composition root: it wires storage, cloud
// credentials, the discovery workflow, the job runner and the internal
// HTTP surface into one running process. Application.bootstrap builds
// the dependency graph, Run drives its lifecycle, and cleanup tears it
// down on shutdown.
package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/caliber-data/lade/internal/adapters/cloud/dropbox"
	"github.com/caliber-data/lade/internal/adapters/credentials"
	"github.com/caliber-data/lade/internal/adapters/queue"
	"github.com/caliber-data/lade/internal/adapters/storage"
	"github.com/caliber-data/lade/internal/adapters/web"
	"github.com/caliber-data/lade/internal/config"
	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/caliber-data/lade/internal/core/services/audit"
	"github.com/caliber-data/lade/internal/core/services/cache"
	"github.com/caliber-data/lade/internal/core/services/configstore"
	credstatus "github.com/caliber-data/lade/internal/core/services/credentials"
	"github.com/caliber-data/lade/internal/core/services/discovery"
	"github.com/caliber-data/lade/internal/core/services/jobs"
	"github.com/caliber-data/lade/internal/core/services/persistence"
	"github.com/caliber-data/lade/internal/telemetry"
)

// dropboxOAuthEndpoint is Dropbox's fixed OAuth2 token/auth endpoint;
// there's no discovery document, so it is hardcoded.
var dropboxOAuthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.dropbox.com/oauth2/authorize",
	TokenURL: "https://api.dropboxapi.com/oauth2/token",
}

// Application holds the fully wired graph of a running LADE process. It
// is the Facade for the entire system, orchestrating services and
// infrastructure end to end.
type Application struct {
	Config *config.Config

	Storage   *storage.SQLiteAdapter
	Leases    *storage.LeaseStore
	Locations *storage.CloudLocationStore
	Configs   *storage.ConfigStore

	ConfigStore  *configstore.Store
	Credentials  *credentials.Store
	CredAssessor *credstatus.Assessor
	AuditService *audit.AuditService
	AuditWriter  *persistence.AuditWriter
	JobRunner    *jobs.Runner
	WebServer    *web.Server

	workflows *perUserWorkflows

	dedup ports.DedupStore
	queue ports.JobQueue

	tracerShutdown func(context.Context) error
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()
	tracerShutdown, err := telemetry.InitTracer()
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	app.tracerShutdown = tracerShutdown

	sqliteAdapter, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	app.Storage = sqliteAdapter
	app.Leases = storage.NewLeaseStore(sqliteAdapter)
	app.Locations = storage.NewCloudLocationStore(sqliteAdapter)
	app.Configs = storage.NewConfigStore(sqliteAdapter)
	app.ConfigStore = configstore.New(app.Configs, cache.NewMemoryCache())

	// 2. Audit
	app.AuditService = audit.NewAuditService(sqliteAdapter)
	app.AuditWriter = persistence.NewAuditWriter(sqliteAdapter, 256)

	// 3. Dropbox OAuth2 credentials and status cache
	app.Credentials = credentials.NewStore(oauth2.Config{
		ClientID:     app.Config.DropboxClientID,
		ClientSecret: app.Config.DropboxClientSecret,
		RedirectURL:  app.Config.DropboxRedirectURL,
		Endpoint:     dropboxOAuthEndpoint,
	})
	app.CredAssessor = credstatus.NewAssessor(app.Credentials, cache.NewMemoryCache())

	// 4. Per-user discovery workflow cache (lazily built on first job)
	app.workflows = newPerUserWorkflows(app.Credentials, app.CredAssessor, app.Leases, app.Locations, app.ConfigStore, cache.NewMemoryCache())

	// 5. Queue and dedup store
	app.queue = queue.NewMemoryQueue(1024)
	if app.Config.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: app.Config.RedisAddr})
		app.dedup = queue.NewRedisDedupStore(rdb)
		slog.Info("lade: using redis dedup store", "addr", app.Config.RedisAddr)
	} else {
		app.dedup = queue.NewMemoryDedupStore(30 * time.Second)
		slog.Info("lade: using in-memory dedup store")
	}

	// 6. Job runner
	app.JobRunner = jobs.NewRunner(app.queue, app.dedup, app.workflows,
		jobs.WithDedupTTL(app.Config.DedupTTL))

	// 7. Internal HTTP surface
	hookHandler := web.NewHookHandler(app.JobRunner, app.AuditService)
	statusHandler := web.NewStatusHandler(app.JobRunner)
	app.WebServer = web.NewServer(app.Config.Addr, hookHandler, statusHandler)

	return nil
}

// Run starts the application components and blocks until ctx is
// cancelled or a component errors out.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("lade: starting")

	app.AuditWriter.Start(ctx)
	app.AuditWriter.Enqueue(infoLog("startup", "lade started"))

	app.JobRunner.Start(ctx, app.Config.NumWorkers)

	errChan := make(chan error, 1)
	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	slog.Info("lade: ready", "addr", app.Config.Addr, "workers", app.Config.NumWorkers)

	select {
	case <-ctx.Done():
		slog.Info("lade: termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

func (app *Application) cleanup() error {
	slog.Info("lade: cleaning up")
	app.JobRunner.Stop()
	app.AuditWriter.Enqueue(infoLog("shutdown", "lade stopped"))
	if app.tracerShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.tracerShutdown(shutdownCtx); err != nil {
			slog.Warn("lade: tracer shutdown error", "error", err)
		}
	}
	return app.Storage.Close()
}

func infoLog(target, details string) domain.AuditLog {
	entry, err := domain.NewAuditLog("system", domain.ActionInfo, target, details)
	if err != nil {
		log.Printf("lade: failed building lifecycle audit entry: %v", err)
		return domain.AuditLog{UserID: "system", Action: domain.ActionInfo, Target: target, Details: details, Timestamp: time.Now().UTC()}
	}
	return *entry
}

// perUserWorkflows lazily builds and caches a *discovery.FullWorkflow per
// Dropbox-authenticated user, keyed by the identity audit.WithUser placed
// on the job's context. Credential scoping travels on context, not on
// DiscoveryRunner's signature, so the job runner and its tests never
// need to know a workflow is per-user.
type perUserWorkflows struct {
	credentials ports.CredentialsProvider
	assessor    *credstatus.Assessor
	leases      ports.LeaseRepository
	locations   ports.CloudLocationRepository
	configs     ports.ConfigRepository
	namespaces  ports.TTLCache

	mu        sync.Mutex
	workflows map[string]*discovery.FullWorkflow
}

func newPerUserWorkflows(c ports.CredentialsProvider, assessor *credstatus.Assessor, leases ports.LeaseRepository, locs ports.CloudLocationRepository, configs *configstore.Store, namespaces ports.TTLCache) *perUserWorkflows {
	return &perUserWorkflows{
		credentials: c,
		assessor:    assessor,
		leases:      leases,
		locations:   locs,
		configs:     cachedConfigRepository{configs},
		namespaces:  namespaces,
		workflows:   make(map[string]*discovery.FullWorkflow),
	}
}

// cachedConfigRepository adapts configstore.Store's Get/Save/ListEnabled
// onto ports.ConfigRepository's FindByAgency/Save/ListEnabled, so
// discovery.FullWorkflow's per-execution config read goes through the
// same TTL cache the rest of the app uses instead of hitting SQLite on
// every job.
type cachedConfigRepository struct {
	store *configstore.Store
}

func (a cachedConfigRepository) FindByAgency(ctx context.Context, agency domain.Agency) (*domain.AgencyStorageConfig, error) {
	return a.store.Get(ctx, agency)
}

func (a cachedConfigRepository) Save(ctx context.Context, cfg domain.AgencyStorageConfig) error {
	return a.store.Save(ctx, cfg)
}

func (a cachedConfigRepository) ListEnabled(ctx context.Context) ([]domain.AgencyStorageConfig, error) {
	return a.store.ListEnabled(ctx)
}

// dropboxProvider names the integration-status provider this app checks
// before dispatching a job, mirroring discovery's own cloudProviderDropbox
// constant (unexported there, so this is its own copy here).
const dropboxProvider = "dropbox"

// Execute implements jobs.DiscoveryRunner, resolving the calling user's
// workflow (building it once, on first use) from the identity carried on
// ctx. Before doing any cloud work it consults the CredentialsAssessor so
// a user with unusable credentials fails fast as CloudAuth instead of
// burning a Dropbox round-trip.
func (p *perUserWorkflows) Execute(ctx context.Context, leaseID uint) (discovery.FullResult, error) {
	userID := audit.UserFromContext(ctx)

	status, err := p.assessor.AssessStatus(ctx, dropboxProvider, userID)
	if err != nil {
		return discovery.FullResult{}, domain.NewLadeError(domain.KindCloudAuth, "app.assess_credentials", err)
	}
	if status.BlockingProblem {
		slog.Warn("lade: credentials not usable, failing fast", "user", credstatus.MaskEmail(userID), "reason", status.Reason)
		return discovery.FullResult{}, domain.NewLadeError(domain.KindCloudAuth, "app.assess_credentials", fmt.Errorf("%s", status.Reason))
	}

	wf := p.workflowFor(userID)
	return wf.Execute(ctx, leaseID)
}

func (p *perUserWorkflows) workflowFor(userID string) *discovery.FullWorkflow {
	p.mu.Lock()
	defer p.mu.Unlock()

	if wf, ok := p.workflows[userID]; ok {
		return wf
	}

	client := dropbox.NewClient(p.credentials, userID, p.namespaces, &http.Client{Timeout: 60 * time.Second})
	finder := discovery.NewArchiveFinder(client, p.locations)
	creator := discovery.NewArchiveCreator(client, p.locations)
	detector := discovery.NewReportDetector(client)
	workflow := discovery.NewWorkflow(finder, creator, p.leases)
	full := discovery.NewFullWorkflow(workflow, detector, p.leases, p.configs)

	p.workflows[userID] = full
	return full
}
