//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/frontline-hq/frontline/internal/api/handlers"
	"github.com/frontline-hq/frontline/internal/jobs"
	"github.com/frontline-hq/frontline/internal/repository"
	"github.com/frontline-hq/frontline/internal/server"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/frontline-hq/frontline/internal/storage"
	"github.com/frontline-hq/frontline/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testRequestTimeout = 24 * time.Hour

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Archive      *storage.TranscriptArchive
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server.
// When withArchive is true a RustFS container backs the transcript archive.
func SetupE2EEnv(t *testing.T, withArchive bool) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	if withArchive {
		s3C := testutil.NewRustFSContainer(ctx, t)
		archive, err := storage.NewTranscriptArchive(ctx, storage.TranscriptArchiveConfig{
			Endpoint:        s3C.Endpoint(),
			Region:          "us-east-1",
			AccessKeyID:     "rustfsadmin",
			SecretAccessKey: "rustfsadmin",
			Bucket:          "test-transcripts",
			UsePathStyle:    true,
		})
		if err != nil {
			t.Fatalf("failed to create transcript archive: %v", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			t.Fatalf("failed to create bucket: %v", err)
		}
		env.RustFSC = s3C
		env.Archive = archive
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env.ServerURL, env.ServerCloser = startServer(t, pool, env.Archive, port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// startServer wires the full stack the way frontlined serve does and starts
// an HTTP server on the given port.
func startServer(t *testing.T, pool *pgxpool.Pool, archive *storage.TranscriptArchive, port int) (string, func()) {
	requestRepo := repository.NewRequestRepository(pool)
	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	matcher := service.NewKeywordMatcher(knowledgeRepo, service.DefaultMatchThreshold, service.DefaultSearchLimit)

	requestSvc := service.NewRequestService(requestRepo, knowledgeRepo, linkRepo, matcher, txRunner)
	var archiveReader handlers.TranscriptArchive
	if archive != nil {
		requestSvc = requestSvc.WithTranscriptArchive(archive)
		archiveReader = archive
	}

	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo)
	feedbackSvc := service.NewFeedbackService(knowledgeRepo, linkRepo)

	router := server.NewRouter(server.RouterConfig{
		RequestHandler:   handlers.NewRequestHandler(requestSvc, archiveReader, testRequestTimeout),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc, feedbackSvc, matcher),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Errorf("server failed: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL)

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}

	return serverURL, closer
}

func waitForServer(t *testing.T, serverURL string) {
	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// SweepTimeouts runs one pass of the timeout sweeper against the env's pool.
func (e *E2ETestEnv) SweepTimeouts() error {
	requestRepo := repository.NewRequestRepository(e.Pool)
	knowledgeRepo := repository.NewKnowledgeRepository(e.Pool)
	linkRepo := repository.NewLinkRepository(e.Pool)
	txRunner := repository.NewTxRunner(e.Pool)
	matcher := service.NewKeywordMatcher(knowledgeRepo, service.DefaultMatchThreshold, service.DefaultSearchLimit)
	requestSvc := service.NewRequestService(requestRepo, knowledgeRepo, linkRepo, matcher, txRunner)

	sweeper := jobs.NewTimeoutSweeper(requestSvc, testRequestTimeout)
	return sweeper.ProcessJobs(e.Ctx)
}

// BuildBinaries builds the frontline and frontlined binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "frontline-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "frontlined"), "./cmd/frontlined")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build frontlined: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "frontline"), "./cmd/frontline")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build frontline: %v\n%s", err, out)
	}
}

// RunFrontline runs the frontline CLI command
func (e *E2ETestEnv) RunFrontline(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "frontline"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("FRONTLINE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %s", resp.StatusCode, respBody)
	}

	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// BackdateRequest rewrites a request's created_at so timeout sweeps see it.
func (e *E2ETestEnv) BackdateRequest(id int64, age time.Duration) {
	_, err := e.Pool.Exec(e.Ctx,
		`UPDATE help_requests SET created_at = NOW() - make_interval(secs => $2) WHERE id = $1`,
		id, age.Seconds())
	if err != nil {
		e.T.Fatalf("failed to backdate request %d: %v", id, err)
	}
}
