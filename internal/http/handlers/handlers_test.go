package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imagebot/internal/domain"
)

type fakeStats struct {
	accounts int64
	jobs     int64
	byStatus map[domain.JobStatus]int64
	spent    int64
}

func (f *fakeStats) TotalAccounts(ctx context.Context) (int64, error) { return f.accounts, nil }
func (f *fakeStats) TotalJobs(ctx context.Context) (int64, error)     { return f.jobs, nil }
func (f *fakeStats) JobsByStatus(ctx context.Context) (map[domain.JobStatus]int64, error) {
	return f.byStatus, nil
}
func (f *fakeStats) TotalTokensSpent(ctx context.Context) (int64, error) { return f.spent, nil }

type fakeJobs struct {
	jobs map[uuid.UUID]*domain.Job
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error { return nil }
func (f *fakeJobs) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
func (f *fakeJobs) Transition(ctx context.Context, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error {
	return nil
}
func (f *fakeJobs) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Job, error) {
	return nil, nil
}
func (f *fakeJobs) CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	return 0, nil
}

func newTestApp(stats domain.StatsRepository, jobs domain.JobRepository) *App {
	return NewApp(nil, stats, jobs, zerolog.Nop())
}

func TestHealthWithoutPool(t *testing.T) {
	app := newTestApp(&fakeStats{}, &fakeJobs{})
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v, want status ok", body)
	}
}

func TestStatsSummary(t *testing.T) {
	app := newTestApp(&fakeStats{
		accounts: 3,
		jobs:     10,
		byStatus: map[domain.JobStatus]int64{domain.JobStatusDone: 8, domain.JobStatusFailed: 2},
		spent:    8448,
	}, &fakeJobs{})

	rec := httptest.NewRecorder()
	app.StatsSummary(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Accounts != 3 || body.Jobs != 10 || body.TokensSpent != 8448 {
		t.Fatalf("unexpected totals: %+v", body)
	}
	if body.ByStatus["done"] != 8 || body.ByStatus["failed"] != 2 {
		t.Fatalf("unexpected status breakdown: %+v", body.ByStatus)
	}
}

func TestGetJob(t *testing.T) {
	jobID := uuid.New()
	jobs := &fakeJobs{jobs: map[uuid.UUID]*domain.Job{
		jobID: {
			ID:        jobID,
			Kind:      domain.JobKindGenerate,
			Status:    domain.JobStatusDone,
			Cost:      1056,
			ResultRef: "https://cdn.example/img.png",
		},
	}}
	app := newTestApp(&fakeStats{}, jobs)

	r := chi.NewRouter()
	r.Get("/v1/jobs/{id}", app.GetJob)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"existing job", "/v1/jobs/" + jobID.String(), http.StatusOK},
		{"unknown job", "/v1/jobs/" + uuid.NewString(), http.StatusNotFound},
		{"malformed id", "/v1/jobs/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+jobID.String(), nil))
	var body jobResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "done" || body.Cost != 1056 || body.ResultRef == "" {
		t.Fatalf("unexpected job payload: %+v", body)
	}
}
