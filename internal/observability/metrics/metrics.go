package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bugtracker_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bugtracker_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	usersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bugtracker_users_registered_total",
		Help: "Count of successful registrations",
	})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bugtracker_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	issuesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bugtracker_issues_created_total",
		Help: "Count of issues created",
	})

	issuesSoftDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bugtracker_issues_soft_deleted_total",
		Help: "Count of issues hidden by soft delete",
	})

	ownershipDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bugtracker_ownership_denials_total",
		Help: "Count of mutations rejected because the caller is not the owner",
	}, []string{"resource"})

	concurrencyConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bugtracker_concurrency_conflicts_total",
		Help: "Count of writes that lost an optimistic concurrency race",
	}, []string{"resource"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bugtracker_rate_limited_total",
		Help: "Count of requests rejected by the rate limiter",
	}, []string{"scope"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRegistration counts a newly registered user.
func ObserveRegistration() {
	usersRegistered.Inc()
}

// ObserveLogin counts a login attempt; result is "success" or "failure".
func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

// ObserveIssueCreated counts a created issue.
func ObserveIssueCreated() {
	issuesCreated.Inc()
}

// ObserveIssueSoftDeleted counts an issue hidden by soft delete.
func ObserveIssueSoftDeleted() {
	issuesSoftDeleted.Inc()
}

// ObserveOwnershipDenial counts a rejected mutation for the resource type.
func ObserveOwnershipDenial(resource string) {
	ownershipDenials.WithLabelValues(resource).Inc()
}

// ObserveConcurrencyConflict counts a lost optimistic concurrency race.
func ObserveConcurrencyConflict(resource string) {
	concurrencyConflicts.WithLabelValues(resource).Inc()
}

// ObserveRateLimited counts a throttled request; scope is "default" or "strict".
func ObserveRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}
