package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HTTPRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Transaction lifecycle:
	TransactionsCounterTag MetricTag = "transactions_counter"
	// Dispense queue:
	JobLeasesCounterTag   MetricTag = "dispense_job_leases_counter"
	JobOutcomesCounterTag MetricTag = "dispense_job_outcomes_counter"
	// Janitor sweeps:
	ExpiredTransactionsSweptCounterTag MetricTag = "expired_transactions_swept_counter"
	StuckLeasesRevivedCounterTag       MetricTag = "stuck_leases_revived_counter"
	// Verifier requests:
	VerifierRequestDurationTag MetricTag = "verifier_request_duration_seconds"
	VerifierRequestsTotalTag   MetricTag = "verifier_requests_total"

	// Connection pool gauges (real-time state)
	DBOpenConnectionsTag    MetricTag = "open_connections"
	DBInUseConnectionsTag   MetricTag = "in_use_connections"
	DBIdleConnectionsTag    MetricTag = "idle_connections"
	DBMaxOpenConnectionsTag MetricTag = "max_open_connections"

	// Connection pool counters (cumulative)
	DBWaitCountTotalTag           MetricTag = "wait_count_total"
	DBWaitDurationSecondsTotalTag MetricTag = "wait_duration_seconds_total"
	DBMaxIdleClosedTotalTag       MetricTag = "max_idle_closed_total"
	DBMaxIdleTimeClosedTotalTag   MetricTag = "max_idle_time_closed_total"
	DBMaxLifetimeClosedTotalTag   MetricTag = "max_lifetime_closed_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HTTPRequestDurationTag,
		TransactionsCounterTag,
		JobLeasesCounterTag,
		JobOutcomesCounterTag,
		ExpiredTransactionsSweptCounterTag,
		StuckLeasesRevivedCounterTag,
		VerifierRequestDurationTag,
		VerifierRequestsTotalTag,

		DBOpenConnectionsTag,
		DBInUseConnectionsTag,
		DBIdleConnectionsTag,
		DBMaxOpenConnectionsTag,
		DBWaitCountTotalTag,
		DBWaitDurationSecondsTotalTag,
		DBMaxIdleClosedTotalTag,
		DBMaxIdleTimeClosedTotalTag,
		DBMaxLifetimeClosedTotalTag,
	}
}
