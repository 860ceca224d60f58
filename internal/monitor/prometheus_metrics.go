package monitor

import "github.com/prometheus/client_golang/prometheus"

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(HTTPSubservice), Name: string(HTTPRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(DBSubservice), Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(DBSubservice), Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
	VerifierRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(VerifierSubservice), Name: string(VerifierRequestDurationTag),
		Help: "Verifier proof-check request durations",
	},
		VerifierLabelNames,
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	JobLeasesCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(QueueSubservice), Name: string(JobLeasesCounterTag),
		Help: "A counter of dispense-job leases handed out to kiosks",
	}),
	ExpiredTransactionsSweptCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(JanitorSubservice), Name: string(ExpiredTransactionsSweptCounterTag),
		Help: "A counter of pending transactions the janitor marked expired",
	}),
	StuckLeasesRevivedCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(JanitorSubservice), Name: string(StuckLeasesRevivedCounterTag),
		Help: "A counter of in-progress dispense jobs the janitor reclaimed from silent kiosks",
	}),
}

var HistogramVecMetrics map[MetricTag]prometheus.HistogramVec

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	TransactionsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(QueueSubservice), Name: string(TransactionsCounterTag),
		Help: "A counter of transaction status transitions, labeled by the status entered",
	},
		TransactionLabelNames,
	),
	JobOutcomesCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(QueueSubservice), Name: string(JobOutcomesCounterTag),
		Help: "A counter of reported dispense attempts, labeled success/retry/failed",
	},
		JobOutcomeLabelNames,
	),
	VerifierRequestsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(VerifierSubservice), Name: string(VerifierRequestsTotalTag),
		Help: "A counter of verifier proof-check requests",
	},
		VerifierLabelNames,
	),
}
