package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

// QueryType classifies a SQL statement for the purposes of metric labeling.
type QueryType string

const (
	SelectQueryType    QueryType = "SELECT"
	UpdateQueryType    QueryType = "UPDATE"
	InsertQueryType    QueryType = "INSERT"
	DeleteQueryType    QueryType = "DELETE"
	UndefinedQueryType QueryType = "UNDEFINED"
)

// SQLExecuterWithMetrics wraps a SQLExecuter and reports query duration metrics for every call.
type SQLExecuterWithMetrics struct {
	SQLExecuter
	monitorServiceInterface monitor.MonitorServiceInterface
}

// NewSQLExecuterWithMetrics wraps the given sqlExec so that every query it runs is timed and reported
// through monitorServiceInterface.
func NewSQLExecuterWithMetrics(sqlExec SQLExecuter, monitorServiceInterface monitor.MonitorServiceInterface) (*SQLExecuterWithMetrics, error) {
	if sqlExec == nil {
		return nil, fmt.Errorf("sqlExec cannot be nil")
	}

	if monitorServiceInterface == nil {
		return nil, fmt.Errorf("monitorServiceInterface cannot be nil")
	}

	return &SQLExecuterWithMetrics{
		SQLExecuter:             sqlExec,
		monitorServiceInterface: monitorServiceInterface,
	}, nil
}

func getMetricTag(err error) monitor.MetricTag {
	if err != nil {
		return monitor.FailureQueryDurationTag
	}
	return monitor.SuccessfulQueryDurationTag
}

// getQueryType inspects the leading keyword of a query to classify it for metric labeling.
func getQueryType(query string) QueryType {
	trimmed := strings.TrimSpace(query)
	firstWord := strings.ToUpper(strings.SplitN(trimmed, " ", 2)[0])

	switch QueryType(firstWord) {
	case SelectQueryType, UpdateQueryType, InsertQueryType, DeleteQueryType:
		return QueryType(firstWord)
	default:
		return UndefinedQueryType
	}
}

func (s *SQLExecuterWithMetrics) monitorQuery(start time.Time, query string, err error) {
	labels := monitor.DBQueryLabels{
		QueryType: string(getQueryType(query)),
	}

	if monitorErr := s.monitorServiceInterface.MonitorDBQueryDuration(time.Since(start), getMetricTag(err), labels); monitorErr != nil {
		// Metric reporting must never break the calling query path.
		_ = monitorErr
	}
}

func (s *SQLExecuterWithMetrics) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := s.SQLExecuter.GetContext(ctx, dest, query, args...)
	s.monitorQuery(start, query, err)
	return err
}

func (s *SQLExecuterWithMetrics) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := s.SQLExecuter.SelectContext(ctx, dest, query, args...)
	s.monitorQuery(start, query, err)
	return err
}

func (s *SQLExecuterWithMetrics) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.SQLExecuter.QueryContext(ctx, query, args...)
	s.monitorQuery(start, query, err)
	return rows, err
}

func (s *SQLExecuterWithMetrics) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := s.SQLExecuter.QueryxContext(ctx, query, args...)
	s.monitorQuery(start, query, err)
	return rows, err
}

func (s *SQLExecuterWithMetrics) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	start := time.Now()
	row := s.SQLExecuter.QueryRowxContext(ctx, query, args...)
	s.monitorQuery(start, query, row.Err())
	return row
}

func (s *SQLExecuterWithMetrics) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := s.SQLExecuter.ExecContext(ctx, query, args...)
	s.monitorQuery(start, query, err)
	return result, err
}

// make sure *SQLExecuterWithMetrics implements SQLExecuter:
var _ SQLExecuter = (*SQLExecuterWithMetrics)(nil)
