package monitor

import (
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMonitorClient struct {
	mock.Mock
}

func (m *MockMonitorClient) GetMetricHttpHandler() http.Handler {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(http.Handler)
}

func (m *MockMonitorClient) GetMetricType() MetricType {
	args := m.Called()
	return args.Get(0).(MetricType)
}

func (m *MockMonitorClient) MonitorHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels) {
	m.Called(duration, labels)
}

func (m *MockMonitorClient) MonitorDBQueryDuration(duration time.Duration, tag MetricTag, labels DBQueryLabels) {
	m.Called(duration, tag, labels)
}

func (m *MockMonitorClient) MonitorCounters(tag MetricTag, labels map[string]string) {
	m.Called(tag, labels)
}

func (m *MockMonitorClient) MonitorCounterAdd(tag MetricTag, value float64, labels map[string]string) {
	m.Called(tag, value, labels)
}

func (m *MockMonitorClient) MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) {
	m.Called(duration, tag, labels)
}

func (m *MockMonitorClient) MonitorHistogram(value float64, tag MetricTag, labels map[string]string) {
	m.Called(value, tag, labels)
}

func (m *MockMonitorClient) RegisterFunctionMetric(metricType FuncMetricType, opts FuncMetricOptions) {
	m.Called(metricType, opts)
}

type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockMonitorClient creates a new instance of MockMonitorClient. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockMonitorClient(t mockConstructorTestingT) *MockMonitorClient {
	m := &MockMonitorClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ MonitorClient = (*MockMonitorClient)(nil)
