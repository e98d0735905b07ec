package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
)

// CallLog records calls across all mocks in the order they happened
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Add appends a call such as "rds.start main-db"
func (l *CallLog) Add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// WithPrefix returns the recorded calls starting with prefix
func (l *CallLog) WithPrefix(prefix string) []string {
	var out []string
	for _, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// MockDatabaseClient is a mock implementation of environment.DatabaseClient.
// Instances move straight to "available"/"stopped" unless Statuses scripts a
// sequence of observations.
type MockDatabaseClient struct {
	Log       *CallLog
	StartErr  map[string]error
	StopErr   map[string]error
	StatusErr map[string]error
	// Statuses scripts successive InstanceStatus results; the last one repeats.
	Statuses map[string][]string

	mu      sync.Mutex
	current map[string]string
	polls   map[string]int
}

func NewMockDatabaseClient(log *CallLog) *MockDatabaseClient {
	return &MockDatabaseClient{
		Log:       log,
		StartErr:  make(map[string]error),
		StopErr:   make(map[string]error),
		StatusErr: make(map[string]error),
		Statuses:  make(map[string][]string),
		current:   make(map[string]string),
		polls:     make(map[string]int),
	}
}

func (m *MockDatabaseClient) StartInstance(ctx context.Context, id string) error {
	m.Log.Add("rds.start %s", id)
	if err := m.StartErr[id]; err != nil {
		return err
	}
	m.set(id, environment.StateAvailable)
	return nil
}

func (m *MockDatabaseClient) StopInstance(ctx context.Context, id string) error {
	m.Log.Add("rds.stop %s", id)
	if err := m.StopErr[id]; err != nil {
		return err
	}
	m.set(id, environment.StateStopped)
	return nil
}

func (m *MockDatabaseClient) InstanceStatus(ctx context.Context, id string) (string, error) {
	m.Log.Add("rds.status %s", id)
	if err := m.StatusErr[id]; err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq := m.Statuses[id]; len(seq) > 0 {
		i := m.polls[id]
		m.polls[id]++
		if i >= len(seq) {
			i = len(seq) - 1
		}
		return seq[i], nil
	}
	if s, ok := m.current[id]; ok {
		return s, nil
	}
	return environment.StateStopped, nil
}

// Polls returns how many times InstanceStatus was asked about id
func (m *MockDatabaseClient) Polls(id string) int {
	return len(m.Log.WithPrefix("rds.status " + id))
}

func (m *MockDatabaseClient) set(id, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[id] = state
}

// MockComputeClient is a mock implementation of environment.ComputeClient
type MockComputeClient struct {
	Log      *CallLog
	StartErr error
	StopErr  error
	StateErr error
	// States scripts successive states applied to every instance; the last one repeats.
	States []string

	mu      sync.Mutex
	current string
	polls   int
}

func NewMockComputeClient(log *CallLog) *MockComputeClient {
	return &MockComputeClient{Log: log, current: environment.StateStopped}
}

func (m *MockComputeClient) StartInstances(ctx context.Context, ids []string) error {
	m.Log.Add("ec2.start %s", strings.Join(ids, ","))
	if m.StartErr != nil {
		return m.StartErr
	}
	m.mu.Lock()
	m.current = environment.StateRunning
	m.mu.Unlock()
	return nil
}

func (m *MockComputeClient) StopInstances(ctx context.Context, ids []string) error {
	m.Log.Add("ec2.stop %s", strings.Join(ids, ","))
	if m.StopErr != nil {
		return m.StopErr
	}
	m.mu.Lock()
	m.current = environment.StateStopped
	m.mu.Unlock()
	return nil
}

func (m *MockComputeClient) InstanceStates(ctx context.Context, ids []string) (map[string]string, error) {
	m.Log.Add("ec2.states %s", strings.Join(ids, ","))
	if m.StateErr != nil {
		return nil, m.StateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.current
	if len(m.States) > 0 {
		i := m.polls
		if i >= len(m.States) {
			i = len(m.States) - 1
		}
		state = m.States[i]
	}
	m.polls++
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = state
	}
	return out, nil
}

// MockContainerClient is a mock implementation of environment.ContainerClient.
// It tracks how many updates run at once.
type MockContainerClient struct {
	Log         *CallLog
	UpdateErr   map[string]error
	UpdateDelay time.Duration
	DescribeErr map[string]error
	// Statuses scripts successive DescribeService results; the last one repeats.
	Statuses map[string][]environment.ServiceStatus

	mu          sync.Mutex
	desired     map[string]int32
	updates     map[string]int
	polls       map[string]int
	inFlight    int
	maxInFlight int
}

func NewMockContainerClient(log *CallLog) *MockContainerClient {
	return &MockContainerClient{
		Log:         log,
		UpdateErr:   make(map[string]error),
		DescribeErr: make(map[string]error),
		Statuses:    make(map[string][]environment.ServiceStatus),
		desired:     make(map[string]int32),
		updates:     make(map[string]int),
		polls:       make(map[string]int),
	}
}

func (m *MockContainerClient) UpdateDesiredCount(ctx context.Context, svc environment.ContainerService, count int32) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.updates[svc.ID()]++
	m.mu.Unlock()

	if m.UpdateDelay > 0 {
		time.Sleep(m.UpdateDelay)
	}

	m.mu.Lock()
	m.inFlight--
	err := m.UpdateErr[svc.ID()]
	if err == nil {
		m.desired[svc.ID()] = count
	}
	m.mu.Unlock()

	m.Log.Add("ecs.update %s %d", svc.ID(), count)
	return err
}

func (m *MockContainerClient) DescribeService(ctx context.Context, cluster, service string) (environment.ServiceStatus, error) {
	id := cluster + "/" + service
	m.Log.Add("ecs.describe %s", id)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.polls[id]
	m.polls[id]++
	if err := m.DescribeErr[id]; err != nil {
		return environment.ServiceStatus{}, err
	}
	if seq := m.Statuses[id]; len(seq) > 0 {
		if i >= len(seq) {
			i = len(seq) - 1
		}
		return seq[i], nil
	}
	n := m.desired[id]
	return environment.ServiceStatus{Status: "ACTIVE", DesiredCount: n, RunningCount: n, Deployments: 1}, nil
}

// Updates returns how many times the service's desired count was updated
func (m *MockContainerClient) Updates(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[id]
}

// Polls returns how many times the service was described
func (m *MockContainerClient) Polls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[id]
}

// MaxInFlight returns the highest number of concurrent updates observed
func (m *MockContainerClient) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// MockClusterController is a mock implementation of environment.ClusterController
type MockClusterController struct {
	Log        *CallLog
	ExitCode   int
	State      environment.ClusterState
	DescribeFn func(name string) (environment.ClusterState, error)
	VersionOut string
}

func NewMockClusterController(log *CallLog) *MockClusterController {
	return &MockClusterController{Log: log, VersionOut: "atlascli version: 1.20.0"}
}

func (m *MockClusterController) Start(ctx context.Context, name string) environment.CommandResult {
	m.Log.Add("atlas.start %s", name)
	return environment.CommandResult{Args: []string{"atlas", "clusters", "start", name}, ExitCode: m.ExitCode}
}

func (m *MockClusterController) Pause(ctx context.Context, name string) environment.CommandResult {
	m.Log.Add("atlas.pause %s", name)
	return environment.CommandResult{Args: []string{"atlas", "clusters", "pause", name}, ExitCode: m.ExitCode}
}

func (m *MockClusterController) Describe(ctx context.Context, name string) (environment.ClusterState, error) {
	m.Log.Add("atlas.describe %s", name)
	if m.DescribeFn != nil {
		return m.DescribeFn(name)
	}
	return m.State, nil
}

func (m *MockClusterController) Version(ctx context.Context) environment.CommandResult {
	m.Log.Add("atlas.version")
	return environment.CommandResult{Args: []string{"atlas", "--version"}, ExitCode: m.ExitCode, Output: m.VersionOut}
}

// MockAccountProbe is a mock implementation of environment.AccountProbe
type MockAccountProbe struct {
	Identity    environment.Identity
	IdentityErr error
	Counts      map[string]int
	CountErr    map[string]error
}

func NewMockAccountProbe() *MockAccountProbe {
	return &MockAccountProbe{
		Identity: environment.Identity{Account: "123456789012", ARN: "arn:aws:iam::123456789012:user/ci", Region: "ap-southeast-1"},
		Counts:   make(map[string]int),
		CountErr: make(map[string]error),
	}
}

func (m *MockAccountProbe) CallerIdentity(ctx context.Context) (environment.Identity, error) {
	return m.Identity, m.IdentityErr
}

func (m *MockAccountProbe) CountBuckets(ctx context.Context) (int, error) {
	return m.Counts["s3"], m.CountErr["s3"]
}

func (m *MockAccountProbe) CountClusters(ctx context.Context) (int, error) {
	return m.Counts["ecs"], m.CountErr["ecs"]
}

func (m *MockAccountProbe) CountInstances(ctx context.Context) (int, error) {
	return m.Counts["ec2"], m.CountErr["ec2"]
}

func (m *MockAccountProbe) CountDatabases(ctx context.Context) (int, error) {
	return m.Counts["rds"], m.CountErr["rds"]
}

// Fixture bundles a full set of mocks sharing one call log
type Fixture struct {
	Log        *CallLog
	Databases  *MockDatabaseClient
	Compute    *MockComputeClient
	Containers *MockContainerClient
	Clusters   *MockClusterController
}

// NewFixture creates mocks for every collaborator
func NewFixture() *Fixture {
	log := &CallLog{}
	return &Fixture{
		Log:        log,
		Databases:  NewMockDatabaseClient(log),
		Compute:    NewMockComputeClient(log),
		Containers: NewMockContainerClient(log),
		Clusters:   NewMockClusterController(log),
	}
}

// Clients returns the mocks as environment.Clients
func (f *Fixture) Clients() environment.Clients {
	return environment.Clients{
		Databases:  f.Databases,
		Compute:    f.Compute,
		Containers: f.Containers,
		Clusters:   f.Clusters,
	}
}
