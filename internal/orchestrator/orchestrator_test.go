package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ethforwarder/internal/chain"
	"ethforwarder/internal/models"
	"ethforwarder/internal/records"
)

const (
	testKeyHex    = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testRecipient = "0xFfb6505912FCE95B42be4860477201bb4e204E9f"
	testContract  = "0x2000000000000000000000000000000000000002"
)

func newTestIdentity(t *testing.T) *chain.Identity {
	t.Helper()

	identity, err := chain.NewIdentity(testKeyHex, "http://localhost:8545")
	if err != nil {
		t.Fatalf("failed to build identity: %v", err)
	}
	return identity
}

func confirmedDeployment() *chain.ConfirmedDeployment {
	return &chain.ConfirmedDeployment{
		ContractAddress:  testContract,
		RecipientAddress: testRecipient,
		DeployerAddress:  "0x3000000000000000000000000000000000000003",
		Network:          "sepolia",
		TxHash:           "0xabc",
	}
}

type fakeDeployer struct {
	calls   atomic.Int64
	result  *chain.ConfirmedDeployment
	err     error
	blockCh chan struct{}
}

func (f *fakeDeployer) Deploy(ctx context.Context, identity *chain.Identity, recipientAddress string) (*chain.ConfirmedDeployment, error) {
	f.calls.Add(1)
	if f.blockCh != nil {
		<-f.blockCh
	}
	return f.result, f.err
}

type fakeUpdater struct {
	calls  atomic.Int64
	result *chain.ConfirmedRecipientChange
	err    error
}

func (f *fakeUpdater) ChangeRecipient(ctx context.Context, identity *chain.Identity, contractAddress, newRecipient string) (*chain.ConfirmedRecipientChange, error) {
	f.calls.Add(1)
	return f.result, f.err
}

type fakeStore struct {
	mu           sync.Mutex
	created      []models.InsertDeployment
	updates      []int
	createErr    error
	updateErr    error
	nextRecordID int
}

func (f *fakeStore) Create(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	f.nextRecordID++
	return &models.Deployment{
		ID:               f.nextRecordID,
		ContractAddress:  in.ContractAddress,
		RecipientAddress: in.RecipientAddress,
		DeployerAddress:  in.DeployerAddress,
		Network:          in.Network,
	}, nil
}

func (f *fakeStore) UpdateRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, id)
	return &models.Deployment{ID: id, RecipientAddress: recipientAddress}, nil
}

func (f *fakeStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func TestDeploy_ChainThenStore(t *testing.T) {
	deployer := &fakeDeployer{result: confirmedDeployment()}
	store := &fakeStore{}
	o := New(deployer, &fakeUpdater{}, store)
	identity := newTestIdentity(t)

	record, err := o.Deploy(context.Background(), DeploymentIntent{
		Identity:         identity,
		RecipientAddress: testRecipient,
	})
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	if record.ContractAddress != testContract {
		t.Errorf("record contract = %s, want %s", record.ContractAddress, testContract)
	}
	if store.createCount() != 1 {
		t.Errorf("store writes = %d, want 1", store.createCount())
	}
	if store.created[0].Network != "sepolia" {
		t.Errorf("stored network = %s, want sepolia", store.created[0].Network)
	}
	// The credential never survives past the chain step.
	if !identity.Scrubbed() {
		t.Error("identity was not scrubbed after deployment")
	}
}

func TestDeploy_ChainFailureMakesNoStoreCall(t *testing.T) {
	chainErr := &chain.DeploymentFailedError{Err: errors.New("insufficient funds")}
	deployer := &fakeDeployer{err: chainErr}
	store := &fakeStore{}
	o := New(deployer, &fakeUpdater{}, store)
	identity := newTestIdentity(t)

	_, err := o.Deploy(context.Background(), DeploymentIntent{
		Identity:         identity,
		RecipientAddress: testRecipient,
	})

	var depErr *chain.DeploymentFailedError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DeploymentFailedError, got: %v", err)
	}
	// No record can ever claim a deployment that did not happen.
	if store.createCount() != 0 {
		t.Errorf("store writes = %d after chain failure, want 0", store.createCount())
	}
	// Scrubbing happens on failure too.
	if !identity.Scrubbed() {
		t.Error("identity was not scrubbed after chain failure")
	}
}

func TestDeploy_StoreFailureIsInconsistency(t *testing.T) {
	confirmed := confirmedDeployment()
	deployer := &fakeDeployer{result: confirmed}
	store := &fakeStore{createErr: errors.New("connection refused")}
	o := New(deployer, &fakeUpdater{}, store)

	_, err := o.Deploy(context.Background(), DeploymentIntent{
		Identity:         newTestIdentity(t),
		RecipientAddress: testRecipient,
	})

	var incErr *InconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected InconsistencyError, got: %v", err)
	}
	// The error carries everything needed to retry persistence later.
	if incErr.Deployment == nil || incErr.Deployment.ContractAddress != confirmed.ContractAddress {
		t.Errorf("inconsistency payload = %+v, want confirmed deployment", incErr.Deployment)
	}
}

func TestDeploy_BusyRejectsConcurrentRequest(t *testing.T) {
	blockCh := make(chan struct{})
	deployer := &fakeDeployer{result: confirmedDeployment(), blockCh: blockCh}
	o := New(deployer, &fakeUpdater{}, &fakeStore{})

	first := newTestIdentity(t)
	firstDone := make(chan error, 1)
	go func() {
		_, err := o.Deploy(context.Background(), DeploymentIntent{
			Identity:         first,
			RecipientAddress: testRecipient,
		})
		firstDone <- err
	}()

	// Wait until the first deployment is inside the chain step.
	for deployer.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := o.Deploy(context.Background(), DeploymentIntent{
		Identity:         newTestIdentity(t),
		RecipientAddress: testRecipient,
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got: %v", err)
	}

	close(blockCh)
	if err := <-firstDone; err != nil {
		t.Fatalf("first deployment failed: %v", err)
	}
	if got := deployer.calls.Load(); got != 1 {
		t.Errorf("chain deploys = %d, want 1", got)
	}
}

func TestDeploy_RequiresIdentity(t *testing.T) {
	o := New(&fakeDeployer{}, &fakeUpdater{}, &fakeStore{})

	_, err := o.Deploy(context.Background(), DeploymentIntent{RecipientAddress: testRecipient})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestRetryPersist_NeverTouchesChain(t *testing.T) {
	deployer := &fakeDeployer{}
	store := &fakeStore{}
	o := New(deployer, &fakeUpdater{}, store)

	record, err := o.RetryPersist(context.Background(), confirmedDeployment())
	if err != nil {
		t.Fatalf("RetryPersist failed: %v", err)
	}
	if record.ContractAddress != testContract {
		t.Errorf("record contract = %s, want %s", record.ContractAddress, testContract)
	}
	if got := deployer.calls.Load(); got != 0 {
		t.Errorf("chain deploys = %d during persistence retry, want 0", got)
	}
}

func TestRetryPersist_StoreStillDown(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection refused")}
	o := New(&fakeDeployer{}, &fakeUpdater{}, store)

	_, err := o.RetryPersist(context.Background(), confirmedDeployment())

	var incErr *InconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected InconsistencyError, got: %v", err)
	}
	if incErr.Deployment == nil {
		t.Error("inconsistency payload lost the confirmed deployment")
	}
}

func TestChangeRecipient_ChainThenStore(t *testing.T) {
	updater := &fakeUpdater{result: &chain.ConfirmedRecipientChange{
		ContractAddress:  testContract,
		RecipientAddress: testRecipient,
		Network:          "sepolia",
		TxHash:           "0xdef",
	}}
	store := &fakeStore{}
	o := New(&fakeDeployer{}, updater, store)
	identity := newTestIdentity(t)

	record, err := o.ChangeRecipient(context.Background(), RecipientChangeIntent{
		Identity:            identity,
		RecordID:            7,
		ContractAddress:     testContract,
		NewRecipientAddress: testRecipient,
	})
	if err != nil {
		t.Fatalf("ChangeRecipient failed: %v", err)
	}

	if record.ID != 7 {
		t.Errorf("record id = %d, want 7", record.ID)
	}
	if record.RecipientAddress != testRecipient {
		t.Errorf("record recipient = %s, want %s", record.RecipientAddress, testRecipient)
	}
	if !identity.Scrubbed() {
		t.Error("identity was not scrubbed after recipient change")
	}
}

func TestChangeRecipient_StoreFailureCarriesRetryData(t *testing.T) {
	updater := &fakeUpdater{result: &chain.ConfirmedRecipientChange{
		ContractAddress:  testContract,
		RecipientAddress: testRecipient,
		Network:          "sepolia",
		TxHash:           "0xdef",
	}}
	store := &fakeStore{updateErr: errors.New("connection refused")}
	o := New(&fakeDeployer{}, updater, store)

	_, err := o.ChangeRecipient(context.Background(), RecipientChangeIntent{
		Identity:            newTestIdentity(t),
		RecordID:            7,
		ContractAddress:     testContract,
		NewRecipientAddress: testRecipient,
	})

	var incErr *InconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected InconsistencyError, got: %v", err)
	}
	if incErr.RecordID != 7 || incErr.NewRecipient != testRecipient {
		t.Errorf("retry data = (%d, %s), want (7, %s)", incErr.RecordID, incErr.NewRecipient, testRecipient)
	}
}

func TestChangeRecipient_MissingRecordIsInconsistency(t *testing.T) {
	// The chain change confirmed, but the ledger has no record under that id.
	// The chain cannot be un-changed, so this is an inconsistency, not a plain
	// not-found.
	updater := &fakeUpdater{result: &chain.ConfirmedRecipientChange{
		ContractAddress:  testContract,
		RecipientAddress: testRecipient,
		Network:          "sepolia",
		TxHash:           "0xdef",
	}}
	store := &fakeStore{updateErr: records.ErrNotFound}
	o := New(&fakeDeployer{}, updater, store)

	_, err := o.ChangeRecipient(context.Background(), RecipientChangeIntent{
		Identity:            newTestIdentity(t),
		RecordID:            99,
		ContractAddress:     testContract,
		NewRecipientAddress: testRecipient,
	})

	var incErr *InconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected InconsistencyError, got: %v", err)
	}
	if !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected not-found cause in chain, got: %v", err)
	}
}

func TestChangeRecipient_ChainFailureMakesNoStoreCall(t *testing.T) {
	updater := &fakeUpdater{err: &chain.RecipientChangeFailedError{Err: errors.New("reverted")}}
	store := &fakeStore{}
	o := New(&fakeDeployer{}, updater, store)

	_, err := o.ChangeRecipient(context.Background(), RecipientChangeIntent{
		Identity:            newTestIdentity(t),
		RecordID:            7,
		ContractAddress:     testContract,
		NewRecipientAddress: testRecipient,
	})

	var changeErr *chain.RecipientChangeFailedError
	if !errors.As(err, &changeErr) {
		t.Fatalf("expected RecipientChangeFailedError, got: %v", err)
	}
	if len(store.updates) != 0 {
		t.Errorf("store updates = %d after chain failure, want 0", len(store.updates))
	}
}
