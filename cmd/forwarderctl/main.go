package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ethforwarder/internal/chain"
	"ethforwarder/internal/models"
	"ethforwarder/internal/orchestrator"
	"ethforwarder/internal/records"
	"ethforwarder/internal/retry"
)

const usage = `Usage: forwarderctl <command> [flags]

Commands:
  deploy            Deploy a forwarder contract and record it in the ledger
  change-recipient  Change a forwarder's recipient and update its record

Run 'forwarderctl <command> -h' for command flags.
`

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "deploy":
		err = runDeploy(os.Args[2:])
	case "change-recipient":
		err = runChangeRecipient(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func runDeploy(args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	var (
		key       = fs.String("key", os.Getenv("FORWARDER_PRIVATE_KEY"), "Deployer private key (hex), or FORWARDER_PRIVATE_KEY")
		rpcURL    = fs.String("rpc", "http://localhost:8545", "Chain RPC endpoint")
		recipient = fs.String("recipient", "", "Recipient address for the forwarder")
		ledgerURL = fs.String("ledger", "http://localhost:5000", "Deployment ledger base URL")
		timeout   = fs.Duration("timeout", 5*time.Minute, "Abandon the confirmation wait after this long")
	)
	fs.Parse(args)

	identity, err := chain.NewIdentity(*key, *rpcURL)
	if err != nil {
		return err
	}
	defer identity.Close()

	orch := newOrchestrator(*ledgerURL)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	record, err := orch.Deploy(ctx, orchestrator.DeploymentIntent{
		Identity:         identity,
		RecipientAddress: *recipient,
	})

	var inconsistency *orchestrator.InconsistencyError
	if errors.As(err, &inconsistency) {
		record, err = retryPersistDeployment(ctx, orch, inconsistency)
	}
	if err != nil {
		return err
	}

	printRecord(record)
	return nil
}

func runChangeRecipient(args []string) error {
	fs := flag.NewFlagSet("change-recipient", flag.ExitOnError)
	var (
		key       = fs.String("key", os.Getenv("FORWARDER_PRIVATE_KEY"), "Signer private key (hex), or FORWARDER_PRIVATE_KEY")
		rpcURL    = fs.String("rpc", "http://localhost:8545", "Chain RPC endpoint")
		contract  = fs.String("contract", "", "Deployed forwarder contract address")
		recordID  = fs.Int("id", 0, "Ledger record id of the deployment")
		recipient = fs.String("recipient", "", "New recipient address")
		ledgerURL = fs.String("ledger", "http://localhost:5000", "Deployment ledger base URL")
		timeout   = fs.Duration("timeout", 5*time.Minute, "Abandon the confirmation wait after this long")
	)
	fs.Parse(args)

	identity, err := chain.NewIdentity(*key, *rpcURL)
	if err != nil {
		return err
	}
	defer identity.Close()

	orch := newOrchestrator(*ledgerURL)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	record, err := orch.ChangeRecipient(ctx, orchestrator.RecipientChangeIntent{
		Identity:            identity,
		RecordID:            *recordID,
		ContractAddress:     *contract,
		NewRecipientAddress: *recipient,
	})

	var inconsistency *orchestrator.InconsistencyError
	if errors.As(err, &inconsistency) {
		record, err = retryPersistRecipient(ctx, orch, inconsistency)
	}
	if err != nil {
		return err
	}

	printRecord(record)
	return nil
}

func newOrchestrator(ledgerURL string) *orchestrator.Orchestrator {
	submitter := chain.NewSubmitter(0)
	return orchestrator.New(
		chain.NewDeployer(submitter),
		chain.NewUpdater(submitter),
		records.NewClient(ledgerURL),
	)
}

// retryPersistDeployment retries only the ledger write of an already-confirmed
// deployment. The chain step is never repeated. If the ledger stays down, the
// confirmed details are printed so the operator can save them later.
func retryPersistDeployment(ctx context.Context, orch *orchestrator.Orchestrator, inconsistency *orchestrator.InconsistencyError) (*models.Deployment, error) {
	slog.Warn("Contract deployed on-chain but not yet recorded, retrying the ledger write",
		"contract", inconsistency.Deployment.ContractAddress,
	)

	strategy := retry.NewStrategy(retry.LoadConfig())
	var record *models.Deployment
	err := strategy.Execute(ctx, func() error {
		var err error
		record, err = orch.RetryPersist(ctx, inconsistency.Deployment)
		return err
	})
	if err != nil {
		d := inconsistency.Deployment
		fmt.Fprintf(os.Stderr, "DEPLOYED BUT NOT RECORDED, save these details:\n")
		fmt.Fprintf(os.Stderr, "  contractAddress:  %s\n", d.ContractAddress)
		fmt.Fprintf(os.Stderr, "  recipientAddress: %s\n", d.RecipientAddress)
		fmt.Fprintf(os.Stderr, "  deployerAddress:  %s\n", d.DeployerAddress)
		fmt.Fprintf(os.Stderr, "  network:          %s\n", d.Network)
		fmt.Fprintf(os.Stderr, "  txHash:           %s\n", d.TxHash)
		return nil, err
	}
	return record, nil
}

// retryPersistRecipient retries only the ledger update of an already-confirmed
// recipient change.
func retryPersistRecipient(ctx context.Context, orch *orchestrator.Orchestrator, inconsistency *orchestrator.InconsistencyError) (*models.Deployment, error) {
	slog.Warn("Recipient changed on-chain but record not yet updated, retrying the ledger write",
		"record_id", inconsistency.RecordID,
		"new_recipient", inconsistency.NewRecipient,
	)

	strategy := retry.NewStrategy(retry.LoadConfig())
	var record *models.Deployment
	err := strategy.Execute(ctx, func() error {
		var err error
		record, err = orch.RetryPersistRecipient(ctx, inconsistency.RecordID, inconsistency.NewRecipient)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "CHANGED ON-CHAIN BUT NOT RECORDED: record id %d should now point at %s\n",
			inconsistency.RecordID, inconsistency.NewRecipient)
		return nil, err
	}
	return record, nil
}

func printRecord(record *models.Deployment) {
	fmt.Printf("id:               %d\n", record.ID)
	fmt.Printf("contractAddress:  %s\n", record.ContractAddress)
	fmt.Printf("recipientAddress: %s\n", record.RecipientAddress)
	fmt.Printf("deployerAddress:  %s\n", record.DeployerAddress)
	fmt.Printf("network:          %s\n", record.Network)
	fmt.Printf("createdAt:        %s\n", record.CreatedAt.Format(time.RFC3339))
}
